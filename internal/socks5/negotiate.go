package socks5

import (
	"bytes"
	"io"

	"github.com/pkg/errors"
	txsocks5 "github.com/txthinking/socks5"
)

// Negotiate runs the server side of the method-selection handshake.
//
// When authRequired is set only username/password is acceptable, otherwise
// only no-auth is. The selected method is always written back to the client;
// if nothing acceptable was offered Negotiate returns ErrNoAcceptableAuth
// after the rejection has been written.
func Negotiate(rw io.ReadWriter, authRequired bool) (AuthMethod, error) {
	var hdr [2]byte
	if _, err := io.ReadFull(rw, hdr[:]); err != nil {
		return MethodNoAcceptable, errors.Wrap(err, "read handshake header")
	}
	if hdr[0] != Version {
		return MethodNoAcceptable, &InvalidVersionError{Version: hdr[0]}
	}
	if hdr[1] == 0 {
		return MethodNoAcceptable, errors.Wrap(ErrProtocol, "no authentication methods offered")
	}

	methods := make([]byte, int(hdr[1]))
	if _, err := io.ReadFull(rw, methods); err != nil {
		return MethodNoAcceptable, errors.Wrap(err, "read handshake methods")
	}

	selected := selectMethod(methods, authRequired)
	if _, err := txsocks5.NewNegotiationReply(byte(selected)).WriteTo(rw); err != nil {
		return MethodNoAcceptable, errors.Wrap(err, "write handshake reply")
	}
	if selected == MethodNoAcceptable {
		return selected, ErrNoAcceptableAuth
	}
	return selected, nil
}

func selectMethod(offered []byte, authRequired bool) AuthMethod {
	want := MethodNoAuth
	if authRequired {
		want = MethodUsernamePassword
	}
	if bytes.IndexByte(offered, byte(want)) >= 0 {
		return want
	}
	return MethodNoAcceptable
}

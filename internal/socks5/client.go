package socks5

import (
	"fmt"
	"io"

	"github.com/pkg/errors"
	txsocks5 "github.com/txthinking/socks5"
)

// Auth configures optional username/password authentication on the client
// side.
type Auth struct {
	Username string
	Password string
}

// ReplyError is returned by ClientConnect when the server answers with
// anything other than ReplySucceeded.
type ReplyError struct {
	Reply Reply
}

func (e *ReplyError) Error() string {
	return fmt.Sprintf("socks5: server replied %s", e.Reply)
}

// ClientDial negotiates, authenticates if needed and issues a CONNECT for
// address over rw.
func ClientDial(rw io.ReadWriter, auth Auth, address string) error {
	if err := ClientNegotiate(rw, auth); err != nil {
		return err
	}
	return ClientConnect(rw, address)
}

// ClientNegotiate offers no-auth, plus username/password when auth.Username
// is set, and completes whichever method the server picks.
func ClientNegotiate(rw io.ReadWriter, auth Auth) error {
	methods := []byte{byte(MethodNoAuth)}
	if auth.Username != "" {
		methods = append(methods, byte(MethodUsernamePassword))
	}

	if _, err := txsocks5.NewNegotiationRequest(methods).WriteTo(rw); err != nil {
		return errors.Wrap(err, "write negotiation")
	}
	neg, err := txsocks5.NewNegotiationReplyFrom(rw)
	if err != nil {
		return errors.Wrap(err, "read negotiation")
	}

	switch AuthMethod(neg.Method) {
	case MethodNoAuth:
		return nil
	case MethodUsernamePassword:
		if auth.Username == "" {
			return errors.New("server requires username/password")
		}
		if _, err := txsocks5.NewUserPassNegotiationRequest([]byte(auth.Username), []byte(auth.Password)).WriteTo(rw); err != nil {
			return errors.Wrap(err, "write userpass")
		}
		rep, err := txsocks5.NewUserPassNegotiationReplyFrom(rw)
		if err != nil {
			return errors.Wrap(err, "read userpass")
		}
		if rep.Status != userPassStatusSuccess {
			return ErrAuthFailed
		}
		return nil
	case MethodNoAcceptable:
		return ErrNoAcceptableAuth
	default:
		return errors.Errorf("unsupported negotiation method: %d", neg.Method)
	}
}

// ClientConnect sends a CONNECT request for address and reads the reply.
func ClientConnect(rw io.ReadWriter, address string) error {
	addr, err := ParseAddress(address)
	if err != nil {
		return errors.Wrap(err, "parse address")
	}

	req := &Request{Command: CommandConnect, Address: addr}
	if _, err := req.WriteTo(rw); err != nil {
		return errors.Wrap(err, "write request")
	}

	rep, err := txsocks5.NewReplyFrom(rw)
	if err != nil {
		return errors.Wrap(err, "read reply")
	}
	if Reply(rep.Rep) != ReplySucceeded {
		return &ReplyError{Reply: Reply(rep.Rep)}
	}
	return nil
}

package socks5

import (
	"crypto/subtle"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	txsocks5 "github.com/txthinking/socks5"
	"golang.org/x/crypto/bcrypt"
)

// Credential is one configured username/password pair. If PasswordHash is
// set it holds a bcrypt hash and Password is ignored.
type Credential struct {
	Username     string
	Password     string
	PasswordHash string
}

// Credentials is the set of accounts accepted by Authenticate.
type Credentials []Credential

// Verify reports whether some credential matches username and password
// exactly.
func (cs Credentials) Verify(username, password string) bool {
	for _, c := range cs {
		if c.Username != username {
			continue
		}
		if c.PasswordHash != "" {
			if bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(password)) == nil {
				return true
			}
			continue
		}
		if subtle.ConstantTimeCompare([]byte(c.Password), []byte(password)) == 1 {
			return true
		}
	}
	return false
}

// Authenticate runs the server side of RFC 1929 username/password
// subnegotiation and returns the username presented by the client.
//
// The status byte is always written before returning ErrAuthFailed.
func Authenticate(rw io.ReadWriter, creds Credentials) (string, error) {
	var ver [1]byte
	if _, err := io.ReadFull(rw, ver[:]); err != nil {
		return "", errors.Wrap(err, "read auth version")
	}
	if ver[0] != UserPassVersion {
		return "", errors.Wrapf(ErrProtocol, "invalid auth version %d", ver[0])
	}

	username, err := readLengthPrefixed(rw)
	if err != nil {
		return "", errors.Wrap(err, "read username")
	}
	password, err := readLengthPrefixed(rw)
	if err != nil {
		return "", errors.Wrap(err, "read password")
	}

	user := lossyString(username)
	if !creds.Verify(user, lossyString(password)) {
		if _, err := txsocks5.NewUserPassNegotiationReply(userPassStatusFailure).WriteTo(rw); err != nil {
			return user, errors.Wrap(err, "write auth reply")
		}
		return user, ErrAuthFailed
	}
	if _, err := txsocks5.NewUserPassNegotiationReply(userPassStatusSuccess).WriteTo(rw); err != nil {
		return user, errors.Wrap(err, "write auth reply")
	}
	return user, nil
}

func readLengthPrefixed(r io.Reader) ([]byte, error) {
	var n [1]byte
	if _, err := io.ReadFull(r, n[:]); err != nil {
		return nil, err
	}
	b := make([]byte, int(n[0]))
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, err
	}
	return b, nil
}

// lossyString replaces invalid UTF-8 so a garbled name can still be compared
// (and fail to match).
func lossyString(b []byte) string {
	return strings.ToValidUTF8(string(b), string(utf8.RuneError))
}

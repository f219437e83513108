package socks5

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrProtocol is a malformed message that has no more specific error.
	ErrProtocol = errors.New("socks5: protocol error")

	ErrNoAcceptableAuth = errors.New("socks5: no acceptable authentication method")
	ErrAuthFailed       = errors.New("socks5: authentication failed")
	ErrInvalidAddress   = errors.New("socks5: invalid address")

	// Outbound connect failures. Each one is reported to the client with the
	// reply returned by ReplyFor before it is surfaced.
	ErrConnectionRefused  = errors.New("socks5: connection refused")
	ErrHostUnreachable    = errors.New("socks5: host unreachable")
	ErrNetworkUnreachable = errors.New("socks5: network unreachable")
	ErrConnectTimeout     = errors.New("socks5: connect timeout")
)

// InvalidVersionError is returned when a message carries a version byte other
// than the one expected.
type InvalidVersionError struct {
	Version byte
}

func (e *InvalidVersionError) Error() string {
	return fmt.Sprintf("socks5: invalid version %d", e.Version)
}

// UnsupportedCommandError carries the raw CMD byte of a request that can't be
// executed.
type UnsupportedCommandError struct {
	Command byte
}

func (e *UnsupportedCommandError) Error() string {
	return fmt.Sprintf("socks5: unsupported command %d", e.Command)
}

// UnsupportedAddressTypeError carries the raw ATYP byte of a request.
type UnsupportedAddressTypeError struct {
	Type byte
}

func (e *UnsupportedAddressTypeError) Error() string {
	return fmt.Sprintf("socks5: unsupported address type %d", e.Type)
}

// ReplyFor returns the reply code that reports err to the client, and false if
// err has no reply (transport errors, and failures before a method was
// agreed).
func ReplyFor(err error) (Reply, bool) {
	var (
		cmdErr  *UnsupportedCommandError
		atypErr *UnsupportedAddressTypeError
		verErr  *InvalidVersionError
	)
	switch {
	case err == nil:
		return ReplySucceeded, true
	case errors.As(err, &cmdErr):
		return ReplyCommandNotSupported, true
	case errors.As(err, &atypErr):
		return ReplyAddressTypeNotSupported, true
	case errors.Is(err, ErrConnectionRefused):
		return ReplyConnectionRefused, true
	case errors.Is(err, ErrConnectTimeout):
		return ReplyTTLExpired, true
	case errors.Is(err, ErrHostUnreachable), errors.Is(err, ErrNetworkUnreachable):
		return ReplyHostUnreachable, true
	case errors.As(err, &verErr), errors.Is(err, ErrInvalidAddress), errors.Is(err, ErrProtocol):
		return ReplyGeneralFailure, true
	default:
		return 0, false
	}
}

//go:build unix

package dialer

import (
	"errors"

	"golang.org/x/sys/unix"
)

func isRefused(err error) bool {
	return errors.Is(err, unix.ECONNREFUSED)
}

func isTimedOutErrno(err error) bool {
	return errors.Is(err, unix.ETIMEDOUT)
}

func isNetworkUnreachable(err error) bool {
	return errors.Is(err, unix.ENETUNREACH) || errors.Is(err, unix.ENETDOWN)
}

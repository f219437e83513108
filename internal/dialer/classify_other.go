//go:build !unix && !windows

package dialer

import (
	"errors"
	"syscall"
)

func isRefused(err error) bool {
	return errors.Is(err, syscall.ECONNREFUSED)
}

func isTimedOutErrno(err error) bool {
	return errors.Is(err, syscall.ETIMEDOUT)
}

func isNetworkUnreachable(err error) bool {
	return errors.Is(err, syscall.ENETUNREACH)
}

//go:build windows

package dialer

import (
	"errors"

	"golang.org/x/sys/windows"
)

func isRefused(err error) bool {
	return errors.Is(err, windows.WSAECONNREFUSED)
}

func isTimedOutErrno(err error) bool {
	return errors.Is(err, windows.WSAETIMEDOUT)
}

func isNetworkUnreachable(err error) bool {
	return errors.Is(err, windows.WSAENETUNREACH)
}

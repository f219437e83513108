package dialer

import (
	"context"
	"errors"
	"net"
	"os"
)

// Failure is the category of a failed dial.
type Failure int

const (
	FailureHostUnreachable Failure = iota
	FailureRefused
	FailureTimeout
	FailureNetworkUnreachable
)

func (f Failure) String() string {
	switch f {
	case FailureRefused:
		return "refused"
	case FailureTimeout:
		return "timeout"
	case FailureNetworkUnreachable:
		return "network unreachable"
	default:
		return "host unreachable"
	}
}

// Classify sorts a dial error. Anything it doesn't recognize, including DNS
// failures, is FailureHostUnreachable.
func Classify(err error) Failure {
	switch {
	case isRefused(err):
		return FailureRefused
	case isTimeout(err):
		return FailureTimeout
	case isNetworkUnreachable(err):
		return FailureNetworkUnreachable
	default:
		return FailureHostUnreachable
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) || isTimedOutErrno(err) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

package dialer

import (
	"net"
	"time"
)

type Config struct {
	// DialTimeout bounds DNS lookup plus TCP connect.
	DialTimeout time.Duration

	KeepAlive net.KeepAliveConfig
	NoDelay   bool
}

package proxy

import (
	"time"

	"github.com/die-net/socksd/internal/dialer"
	"github.com/die-net/socksd/internal/socks5"
)

// DefaultMaxConnections is used when Config.MaxConnections is not positive.
const DefaultMaxConnections = 10000

// Config is shared by every connection a server handles. It's built once at
// startup and must not be modified after it is passed to NewSOCKS5Server.
type Config struct {
	// ConnectTimeout bounds DNS resolution plus the TCP connect to a target.
	ConnectTimeout time.Duration

	// NegotiationTimeout, if set, is a deadline covering the handshake,
	// authentication and request. Zero disables it.
	NegotiationTimeout time.Duration

	// AdmissionTimeout, if set, bounds how long an accepted connection waits
	// for an admission slot. Zero waits until shutdown.
	AdmissionTimeout time.Duration

	MaxConnections int

	AuthRequired bool
	Credentials  socks5.Credentials

	TCP TCPOptions

	// BufferSize is the size of each relay buffer.
	BufferSize int

	Dialer dialer.Dialer
}

package proxy

import (
	"context"
	"fmt"
	"net"
)

// ListenTCP listens on the given network/address.
func ListenTCP(ctx context.Context, network, addr string) (net.Listener, error) {
	lc := net.ListenConfig{}

	ln, err := lc.Listen(ctx, network, addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s %s: %w", network, addr, err)
	}

	return ln, nil
}

// TCPOptions are socket options applied to client connections.
type TCPOptions struct {
	NoDelay   bool
	KeepAlive net.KeepAliveConfig
}

// Apply sets the options on conn if it is a *net.TCPConn. Failures are
// ignored; the connection is still usable without them.
func (o TCPOptions) Apply(conn net.Conn) {
	tc, ok := conn.(*net.TCPConn)
	if !ok {
		return
	}

	_ = tc.SetNoDelay(o.NoDelay)
	_ = tc.SetKeepAliveConfig(o.KeepAlive)
}

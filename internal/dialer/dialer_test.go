package dialer

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/die-net/socksd/internal/testutil"
)

func TestDirectDialerConnects(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	ln := testutil.StartEchoTCPServer(t, ctx)
	defer ln.Close()

	d := NewDirectDialer(Config{
		DialTimeout: time.Second,
		KeepAlive:   net.KeepAliveConfig{Enable: true},
		NoDelay:     true,
	})
	c, err := d.DialContext(ctx, "tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	defer c.Close()

	testutil.AssertEcho(t, c, c, []byte("ping"))
}

func TestDirectDialerRefused(t *testing.T) {
	t.Parallel()

	addr := testutil.UnusedAddr(t)

	d := NewDirectDialer(Config{DialTimeout: time.Second})
	_, err := d.DialContext(context.Background(), "tcp", addr)
	if err == nil {
		t.Fatal("expected dial to fail")
	}
	if got := Classify(err); got != FailureRefused {
		t.Fatalf("Classify(%v)=%s want %s", err, got, FailureRefused)
	}
}

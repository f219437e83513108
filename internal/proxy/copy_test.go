package proxy

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"
)

// tcpPair returns the two ends of a loopback TCP connection.
func tcpPair(t *testing.T) (*net.TCPConn, *net.TCPConn) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	defer ln.Close()

	accepted := make(chan net.Conn, 1)
	go func() {
		c, _ := ln.Accept()
		accepted <- c
	}()

	dialed, err := net.Dial("tcp", ln.Addr().String())
	if err != nil {
		t.Fatal(err)
	}
	c := <-accepted
	if c == nil {
		t.Fatal("accept failed")
	}
	t.Cleanup(func() {
		_ = dialed.Close()
		_ = c.Close()
	})
	return dialed.(*net.TCPConn), c.(*net.TCPConn)
}

func TestCopyBidirectionalHalfClose(t *testing.T) {
	t.Parallel()

	client, left := tcpPair(t)
	right, target := tcpPair(t)

	type result struct {
		traffic Traffic
		err     error
	}
	done := make(chan result, 1)
	go func() {
		tr, err := CopyBidirectional(context.Background(), left, right, NewBufferPool(16))
		done <- result{tr, err}
	}()

	if _, err := client.Write([]byte("hello")); err != nil {
		t.Fatal(err)
	}
	if err := client.CloseWrite(); err != nil {
		t.Fatal(err)
	}

	// The target only sees EOF if the relay shut down its write side.
	got, err := io.ReadAll(target)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "hello" {
		t.Fatalf("target read %q", got)
	}

	// The other direction still works after the half-close.
	if _, err := target.Write([]byte("world!")); err != nil {
		t.Fatal(err)
	}
	_ = target.Close()

	got, err = io.ReadAll(client)
	if err != nil {
		t.Fatal(err)
	}
	if string(got) != "world!" {
		t.Fatalf("client read %q", got)
	}

	select {
	case r := <-done:
		if r.err != nil {
			t.Fatal(r.err)
		}
		if r.traffic != (Traffic{Up: 5, Down: 6}) {
			t.Fatalf("traffic=%+v", r.traffic)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not finish")
	}
}

func TestCopyBidirectionalContextCancel(t *testing.T) {
	t.Parallel()

	client, left := net.Pipe()
	right, target := net.Pipe()
	defer client.Close()
	defer target.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := CopyBidirectional(ctx, left, right, NewBufferPool(0))
		done <- err
	}()

	cancel()

	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("err=%v want %v", err, context.Canceled)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("relay ignored cancellation")
	}

	if _, err := client.Read(make([]byte, 1)); err == nil {
		t.Fatal("client conn still open after cancel")
	}
	if _, err := target.Read(make([]byte, 1)); err == nil {
		t.Fatal("target conn still open after cancel")
	}
}

type failingConn struct {
	net.Conn
	err error
}

func (c *failingConn) Read([]byte) (int, error) { return 0, c.err }

func TestCopyBidirectionalErrorClosesBoth(t *testing.T) {
	t.Parallel()

	client, left := net.Pipe()
	right, target := net.Pipe()
	defer client.Close()
	defer target.Close()

	errReset := errors.New("connection reset")
	done := make(chan error, 1)
	go func() {
		_, err := CopyBidirectional(context.Background(), left, &failingConn{Conn: right, err: errReset}, NewBufferPool(64))
		done <- err
	}()

	select {
	case err := <-done:
		if !errors.Is(err, errReset) {
			t.Fatalf("err=%v want %v", err, errReset)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not finish")
	}

	if _, err := client.Read(make([]byte, 1)); err == nil {
		t.Fatal("client conn still open after relay error")
	}
}

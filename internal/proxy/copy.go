package proxy

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Traffic counts the bytes a relay moved in each direction.
type Traffic struct {
	// Up is left to right (client to target), Down is right to left.
	Up, Down int64
}

type closeWriter interface {
	CloseWrite() error
}

// CopyBidirectional relays between left and right until both directions have
// finished. When one direction reaches EOF the write side of its destination
// is shut down and the other direction keeps going. An error in either
// direction, or ctx being done, closes both conns. Both conns are closed when
// CopyBidirectional returns.
func CopyBidirectional(ctx context.Context, left, right net.Conn, pool *BufferPool) (Traffic, error) {
	var closeOnce sync.Once
	closeBoth := func() {
		closeOnce.Do(func() {
			_ = left.Close()
			_ = right.Close()
		})
	}
	defer closeBoth()

	// Closing unblocks both copies if ctx ends first.
	stop := context.AfterFunc(ctx, closeBoth)
	defer stop()

	var t Traffic
	var g errgroup.Group

	g.Go(func() error {
		n, err := copyHalf(right, left, pool, closeBoth)
		t.Up = n
		return err
	})

	g.Go(func() error {
		n, err := copyHalf(left, right, pool, closeBoth)
		t.Down = n
		return err
	})

	err := g.Wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return t, ctxErr
	}
	return t, err
}

func copyHalf(dst, src net.Conn, pool *BufferPool, closeBoth func()) (int64, error) {
	buf := pool.Get()
	defer pool.Put(buf)

	n, err := io.CopyBuffer(dst, src, buf)
	if err != nil {
		closeBoth()
		// The other direction failing closes our conns out from under us.
		if errors.Is(err, net.ErrClosed) || errors.Is(err, io.ErrClosedPipe) {
			return n, nil
		}
		return n, err
	}

	if cw, ok := dst.(closeWriter); ok && cw.CloseWrite() == nil {
		return n, nil
	}
	closeBoth()
	return n, nil
}

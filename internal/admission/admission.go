// Package admission bounds the number of connections handled at once.
//
// A [Controller] hands out at most Max permits. Callers hold a [Permit] for
// the lifetime of a connection and release it when they are done; [Do] wraps
// that pattern so the release can't be skipped on an early return or panic.
package admission

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/semaphore"
)

type Controller struct {
	sem    *semaphore.Weighted
	active atomic.Int64
	max    int
}

// New returns a Controller allowing max concurrent permits. max must be
// positive.
func New(max int) *Controller {
	if max <= 0 {
		panic(fmt.Sprintf("admission: invalid capacity %d", max))
	}
	return &Controller{sem: semaphore.NewWeighted(int64(max)), max: max}
}

// Permit is one occupied slot.
type Permit struct {
	c    *Controller
	once sync.Once
}

// Acquire blocks until a slot is free or ctx is done.
func (c *Controller) Acquire(ctx context.Context) (*Permit, error) {
	if err := c.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	return c.newPermit(), nil
}

// tryAcquire takes a slot only if one is free right now.
func (c *Controller) tryAcquire() (*Permit, bool) {
	if !c.sem.TryAcquire(1) {
		return nil, false
	}
	return c.newPermit(), true
}

func (c *Controller) newPermit() *Permit {
	c.active.Add(1)
	return &Permit{c: c}
}

// Release returns the slot. Calls after the first are no-ops.
func (p *Permit) Release() {
	p.once.Do(func() {
		p.c.active.Add(-1)
		p.c.sem.Release(1)
	})
}

// Do acquires a permit, runs fn and releases the permit when fn returns or
// panics. If ctx ends before a slot frees up fn is not run and ctx's error is
// returned.
func (c *Controller) Do(ctx context.Context, fn func() error) error {
	p, err := c.Acquire(ctx)
	if err != nil {
		return err
	}
	defer p.Release()
	return fn()
}

// Active returns the number of outstanding permits.
func (c *Controller) Active() int {
	return int(c.active.Load())
}

// Max returns the capacity.
func (c *Controller) Max() int {
	return c.max
}

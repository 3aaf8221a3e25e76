// Package singleflight coalesces concurrent loads of the same key.
package singleflight

import (
	"context"
	"fmt"
	"sync"
)

// Group coalesces concurrent function calls for the same key K so that
// the supplied fn is executed at most once per flight. Other concurrent
// callers wait for the shared result.
//
// The first caller for a key becomes the leader and runs fn. Cancelling ctx
// in a follower unblocks only that follower; it does not cancel the
// leader's fn.
type Group[K comparable, V any] struct {
	mu sync.Mutex
	m  map[K]*call[V]
}

type call[V any] struct {
	done chan struct{} // closed when val/err are published
	val  V
	err  error
	dups int
}

// PanicError is returned to every caller of a flight whose fn panicked.
// The leader re-panics after publishing it.
type PanicError struct {
	Value any
}

func (p *PanicError) Error() string { return fmt.Sprintf("singleflight: load panicked: %v", p.Value) }

// Do runs fn once for the given key. A follower whose ctx is cancelled
// returns ctx.Err() while the leader continues to run fn.
func (g *Group[K, V]) Do(ctx context.Context, key K, fn func() (V, error)) (v V, err error) {
	v, _, err = g.do(ctx, key, fn)
	return v, err
}

// DoShared is Do that also reports whether the result was delivered to
// more than one caller.
func (g *Group[K, V]) DoShared(ctx context.Context, key K, fn func() (V, error)) (v V, shared bool, err error) {
	return g.do(ctx, key, fn)
}

func (g *Group[K, V]) do(ctx context.Context, key K, fn func() (V, error)) (V, bool, error) {
	g.mu.Lock()
	if g.m == nil {
		g.m = make(map[K]*call[V])
	}
	if c, ok := g.m[key]; ok {
		c.dups++
		g.mu.Unlock()

		select {
		case <-c.done:
			return c.val, true, c.err
		case <-ctx.Done():
			var zero V
			return zero, true, ctx.Err()
		}
	}

	// We are the leader for this key.
	c := &call[V]{done: make(chan struct{})}
	g.m[key] = c
	g.mu.Unlock()

	g.run(key, c, fn)

	g.mu.Lock()
	shared := c.dups > 0
	g.mu.Unlock()
	return c.val, shared, c.err
}

// run executes fn outside the lock and always publishes a result, even if fn panics.
func (g *Group[K, V]) run(key K, c *call[V], fn func() (V, error)) {
	var recovered any
	defer func() {
		g.mu.Lock()
		delete(g.m, key)
		g.mu.Unlock()
		close(c.done)

		if recovered != nil {
			panic(recovered)
		}
	}()

	func() {
		defer func() {
			if r := recover(); r != nil {
				recovered = r
				c.err = &PanicError{Value: r}
			}
		}()
		c.val, c.err = fn()
	}()
}

// InFlight returns the number of keys currently being loaded.
func (g *Group[K, V]) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.m)
}

package singleflight

import (
	"context"
	"sync"
)

// Group loads a value per key at most once and keeps it. The first caller
// for a key runs fn; concurrent callers wait for its result, and later
// callers get the kept value without waiting. A failed load is not kept,
// so the next caller retries.
//
// Concurrency notes:
//   - Publishing (val, err) happens-before close(c.done), so reads after
//     <-done observe the final values.
//   - Cancelling ctx in a follower unblocks only that follower; it does
//     not cancel the leader's fn.
type Group[K comparable, V any] struct {
	mu   sync.Mutex
	m    map[K]*call[V]
	kept map[K]V
}

type call[V any] struct {
	done chan struct{} // closed when val/err are published
	val  V
	err  error
}

// Do returns the kept value for key, or runs fn to load it. If ctx is
// cancelled in a follower, that follower returns ctx.Err() while the leader
// keeps running fn.
func (g *Group[K, V]) Do(ctx context.Context, key K, fn func() (V, error)) (V, error) {
	g.mu.Lock()
	if g.m == nil {
		g.m = make(map[K]*call[V])
		g.kept = make(map[K]V)
	}
	if v, ok := g.kept[key]; ok {
		g.mu.Unlock()
		return v, nil
	}
	if c, ok := g.m[key]; ok {
		done := c.done
		g.mu.Unlock()

		select {
		case <-done:
			return c.val, c.err
		case <-ctx.Done():
			var zero V
			return zero, ctx.Err()
		}
	}

	// We are the leader for this key.
	c := &call[V]{done: make(chan struct{})}
	g.m[key] = c
	g.mu.Unlock()

	v, err := fn()

	g.mu.Lock()
	c.val, c.err = v, err
	if err == nil {
		g.kept[key] = v
	}
	delete(g.m, key)
	g.mu.Unlock()
	close(c.done)

	return v, err
}

// Forget drops the kept value for key.
func (g *Group[K, V]) Forget(key K) {
	g.mu.Lock()
	delete(g.kept, key)
	g.mu.Unlock()
}

package flight

import (
	"context"
	"errors"
	"sync"
)

// Group coordinates per-key report computations with cancel-on-supersede
// semantics: a compute started while an older flight for the same key is in
// progress cancels the older flight's context. Waiters of the canceled
// flight observe context.Canceled and retry once against the fresh flight,
// so concurrent identical computes end up sharing the newest result.
type Group[T any] struct {
	mu         sync.Mutex
	flights    map[string]*flight[T]
	superseded func(key string) // optional hook, used for metrics
}

type flight[T any] struct {
	cancel context.CancelFunc
	done   chan struct{}
	val    T
	err    error
}

// NewGroup creates a Group. superseded, if non-nil, is called each time an
// in-progress flight is canceled by a newer one.
func NewGroup[T any](superseded func(key string)) *Group[T] {
	return &Group[T]{
		flights:    make(map[string]*flight[T]),
		superseded: superseded,
	}
}

// Do runs fn under key. Any in-progress flight for the same key is canceled
// first; fn observes cancellation through its context argument.
func (g *Group[T]) Do(ctx context.Context, key string, fn func(ctx context.Context) (T, error)) (T, error) {
	f := g.start(ctx, key, fn)

	select {
	case <-f.done:
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}

	if !errors.Is(f.err, context.Canceled) {
		return f.val, f.err
	}

	// Superseded: retry once against whatever flight is now current.
	g.mu.Lock()
	cur, ok := g.flights[key]
	g.mu.Unlock()
	if ok {
		select {
		case <-cur.done:
			return cur.val, cur.err
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}

	// The fresh flight finished and cleaned up before we looked; run alone.
	return fn(ctx)
}

// Cancel aborts any in-progress flight for key without starting a new one.
// Used when a mutation invalidates the data a flight is computing over.
func (g *Group[T]) Cancel(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if cur, ok := g.flights[key]; ok {
		cur.cancel()
	}
}

func (g *Group[T]) start(ctx context.Context, key string, fn func(ctx context.Context) (T, error)) *flight[T] {
	g.mu.Lock()
	defer g.mu.Unlock()

	if cur, ok := g.flights[key]; ok {
		cur.cancel()
		if g.superseded != nil {
			g.superseded(key)
		}
	}

	fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	f := &flight[T]{cancel: cancel, done: make(chan struct{})}
	g.flights[key] = f

	go func() {
		defer cancel()
		f.val, f.err = fn(fctx)
		if f.err == nil && fctx.Err() != nil {
			f.err = fctx.Err()
		}

		g.mu.Lock()
		if g.flights[key] == f {
			delete(g.flights, key)
		}
		g.mu.Unlock()

		close(f.done)
	}()

	return f
}

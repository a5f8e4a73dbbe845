package flight

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDo_SingleFlight(t *testing.T) {
	g := NewGroup[int](nil)

	v, err := g.Do(context.Background(), "k", func(ctx context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestDo_ErrorPropagates(t *testing.T) {
	g := NewGroup[int](nil)
	boom := errors.New("boom")

	_, err := g.Do(context.Background(), "k", func(ctx context.Context) (int, error) {
		return 0, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestDo_NewComputeSupersedesOlder(t *testing.T) {
	var supersededKeys []string
	g := NewGroup[string](func(key string) { supersededKeys = append(supersededKeys, key) })

	firstStarted := make(chan struct{})
	secondStarted := make(chan struct{})
	release := make(chan struct{})

	var wg sync.WaitGroup
	wg.Add(1)
	var firstVal string
	var firstErr error
	go func() {
		defer wg.Done()
		firstVal, firstErr = g.Do(context.Background(), "strat:12:340:coupon", func(ctx context.Context) (string, error) {
			close(firstStarted)
			<-ctx.Done()
			return "", ctx.Err()
		})
	}()

	<-firstStarted

	// Second compute for the same key cancels the first flight; the first
	// caller retries against this fresh flight and shares its result.
	var wg2 sync.WaitGroup
	wg2.Add(1)
	var secondVal string
	var secondErr error
	go func() {
		defer wg2.Done()
		secondVal, secondErr = g.Do(context.Background(), "strat:12:340:coupon", func(ctx context.Context) (string, error) {
			close(secondStarted)
			<-release
			return "fresh", nil
		})
	}()

	// The fresh flight is registered (and the old one canceled) before its
	// fn runs, so once it has started the first waiter can only join it.
	<-secondStarted
	close(release)

	wg.Wait()
	wg2.Wait()

	require.NoError(t, secondErr)
	assert.Equal(t, "fresh", secondVal)
	require.NoError(t, firstErr)
	assert.Equal(t, "fresh", firstVal, "superseded waiter must land on the fresh flight's result")
	assert.Equal(t, []string{"strat:12:340:coupon"}, supersededKeys)
}

func TestDo_CallerContextCancel(t *testing.T) {
	g := NewGroup[int](nil)

	ctx, cancel := context.WithCancel(context.Background())
	started := make(chan struct{})
	go func() {
		<-started
		cancel()
	}()

	_, err := g.Do(ctx, "k", func(fctx context.Context) (int, error) {
		close(started)
		<-fctx.Done() // flight context is detached from the caller's
		return 0, fctx.Err()
	})
	assert.ErrorIs(t, err, context.Canceled)

	// Release the detached flight goroutine.
	g.Cancel("k")
}

func TestCancel_AbortsInProgressFlight(t *testing.T) {
	g := NewGroup[int](nil)

	started := make(chan struct{})
	var once sync.Once
	var reruns atomic.Int32

	go func() {
		<-started
		g.Cancel("k")
	}()

	v, err := g.Do(context.Background(), "k", func(ctx context.Context) (int, error) {
		once.Do(func() { close(started) })
		if reruns.Add(1) == 1 {
			<-ctx.Done()
			return 0, ctx.Err()
		}
		return 7, nil
	})

	// The canceled waiter retried once; no fresh flight existed so fn reran.
	require.NoError(t, err)
	assert.Equal(t, 7, v)
	assert.Equal(t, int32(2), reruns.Load())
}

func TestCancel_NoFlightIsNoop(t *testing.T) {
	g := NewGroup[int](nil)
	g.Cancel("missing") // must not panic
}

func TestDo_FlightsAreKeyScoped(t *testing.T) {
	g := NewGroup[int](nil)

	aStarted := make(chan struct{})
	aRelease := make(chan struct{})

	done := make(chan struct{})
	go func() {
		defer close(done)
		v, err := g.Do(context.Background(), "a", func(ctx context.Context) (int, error) {
			close(aStarted)
			select {
			case <-ctx.Done():
				return 0, ctx.Err()
			case <-aRelease:
				return 1, nil
			}
		})
		assert.NoError(t, err)
		assert.Equal(t, 1, v)
	}()

	<-aStarted

	// A compute on a different key must not supersede key "a".
	v, err := g.Do(context.Background(), "b", func(ctx context.Context) (int, error) {
		return 2, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 2, v)

	close(aRelease)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("flight a did not complete")
	}
}

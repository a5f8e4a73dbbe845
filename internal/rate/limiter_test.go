package rate

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLimiter_Allow(t *testing.T) {
	lim := New(Config{
		RequestsPerSecond: 10,
		Burst:             5,
		Cooldown:          100 * time.Millisecond,
	})

	// Up to burst count goes through immediately.
	allowed := 0
	for i := 0; i < 10; i++ {
		if lim.Allow() {
			allowed++
		}
	}
	assert.Equal(t, 5, allowed)
}

func TestLimiter_Refill(t *testing.T) {
	lim := New(Config{
		RequestsPerSecond: 100, // refills fast
		Burst:             2,
	})

	for lim.Allow() {
	}

	time.Sleep(50 * time.Millisecond)
	assert.True(t, lim.Allow(), "token should be available after refill period")
}

func TestLimiter_BurstCap(t *testing.T) {
	lim := New(Config{
		RequestsPerSecond: 1000,
		Burst:             3,
	})

	// Tokens never accumulate past the burst, no matter how long idle.
	time.Sleep(100 * time.Millisecond)

	allowed := 0
	for i := 0; i < 10; i++ {
		if lim.Allow() {
			allowed++
		}
	}
	assert.LessOrEqual(t, allowed, 3)
}

func TestLimiter_Wait_Success(t *testing.T) {
	lim := New(Config{
		RequestsPerSecond: 100,
		Burst:             1,
	})
	lim.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	start := time.Now()
	require.NoError(t, lim.Wait(ctx))
	assert.Less(t, time.Since(start), 200*time.Millisecond)
}

func TestLimiter_Wait_ContextCanceled(t *testing.T) {
	lim := New(Config{
		RequestsPerSecond: 1,
		Burst:             1,
	})
	lim.Allow()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.Error(t, lim.Wait(ctx))
}

func TestLimiter_ConcurrentAccess(t *testing.T) {
	lim := New(Config{
		RequestsPerSecond: 1000,
		Burst:             100,
	})

	var wg sync.WaitGroup
	var mu sync.Mutex
	total := 0

	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if lim.Allow() {
				mu.Lock()
				total++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.NotZero(t, total)
	assert.LessOrEqual(t, total, 100)
}

func TestManager_GetLimiter(t *testing.T) {
	mgr := NewManager(Config{
		RequestsPerSecond: 10,
		Burst:             5,
	})

	l1 := mgr.GetLimiter("clearval")
	l2 := mgr.GetLimiter("clearval")
	l3 := mgr.GetLimiter("bpo-direct")

	assert.Same(t, l1, l2, "same vendor key should return the same limiter")
	assert.NotSame(t, l1, l3, "different vendor keys get independent limiters")
}

func TestManager_Wait(t *testing.T) {
	mgr := NewManager(Config{
		RequestsPerSecond: 100,
		Burst:             5,
	})

	require.NoError(t, mgr.Wait(context.Background(), "clearval"))
}

func TestManager_ConcurrentGetLimiter(t *testing.T) {
	mgr := NewManager(Config{
		RequestsPerSecond: 10,
		Burst:             5,
	})

	var wg sync.WaitGroup
	limiters := make([]*Limiter, 20)

	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			limiters[idx] = mgr.GetLimiter("clearval")
		}(i)
	}
	wg.Wait()

	for i := 1; i < 20; i++ {
		require.Same(t, limiters[0], limiters[i])
	}
}

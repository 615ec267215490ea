package lease

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_ExclusivePerKey(t *testing.T) {
	r := NewRegistry()
	ctx := context.Background()

	var inside, maxInside int32
	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := r.Acquire(ctx, "ev-1")
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt32(&inside, -1)
			release()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
	assert.Equal(t, 0, r.tracked())
}

func TestRegistry_KeysAreIndependent(t *testing.T) {
	r := NewRegistry()
	releaseA, err := r.Acquire(context.Background(), "ev-a")
	require.NoError(t, err)
	defer releaseA()

	releaseB, ok := r.TryAcquire("ev-b")
	require.True(t, ok)
	releaseB()
}

func TestRegistry_TryAcquire(t *testing.T) {
	r := NewRegistry()
	release, ok := r.TryAcquire("ev-1")
	require.True(t, ok)

	_, ok = r.TryAcquire("ev-1")
	assert.False(t, ok)

	release()
	release() // second call is a no-op

	again, ok := r.TryAcquire("ev-1")
	require.True(t, ok)
	again()
	assert.Equal(t, 0, r.tracked())
}

func TestRegistry_AcquireHonoursContext(t *testing.T) {
	r := NewRegistry()
	release, err := r.Acquire(context.Background(), "ev-1")
	require.NoError(t, err)
	defer release()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = r.Acquire(ctx, "ev-1")
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, 1, r.tracked())
}

func (r *Registry) tracked() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.slots)
}

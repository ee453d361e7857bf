package queue

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestQueueProcessesInFIFOOrder(t *testing.T) {
	q := New[int](100, zap.NewNop())

	var mu sync.Mutex
	var seen []int
	q.SetHandler(context.Background(), func(ctx context.Context, item int) error {
		mu.Lock()
		seen = append(seen, item)
		mu.Unlock()
		return nil
	})

	for i := 0; i < 50; i++ {
		require.NoError(t, q.Enqueue(i))
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 50
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for i, v := range seen {
		assert.Equal(t, i, v)
	}
}

func TestQueueNeverRunsHandlerConcurrently(t *testing.T) {
	q := New[int](100, zap.NewNop())

	var inFlight atomic.Int32
	var maxInFlight atomic.Int32
	var processed atomic.Int32

	q.SetHandler(context.Background(), func(ctx context.Context, item int) error {
		current := inFlight.Add(1)
		if current > maxInFlight.Load() {
			maxInFlight.Store(current)
		}
		time.Sleep(time.Millisecond)
		inFlight.Add(-1)
		processed.Add(1)
		return nil
	})

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(base int) {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				_ = q.Enqueue(base*10 + i)
			}
		}(g)
	}
	wg.Wait()

	require.Eventually(t, func() bool {
		return processed.Load() > 0 && q.Len() == 0 && inFlight.Load() == 0
	}, 5*time.Second, 5*time.Millisecond)

	assert.Equal(t, int32(1), maxInFlight.Load(), "handler must never be re-entered")
}

func TestQueueRejectsWhenFull(t *testing.T) {
	q := New[int](3, zap.NewNop())

	// No handler installed yet, so nothing drains.
	require.NoError(t, q.Enqueue(1))
	require.NoError(t, q.Enqueue(2))
	require.NoError(t, q.Enqueue(3))

	err := q.Enqueue(4)
	require.ErrorIs(t, err, ErrQueueFull)
	assert.Equal(t, 3, q.Len())

	// Buffered items survive the rejection and drain in order once a
	// handler shows up.
	var mu sync.Mutex
	var seen []int
	q.SetHandler(context.Background(), func(ctx context.Context, item int) error {
		mu.Lock()
		seen = append(seen, item)
		mu.Unlock()
		return nil
	})

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 3
	}, time.Second, 5*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []int{1, 2, 3}, seen)
}

func TestQueueHandlerErrorDoesNotStopDrain(t *testing.T) {
	q := New[int](10, zap.NewNop())

	var mu sync.Mutex
	var seen []int
	q.SetHandler(context.Background(), func(ctx context.Context, item int) error {
		mu.Lock()
		seen = append(seen, item)
		mu.Unlock()
		if item%2 == 0 {
			return errors.New("sink unavailable")
		}
		return nil
	})

	for i := 0; i < 6; i++ {
		require.NoError(t, q.Enqueue(i))
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(seen) == 6
	}, time.Second, 5*time.Millisecond)

	assert.Equal(t, 0, q.Len())
}

func TestQueueGoesIdleAndReArms(t *testing.T) {
	q := New[int](10, zap.NewNop())

	var processed atomic.Int32
	q.SetHandler(context.Background(), func(ctx context.Context, item int) error {
		processed.Add(1)
		return nil
	})

	require.NoError(t, q.Enqueue(1))
	require.Eventually(t, func() bool { return processed.Load() == 1 }, time.Second, time.Millisecond)

	// Queue drained and idle; a later enqueue must start a fresh drain.
	require.NoError(t, q.Enqueue(2))
	require.Eventually(t, func() bool { return processed.Load() == 2 }, time.Second, time.Millisecond)
}

// Package queue implements the bounded, single-consumer FIFO that decouples
// ingestion from the persistence sink.
package queue

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// DefaultCapacity bounds the buffer when no explicit capacity is given.
const DefaultCapacity = 100

// ErrQueueFull is returned by Enqueue when the buffer is at capacity. The
// item is rejected, never blocked on.
var ErrQueueFull = errors.New("queue: capacity exceeded")

// Handler consumes one buffered item. A returned error discards the item;
// there is no retry and no dead-letter.
type Handler[T any] func(ctx context.Context, item T) error

// Queue is a bounded FIFO with a single asynchronous consumer. At most one
// handler invocation is in flight per queue instance; items arriving while
// the handler runs are buffered. The drain loop re-arms itself after every
// invocation and goes idle once the buffer empties.
type Queue[T any] struct {
	mu       sync.Mutex
	items    []T
	capacity int
	draining bool
	handler  Handler[T]
	ctx      context.Context
	logger   *zap.Logger
}

// New builds an idle queue with the given capacity.
func New[T any](capacity int, logger *zap.Logger) *Queue[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Queue[T]{
		capacity: capacity,
		ctx:      context.Background(),
		logger:   logger,
	}
}

// SetHandler installs the single consumer and binds its lifetime to ctx.
// If items were buffered before a handler existed, draining starts now.
func (q *Queue[T]) SetHandler(ctx context.Context, handler Handler[T]) {
	q.mu.Lock()
	q.handler = handler
	if ctx != nil {
		q.ctx = ctx
	}
	start := !q.draining && len(q.items) > 0 && q.handler != nil
	if start {
		q.draining = true
	}
	q.mu.Unlock()

	if start {
		go q.drain()
	}
}

// Enqueue appends an item to the buffer. A full buffer rejects the item with
// ErrQueueFull without touching already-buffered items.
func (q *Queue[T]) Enqueue(item T) error {
	q.mu.Lock()
	if len(q.items) >= q.capacity {
		q.mu.Unlock()
		return ErrQueueFull
	}
	q.items = append(q.items, item)

	start := !q.draining && q.handler != nil
	if start {
		q.draining = true
	}
	q.mu.Unlock()

	if start {
		go q.drain()
	}
	return nil
}

// Len reports the number of buffered items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// drain pops and processes items until the buffer empties. Handler errors
// are logged and the failed item discarded; the loop keeps going.
func (q *Queue[T]) drain() {
	for {
		q.mu.Lock()
		if len(q.items) == 0 {
			q.draining = false
			q.mu.Unlock()
			return
		}
		item := q.items[0]
		q.items = q.items[1:]
		handler := q.handler
		ctx := q.ctx
		q.mu.Unlock()

		if err := handler(ctx, item); err != nil {
			q.logger.Error("queue handler failed, discarding item", zap.Error(err))
		}
	}
}

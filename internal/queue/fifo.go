// Package queue holds the bounded, non-blocking queues the networked
// backend exposes to remote workers: a plain FIFO for results and a
// leasing job queue that ends with a poison pill.
package queue

import (
	"sync"

	"phredavg/internal/errors"
)

var (
	// ErrFull is returned by a put on a queue at capacity.
	ErrFull = errors.New("queue full")
	// ErrClosed is returned by a put after the queue was closed.
	ErrClosed = errors.New("queue closed")
)

// FIFO is a bounded first-in-first-out queue. Neither TryPut nor TryGet
// ever blocks.
type FIFO[T any] struct {
	mu    sync.Mutex
	items []T
	cap   int
}

// NewFIFO returns a FIFO holding at most capacity items (<=0 = unbounded).
func NewFIFO[T any](capacity int) *FIFO[T] {
	return &FIFO[T]{cap: capacity}
}

// TryPut appends v, or returns ErrFull.
func (q *FIFO[T]) TryPut(v T) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.cap > 0 && len(q.items) >= q.cap {
		return ErrFull
	}
	q.items = append(q.items, v)
	return nil
}

// TryGet removes and returns the head item; ok is false when empty.
func (q *FIFO[T]) TryGet() (v T, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return v, false
	}
	v = q.items[0]
	var zero T
	q.items[0] = zero
	q.items = q.items[1:]
	return v, true
}

// Len returns the number of queued items.
func (q *FIFO[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Package queue provides the bounded write queues used by the storage
// backends between the hook goroutine and their flush loops.
package queue

import (
	"sync"
)

// Queue is a generic thread-safe FIFO. A positive limit bounds its length;
// pushing past the limit discards the oldest items.
type Queue[T any] struct {
	mu      sync.Mutex
	items   []T
	limit   int
	dropped uint64
}

// New creates a new empty queue. limit <= 0 means unbounded.
func New[T any](limit int) *Queue[T] {
	return &Queue[T]{
		items: make([]T, 0),
		limit: limit,
	}
}

// Push appends items and returns how many old items were discarded to make
// room.
func (q *Queue[T]) Push(items ...T) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, items...)
	if q.limit <= 0 || len(q.items) <= q.limit {
		return 0
	}
	over := len(q.items) - q.limit
	q.items = append(q.items[:0], q.items[over:]...)
	q.dropped += uint64(over)
	return over
}

// Empty returns true if the queue has no items.
func (q *Queue[T]) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) == 0
}

// Len returns the number of items in the queue.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Dropped returns the total number of items discarded by Push.
func (q *Queue[T]) Dropped() uint64 {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.dropped
}

// Drain returns all items in order and clears the queue.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	result := q.items
	q.items = make([]T, 0, cap(q.items))
	return result
}

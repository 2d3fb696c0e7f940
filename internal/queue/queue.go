// Package queue provides the bounded buffer that sits between the tick loop and storage writers.
package queue

import (
	"sync"
	"sync/atomic"
)

// Queue is a thread-safe FIFO with an optional capacity.
// When full, Push discards the oldest items so a stalled writer never blocks the tick loop.
type Queue[T any] struct {
	mu       sync.Mutex
	items    []T
	capacity int
	dropped  atomic.Uint64
}

// New creates a queue holding at most capacity items. capacity <= 0 means unbounded.
func New[T any](capacity int) *Queue[T] {
	return &Queue[T]{
		items:    make([]T, 0),
		capacity: capacity,
	}
}

// Push appends items, evicting the oldest ones if the queue overflows.
func (q *Queue[T]) Push(items ...T) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, items...)
	q.trim()
}

// Requeue puts items back at the front, e.g. after a failed write.
// Items that no longer fit are evicted from the front.
func (q *Queue[T]) Requeue(items ...T) {
	if len(items) == 0 {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	merged := make([]T, 0, len(items)+len(q.items))
	merged = append(merged, items...)
	q.items = append(merged, q.items...)
	q.trim()
}

// trim must be called with mu held.
func (q *Queue[T]) trim() {
	if q.capacity <= 0 || len(q.items) <= q.capacity {
		return
	}
	over := len(q.items) - q.capacity
	q.dropped.Add(uint64(over))
	q.items = append(q.items[:0:0], q.items[over:]...)
}

// Drain removes and returns up to max items from the front. max <= 0 drains everything.
func (q *Queue[T]) Drain(max int) []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		return nil
	}
	n := len(q.items)
	if max > 0 && max < n {
		n = max
	}
	out := make([]T, n)
	copy(out, q.items[:n])
	q.items = append(q.items[:0:0], q.items[n:]...)
	return out
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

// Dropped returns how many items were evicted because the queue was full.
func (q *Queue[T]) Dropped() uint64 {
	return q.dropped.Load()
}

// Package queue provides the command queue between the engine's callers and
// its frame goroutine.
package queue

import "sync"

// Queue is a FIFO safe for concurrent Push. It double-buffers: Drain hands
// out the filled slice and reuses the one returned by the previous Drain, so
// a steady frame loop allocates nothing. Only one goroutine may Drain, and it
// must be done with the returned slice before draining again.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
	spare []T
	peak  int
}

// New returns an empty queue.
func New[T any]() *Queue[T] {
	return &Queue[T]{}
}

// Push appends items in order.
func (q *Queue[T]) Push(items ...T) {
	q.mu.Lock()
	q.items = append(q.items, items...)
	if len(q.items) > q.peak {
		q.peak = len(q.items)
	}
	q.mu.Unlock()
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Peak returns the largest length seen since the queue was created.
func (q *Queue[T]) Peak() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.peak
}

// Drain removes and returns every queued item.
func (q *Queue[T]) Drain() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := q.items
	clear(q.spare)
	q.items = q.spare[:0]
	q.spare = out
	return out
}

// Drop removes the items match selects, keeps the rest in order, and
// returns how many went.
func (q *Queue[T]) Drop(match func(T) bool) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.items)
	kept := q.items[:0]
	for _, it := range q.items {
		if !match(it) {
			kept = append(kept, it)
		}
	}
	clear(q.items[len(kept):n])
	q.items = kept
	return n - len(kept)
}

// Clear discards every queued item.
func (q *Queue[T]) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	clear(q.items)
	q.items = q.items[:0]
}

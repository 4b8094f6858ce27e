// Package queue holds write queues shared by the database-backed storage.
package queue

import (
	"sync"
)

// Queue is a thread-safe FIFO keyed queue. Pushing an item whose key is
// already pending replaces the pending item in place, so a burst of saves
// for one scene collapses into a single write of the latest snapshot.
type Queue[K comparable, T any] struct {
	mu    sync.Mutex
	keys  []K
	items map[K]T
}

// New creates a new empty queue.
func New[K comparable, T any]() *Queue[K, T] {
	return &Queue[K, T]{
		keys:  make([]K, 0),
		items: make(map[K]T),
	}
}

// Push enqueues item under key. It reports whether an older pending item
// was superseded.
func (q *Queue[K, T]) Push(key K, item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	_, replaced := q.items[key]
	if !replaced {
		q.keys = append(q.keys, key)
	}
	q.items[key] = item
	return replaced
}

// Pop removes and returns the oldest item.
func (q *Queue[K, T]) Pop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.keys) == 0 {
		var zero T
		return zero, false
	}
	key := q.keys[0]
	q.keys = q.keys[1:]
	item := q.items[key]
	delete(q.items, key)
	return item, true
}

// Get returns the pending item for key without dequeuing it.
func (q *Queue[K, T]) Get(key K) (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	item, ok := q.items[key]
	return item, ok
}

// Remove drops the pending item for key.
func (q *Queue[K, T]) Remove(key K) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if _, ok := q.items[key]; !ok {
		return false
	}
	delete(q.items, key)
	for i, k := range q.keys {
		if k == key {
			q.keys = append(q.keys[:i], q.keys[i+1:]...)
			break
		}
	}
	return true
}

// Keys returns the pending keys in queue order.
func (q *Queue[K, T]) Keys() []K {
	q.mu.Lock()
	defer q.mu.Unlock()
	return append([]K(nil), q.keys...)
}

// Empty returns true if the queue has no items.
func (q *Queue[K, T]) Empty() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.keys) == 0
}

// Len returns the number of items in the queue.
func (q *Queue[K, T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.keys)
}

// Clear removes all items from the queue.
func (q *Queue[K, T]) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.keys = q.keys[:0]
	q.items = make(map[K]T)
}

// GetAndEmpty returns all items in queue order and clears the queue.
func (q *Queue[K, T]) GetAndEmpty() []T {
	q.mu.Lock()
	defer q.mu.Unlock()
	result := make([]T, len(q.keys))
	for i, k := range q.keys {
		result[i] = q.items[k]
	}
	q.keys = make([]K, 0, cap(q.keys))
	q.items = make(map[K]T)
	return result
}

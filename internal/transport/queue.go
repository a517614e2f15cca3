package transport

import "sync"

// Queue is an unbounded FIFO safe for one producer and any number of
// consumers.  Push never blocks, so the reader goroutine can never be
// stalled by a slow tick loop; TryPop never blocks, so the tick loop
// can drain it once per frame.
type Queue[T any] struct {
	mu    sync.Mutex
	items []T
}

// Push appends v to the tail.
func (q *Queue[T]) Push(v T) {
	q.mu.Lock()
	q.items = append(q.items, v)
	q.mu.Unlock()
}

// TryPop removes and returns the head, or reports false when empty.
func (q *Queue[T]) TryPop() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	v := q.items[0]
	q.items[0] = zero
	q.items = q.items[1:]
	if len(q.items) == 0 {
		q.items = nil
	}
	return v, true
}

// Len returns the number of queued items.
func (q *Queue[T]) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

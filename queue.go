package tombflow

import "sync"

// queue is the FIFO input buffer of a single block. The owning block is the
// only consumer; producers are the public Post and upstream links. A limit
// of 0 means unbounded. Once closed no put succeeds, but buffered items can
// still be taken; fail additionally drops whatever is buffered.
type queue[T any] struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []T
	limit  int
	closed bool
}

func newQueue[T any](limit int) *queue[T] {
	q := &queue[T]{limit: limit}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// put appends item without blocking. Returns false when the queue is closed
// or at its bounded capacity.
func (q *queue[T]) put(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed || (q.limit > 0 && len(q.items) >= q.limit) {
		return false
	}
	q.items = append(q.items, item)
	q.cond.Broadcast()
	return true
}

// putWait appends item, waiting for capacity if the queue is bounded and
// full. Returns false once the queue is closed.
func (q *queue[T]) putWait(item T) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for !q.closed && q.limit > 0 && len(q.items) >= q.limit {
		q.cond.Wait()
	}
	if q.closed {
		return false
	}
	q.items = append(q.items, item)
	q.cond.Broadcast()
	return true
}

// take removes and returns the oldest item, waiting while the queue is open
// and empty. Returns false once the queue is closed and drained.
func (q *queue[T]) take() (T, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		var zero T
		return zero, false
	}
	item := q.items[0]
	q.items[0] = *new(T)
	q.items = q.items[1:]
	q.cond.Broadcast()
	return item, true
}

// close stops further puts. Already buffered items remain takeable.
func (q *queue[T]) close() {
	q.mu.Lock()
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
}

// fail closes the queue and drops everything still buffered, returning the
// number of dropped items.
func (q *queue[T]) fail() int {
	q.mu.Lock()
	n := len(q.items)
	q.items = nil
	q.closed = true
	q.cond.Broadcast()
	q.mu.Unlock()
	return n
}

func (q *queue[T]) len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

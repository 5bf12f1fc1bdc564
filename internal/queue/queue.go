package queue

import "container/heap"

// Priority is a min-priority queue. Items with equal priority pop in insertion order.
// It is not safe for concurrent use.
type Priority[T any] struct {
	h   entries[T]
	seq uint64
}

type entry[T any] struct {
	item     T
	priority int
	seq      uint64
}

type entries[T any] []entry[T]

func (e entries[T]) Len() int { return len(e) }
func (e entries[T]) Less(i, j int) bool {
	if e[i].priority != e[j].priority {
		return e[i].priority < e[j].priority
	}
	return e[i].seq < e[j].seq
}
func (e entries[T]) Swap(i, j int) { e[i], e[j] = e[j], e[i] }
func (e *entries[T]) Push(x any)   { *e = append(*e, x.(entry[T])) }
func (e *entries[T]) Pop() any {
	old := *e
	n := len(old)
	it := old[n-1]
	*e = old[:n-1]
	return it
}

// NewPriority creates an empty queue.
func NewPriority[T any]() *Priority[T] {
	return &Priority[T]{}
}

// Push adds item with the given priority. Lower values pop first.
func (q *Priority[T]) Push(item T, priority int) {
	heap.Push(&q.h, entry[T]{item: item, priority: priority, seq: q.seq})
	q.seq++
}

// Pop removes the item with the lowest priority. ok is false when the queue is empty.
func (q *Priority[T]) Pop() (item T, priority int, ok bool) {
	if len(q.h) == 0 {
		return item, 0, false
	}
	e := heap.Pop(&q.h).(entry[T])
	return e.item, e.priority, true
}

// Empty returns true if the queue has no items.
func (q *Priority[T]) Empty() bool {
	return len(q.h) == 0
}

// Len returns the number of items in the queue.
func (q *Priority[T]) Len() int {
	return len(q.h)
}

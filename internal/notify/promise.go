package notify

import "sync"

// Promise holds a value that becomes available once.
type Promise[T any] struct {
	mu        sync.Mutex
	fulfilled bool
	value     T
	waiting   []func(T)
}

// NewPromise creates an unfulfilled promise.
func NewPromise[T any]() *Promise[T] {
	return &Promise[T]{}
}

// Fulfill stores v and runs the pending callbacks in registration order.
// Only the first call has an effect; it reports whether v was accepted.
func (p *Promise[T]) Fulfill(v T) bool {
	p.mu.Lock()
	if p.fulfilled {
		p.mu.Unlock()
		return false
	}
	p.fulfilled = true
	p.value = v
	waiting := p.waiting
	p.waiting = nil
	p.mu.Unlock()

	for _, fn := range waiting {
		fn(v)
	}
	return true
}

// Then runs fn with the value, immediately if the promise is already fulfilled.
func (p *Promise[T]) Then(fn func(T)) {
	p.mu.Lock()
	if p.fulfilled {
		v := p.value
		p.mu.Unlock()
		fn(v)
		return
	}
	p.waiting = append(p.waiting, fn)
	p.mu.Unlock()
}

// Value returns the value and whether the promise has been fulfilled.
func (p *Promise[T]) Value() (T, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.value, p.fulfilled
}

// Package notify provides synchronous notification streams and single-delivery promises.
package notify

import "sync"

// Stream delivers pushed values to its subscribers synchronously and in subscription order.
type Stream[T any] struct {
	mu   sync.Mutex
	subs []*Subscription[T]
}

// Subscription is one registered callback. Cancel is safe to call from inside a callback.
type Subscription[T any] struct {
	fn     func(T)
	stream *Stream[T]

	mu        sync.Mutex
	cancelled bool
}

// NewStream creates a stream without subscribers.
func NewStream[T any]() *Stream[T] {
	return &Stream[T]{}
}

// Subscribe registers fn for every value pushed after this call.
func (s *Stream[T]) Subscribe(fn func(T)) *Subscription[T] {
	sub := &Subscription[T]{fn: fn, stream: s}
	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()
	return sub
}

// Forward pushes every value of s into other.
func (s *Stream[T]) Forward(other *Stream[T]) *Subscription[T] {
	return s.Subscribe(other.Push)
}

// Push runs every live subscriber with v before returning.
// Subscribers added during the push see the next value, not this one.
func (s *Stream[T]) Push(v T) {
	s.mu.Lock()
	subs := make([]*Subscription[T], len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, sub := range subs {
		if sub.active() {
			sub.fn(v)
		}
	}
}

// Len returns the number of live subscribers.
func (s *Stream[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

func (s *Stream[T]) remove(sub *Subscription[T]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, other := range s.subs {
		if other == sub {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			return
		}
	}
}

// Cancel stops delivery to this subscription. Cancelling twice is a no-op.
func (sub *Subscription[T]) Cancel() {
	sub.mu.Lock()
	if sub.cancelled {
		sub.mu.Unlock()
		return
	}
	sub.cancelled = true
	sub.mu.Unlock()
	sub.stream.remove(sub)
}

func (sub *Subscription[T]) active() bool {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return !sub.cancelled
}

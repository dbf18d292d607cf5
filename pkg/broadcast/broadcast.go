// Package broadcast is a single-producer fan-out where every subscriber owns
// a bounded buffer. When a buffer is full the oldest value is dropped, so a
// slow subscriber skips events but never blocks the producer.
package broadcast

import (
	"sync"

	"go.uber.org/atomic"
)

type Broadcaster[T any] struct {
	mu       sync.Mutex
	subs     map[*Subscription[T]]struct{}
	capacity int
	closed   bool
}

func New[T any](capacity int) *Broadcaster[T] {
	if capacity < 1 {
		capacity = 1
	}

	return &Broadcaster[T]{
		subs:     make(map[*Subscription[T]]struct{}),
		capacity: capacity,
	}
}

// Subscribe returns a subscription that receives values sent after this call.
// Subscribing to a closed broadcaster yields an already closed subscription.
func (b *Broadcaster[T]) Subscribe() *Subscription[T] {
	s := &Subscription[T]{
		b:       b,
		ch:      make(chan T, b.capacity),
		dropped: atomic.NewUint64(0),
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		close(s.ch)
		return s
	}

	b.subs[s] = struct{}{}
	return s
}

// Send delivers v to every current subscriber and returns how many there were.
func (b *Broadcaster[T]) Send(v T) int {
	b.mu.Lock()
	defer b.mu.Unlock()

	for s := range b.subs {
		s.push(v)
	}

	return len(b.subs)
}

func (b *Broadcaster[T]) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()

	return len(b.subs)
}

// Close ends every subscription. Later sends are no-ops.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}

	b.closed = true
	for s := range b.subs {
		delete(b.subs, s)
		close(s.ch)
	}
}

func (b *Broadcaster[T]) unsubscribe(s *Subscription[T]) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.subs[s]; !ok {
		return
	}

	delete(b.subs, s)
	close(s.ch)
}

type Subscription[T any] struct {
	b       *Broadcaster[T]
	ch      chan T
	dropped *atomic.Uint64
}

// C is closed once the subscription or its broadcaster is closed.
func (s *Subscription[T]) C() <-chan T {
	return s.ch
}

// Dropped counts values this subscriber lost to overflow.
func (s *Subscription[T]) Dropped() uint64 {
	return s.dropped.Load()
}

func (s *Subscription[T]) Close() {
	s.b.unsubscribe(s)
}

// push must be called with the broadcaster lock held, which makes the
// broadcaster the only writer to s.ch.
func (s *Subscription[T]) push(v T) {
	select {
	case s.ch <- v:
		return
	default:
	}

	select {
	case <-s.ch:
		s.dropped.Inc()
	default:
	}

	select {
	case s.ch <- v:
	default:
		s.dropped.Inc()
	}
}

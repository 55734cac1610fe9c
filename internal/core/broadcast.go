package core

import (
	"context"
	"sync"

	"github.com/eapache/queue"
)

// DefaultCapacity is the per-subscriber buffer size of an event channel.
const DefaultCapacity = 10

// Stream is a receive cursor over a sequence of events.
type Stream[T any] interface {
	// Recv blocks until the next event is available. It returns a *LaggedError
	// when events were dropped for this receiver, ErrClosed once the stream
	// is finished, or the context error.
	Recv(ctx context.Context) (T, error)
	// Close releases the stream. It is safe to call more than once.
	Close()
}

// Channel is a bounded broadcast channel. Every published value reaches
// every subscriber that existed at publish time. A subscriber that falls
// more than capacity values behind loses the oldest ones and is told so on
// its next receive.
type Channel[T any] struct {
	mu       sync.Mutex
	capacity int
	subs     map[*Subscription[T]]struct{}
	closed   bool
}

// NewChannel creates a broadcast channel with the given per-subscriber capacity.
func NewChannel[T any](capacity int) *Channel[T] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Channel[T]{
		capacity: capacity,
		subs:     make(map[*Subscription[T]]struct{}),
	}
}

// Publish delivers v to all current subscribers and returns how many were
// reached. It never blocks on a slow subscriber. With no subscribers the
// value is discarded.
func (c *Channel[T]) Publish(v T) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return 0
	}
	for sub := range c.subs {
		sub.push(v, c.capacity)
	}
	return len(c.subs)
}

// Subscribe returns a new cursor that observes values published after this call.
func (c *Channel[T]) Subscribe() *Subscription[T] {
	sub := &Subscription[T]{
		ch:     c,
		buf:    queue.New(),
		notify: make(chan struct{}, 1),
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		sub.done = true
		return sub
	}
	c.subs[sub] = struct{}{}
	return sub
}

// Subscribers reports the number of live subscriptions.
func (c *Channel[T]) Subscribers() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.subs)
}

// Close tears down the publisher side. Subscribers drain what they already
// buffered and then receive ErrClosed.
func (c *Channel[T]) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true
	for sub := range c.subs {
		sub.finish()
		delete(c.subs, sub)
	}
}

func (c *Channel[T]) unsubscribe(sub *Subscription[T]) {
	c.mu.Lock()
	delete(c.subs, sub)
	c.mu.Unlock()
}

// Subscription is one receiver's cursor into a Channel.
type Subscription[T any] struct {
	ch *Channel[T]

	mu      sync.Mutex
	buf     *queue.Queue
	skipped uint64
	// done is set when the publisher side closed; buffered values are still delivered.
	done bool
	// closed is set when the receiver gave up; nothing is delivered anymore.
	closed bool
	notify chan struct{}
}

func (s *Subscription[T]) push(v T, capacity int) {
	s.mu.Lock()
	if s.closed || s.done {
		s.mu.Unlock()
		return
	}
	if s.buf.Length() >= capacity {
		s.buf.Remove()
		s.skipped++
	}
	s.buf.Add(v)
	s.mu.Unlock()

	s.wake()
}

func (s *Subscription[T]) finish() {
	s.mu.Lock()
	s.done = true
	s.mu.Unlock()

	s.wake()
}

func (s *Subscription[T]) wake() {
	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// Recv returns the next value in publish order.
func (s *Subscription[T]) Recv(ctx context.Context) (T, error) {
	var zero T
	for {
		s.mu.Lock()
		switch {
		case s.closed:
			s.mu.Unlock()
			return zero, ErrClosed
		case s.skipped > 0:
			n := s.skipped
			s.skipped = 0
			s.mu.Unlock()
			return zero, &LaggedError{Skipped: n}
		case s.buf.Length() > 0:
			v := s.buf.Remove().(T)
			s.mu.Unlock()
			return v, nil
		case s.done:
			s.mu.Unlock()
			return zero, ErrClosed
		}
		s.mu.Unlock()

		select {
		case <-s.notify:
		case <-ctx.Done():
			return zero, ctx.Err()
		}
	}
}

// Len reports how many values are buffered and not yet received.
func (s *Subscription[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buf.Length()
}

// Close unsubscribes and drops any buffered values.
func (s *Subscription[T]) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.buf = queue.New()
	s.skipped = 0
	s.mu.Unlock()

	s.ch.unsubscribe(s)
	s.wake()
}

// Filter wraps a stream and skips values for which keep returns false.
func Filter[T any](inner Stream[T], keep func(T) bool) Stream[T] {
	return &filtered[T]{inner: inner, keep: keep}
}

type filtered[T any] struct {
	inner Stream[T]
	keep  func(T) bool
}

func (f *filtered[T]) Recv(ctx context.Context) (T, error) {
	for {
		v, err := f.inner.Recv(ctx)
		if err != nil {
			return v, err
		}
		if f.keep(v) {
			return v, nil
		}
	}
}

func (f *filtered[T]) Close() {
	f.inner.Close()
}

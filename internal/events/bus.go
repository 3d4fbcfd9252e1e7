// Package events carries immutable event payloads between the CDP pumps and
// the panes over bounded channels.
package events

import (
	"sync"
	"sync/atomic"
)

// DefaultQueueSize is the per-subscriber buffer used when none is given.
const DefaultQueueSize = 64

// Bus fans a stream of payloads of one kind out to subscribers.
// Publish never blocks: a subscriber whose queue is full misses the event
// and the miss is counted.
type Bus[T any] struct {
	kind      Kind
	queueSize int

	mu     sync.RWMutex
	subs   []*Subscription[T]
	closed bool

	published atomic.Uint64
	dropped   atomic.Uint64
}

// Subscription is one consumer of a Bus.
type Subscription[T any] struct {
	name    string
	ch      chan T
	dropped atomic.Uint64
}

// Metrics is a point-in-time copy of bus counters.
type Metrics struct {
	Kind        Kind
	Published   uint64
	Dropped     uint64
	Subscribers map[string]uint64 // dropped count per subscriber
}

// NewBus creates a bus for one event kind.
func NewBus[T any](kind Kind, queueSize int) *Bus[T] {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Bus[T]{kind: kind, queueSize: queueSize}
}

// Kind returns the event kind this bus carries.
func (b *Bus[T]) Kind() Kind {
	return b.kind
}

// Subscribe registers a consumer with the bus default queue size.
func (b *Bus[T]) Subscribe(name string) *Subscription[T] {
	return b.SubscribeSize(name, b.queueSize)
}

// SubscribeSize registers a consumer with an explicit queue size.
// Subscribing to a closed bus returns a subscription whose channel is already closed.
func (b *Bus[T]) SubscribeSize(name string, size int) *Subscription[T] {
	if size <= 0 {
		size = b.queueSize
	}
	s := &Subscription[T]{name: name, ch: make(chan T, size)}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		close(s.ch)
		return s
	}
	b.subs = append(b.subs, s)
	return s
}

// Unsubscribe removes a consumer and closes its channel.
func (b *Bus[T]) Unsubscribe(s *Subscription[T]) {
	if s == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subs {
		if sub == s {
			b.subs = append(b.subs[:i], b.subs[i+1:]...)
			close(s.ch)
			return
		}
	}
}

// Publish delivers v to every subscriber that has room and returns how many
// received it.
func (b *Bus[T]) Publish(v T) int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		b.dropped.Add(1)
		return 0
	}
	b.published.Add(1)

	delivered := 0
	for _, s := range b.subs {
		select {
		case s.ch <- v:
			delivered++
		default:
			s.dropped.Add(1)
			b.dropped.Add(1)
		}
	}
	return delivered
}

// Close stops accepting events and closes every subscription channel.
// Buffered events stay readable until drained.
func (b *Bus[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for _, s := range b.subs {
		close(s.ch)
	}
	b.subs = nil
}

// Metrics returns a snapshot of the bus counters.
func (b *Bus[T]) Metrics() Metrics {
	b.mu.RLock()
	defer b.mu.RUnlock()
	m := Metrics{
		Kind:        b.kind,
		Published:   b.published.Load(),
		Dropped:     b.dropped.Load(),
		Subscribers: make(map[string]uint64, len(b.subs)),
	}
	for _, s := range b.subs {
		m.Subscribers[s.name] += s.dropped.Load()
	}
	return m
}

// C returns the receive side of the subscription.
func (s *Subscription[T]) C() <-chan T {
	return s.ch
}

// Name returns the subscriber name.
func (s *Subscription[T]) Name() string {
	return s.name
}

// Dropped returns how many events this subscriber missed.
func (s *Subscription[T]) Dropped() uint64 {
	return s.dropped.Load()
}

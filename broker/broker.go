// Package broker implements a generic process-wide broadcast bus.
//
// It generalizes the teacher's non-generic query-event broker (one
// concrete Event type, subscribed to by TUI/web consumers) to any payload
// type. In this repo it carries stream append notifications; connection
// lifecycle events use the server's own channel instead.
package broker

import (
	"errors"
	"sync"
)

// ErrLagged is reported by Subscription.Recv when the bus dropped this
// subscriber for falling behind: its channel filled up and was closed
// rather than silently discarding values, satisfying spec.md's requirement
// that a lagging blocking reader observe a hard failure instead of a
// silent gap.
var ErrLagged = errors.New("broker: subscriber lagged and was disconnected")

// Bus fans out published values of type T to every current subscriber.
// Each subscriber receives its own buffered channel and its own cursor;
// Publish never blocks.
type Bus[T any] struct {
	mu     sync.Mutex
	subs   map[int]*Subscription[T]
	nextID int
	cap    int
}

// Subscription is a single listener's view of the Bus.
type Subscription[T any] struct {
	ch     chan T
	lagged bool
}

// Chan returns the channel to receive published values from. It is closed
// either by Unsubscribe or, if the subscriber fell behind, by the bus
// itself — check Lagged() after the channel closes to tell which.
func (s *Subscription[T]) Chan() <-chan T { return s.ch }

// Lagged reports whether the bus closed this subscription because the
// subscriber could not keep up. Only meaningful after Chan() is closed.
func (s *Subscription[T]) Lagged() bool { return s.lagged }

// Recv waits for the next published value, translating channel closure due
// to lag into ErrLagged. Ordinary closure (Unsubscribe) returns T's zero
// value and a nil error, which Recv does not distinguish from a received
// zero value.
func (s *Subscription[T]) Recv() (v T, err error) {
	v, ok := <-s.ch
	if !ok {
		if s.lagged {
			return v, ErrLagged
		}
		return v, nil
	}
	return v, nil
}

// New creates a Bus whose per-subscriber channels are buffered to capacity.
func New[T any](capacity int) *Bus[T] {
	return &Bus[T]{
		subs: make(map[int]*Subscription[T]),
		cap:  capacity,
	}
}

// Subscribe registers a new listener and returns its Subscription along
// with an unsubscribe function. Callers must subscribe before performing
// any action whose resulting event they need to observe: Publish only
// reaches subscribers registered at the time it is called.
func (b *Bus[T]) Subscribe() (*Subscription[T], func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	sub := &Subscription[T]{ch: make(chan T, b.cap)}
	b.subs[id] = sub

	unsub := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if s, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(s.ch)
		}
	}
	return sub, unsub
}

// Publish broadcasts v to every current subscriber without blocking. A
// subscriber whose channel is full is lagged: its channel is closed and
// removed from the bus instead of silently dropping v.
func (b *Bus[T]) Publish(v T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for id, sub := range b.subs {
		select {
		case sub.ch <- v:
		default:
			sub.lagged = true
			close(sub.ch)
			delete(b.subs, id)
		}
	}
}

// Subscribers reports the current number of active subscribers. Useful for
// tests and diagnostics.
func (b *Bus[T]) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

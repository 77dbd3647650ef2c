// Package storage implements the shared key/value map: a single mapping
// from key to either a string or a stream value, guarded by a
// readers/writer lock, with a per-key expiration scheduler that is
// cancellable independently of command flow (spec.md §4.3).
package storage

import (
	"sync"
	"time"

	"github.com/mickamy/kvstored/broker"
	"github.com/mickamy/kvstored/stream"
)

// Store is the process-wide key/value map. The zero value is not usable;
// construct with New.
type Store struct {
	mu   sync.RWMutex
	data map[string]*entry

	bus *broker.Bus[stream.AppendEvent]

	// now and afterFunc are overridable so expiration and XADD's "*" id
	// resolution can be driven deterministically in tests.
	now       func() time.Time
	afterFunc func(d time.Duration, f func()) *time.Timer
}

// Option configures a Store at construction.
type Option func(*Store)

// WithClock overrides the wall clock Store uses for expiration deadlines
// and XADD's auto-ms resolution.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithAfterFunc overrides the timer constructor expiration scheduling uses.
func WithAfterFunc(afterFunc func(d time.Duration, f func()) *time.Timer) Option {
	return func(s *Store) { s.afterFunc = afterFunc }
}

// New creates an empty Store backed by its own stream append-notification
// bus, sized per spec.md's 100-slot default.
func New(opts ...Option) *Store {
	s := &Store{
		data:      make(map[string]*entry),
		bus:       broker.New[stream.AppendEvent](100),
		now:       time.Now,
		afterFunc: time.AfterFunc,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Bus returns the stream append-notification bus, for XREAD BLOCK.
func (s *Store) Bus() *broker.Bus[stream.AppendEvent] { return s.bus }

// Now returns the Store's configured clock. Exported so the command layer
// resolves EX/PX/EXAT/PXAT deadlines against the same clock the Store uses
// for expiration and XADD's "*" ms, which tests can override.
func (s *Store) Now() time.Time { return s.now() }

// cancelLocked stops e's pending expiration timer, if any. Callers must
// hold s.mu for writing.
func cancelLocked(e *entry) {
	if e != nil && e.cancel != nil {
		e.cancel()
		e.cancel = nil
	}
}

// scheduleExpiration installs at as e's deadline and arms a timer that
// removes key when it fires, unless the entry has since been replaced or
// removed. Callers must hold s.mu for writing and must have already set
// s.data[key] == e. A deadline already past fires on the next tick rather
// than synchronously, keeping all removals on the timer goroutine.
func (s *Store) scheduleExpiration(key string, e *entry, at time.Time) {
	e.deadline = at
	d := at.Sub(s.now())
	if d < 0 {
		d = 0
	}
	timer := s.afterFunc(d, func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		// Identity check: if the entry stored under key is no longer this
		// exact entry, it was replaced/removed and this fire is stale.
		if cur, ok := s.data[key]; ok && cur == e {
			delete(s.data, key)
		}
	})
	e.cancel = func() { timer.Stop() }
}

// Type reports the kind of value stored at key, or KindNone if absent.
func (s *Store) Type(key string) Kind {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.data[key]
	if !ok {
		return KindNone
	}
	return e.kind
}

// Keys returns every key currently stored. Only the "*" pattern is
// supported (spec.md §4.3 and §9's open question on glob patterns).
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.data))
	for k := range s.data {
		out = append(out, k)
	}
	return out
}

// SnapshotEntry is one string key as captured for persistence. Stream
// values are not part of the persisted snapshot format (spec.md §4.2 only
// defines the string value type).
type SnapshotEntry struct {
	Key    string
	Value  []byte
	Expire time.Time // zero if the key has no deadline
}

// Snapshot returns every string key currently stored, for PSYNC's initial
// transfer and any future persistence writer.
func (s *Store) Snapshot() []SnapshotEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]SnapshotEntry, 0, len(s.data))
	for k, e := range s.data {
		if e.kind != KindString {
			continue
		}
		out = append(out, SnapshotEntry{Key: k, Value: e.str, Expire: e.deadline})
	}
	return out
}

// Restore installs entries into an empty Store, scheduling expiration for
// any with a deadline. Used once at replica startup to load the primary's
// PSYNC snapshot before applying its live command stream; entries are
// assumed already filtered to those live at snapshot time (rdb.Read does
// this).
func (s *Store) Restore(entries []SnapshotEntry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, se := range entries {
		e := &entry{kind: KindString, str: se.Value}
		s.data[se.Key] = e
		if !se.Expire.IsZero() {
			s.scheduleExpiration(se.Key, e, se.Expire)
		}
	}
}

// Del removes keys, aborting any pending expiration task for each, and
// returns the number that existed.
func (s *Store) Del(keys ...string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, k := range keys {
		if e, ok := s.data[k]; ok {
			cancelLocked(e)
			delete(s.data, k)
			n++
		}
	}
	return n
}

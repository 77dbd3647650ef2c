package storage

import (
	"context"

	"github.com/mickamy/kvstored/stream"
)

// XAdd appends an entry to the stream at key, creating the stream if
// absent, and publishes the append on the Store's bus for blocking
// XREAD-BLOCK waiters.
func (s *Store) XAdd(key string, ms stream.MsSpec, seq stream.SeqSpec, fields []stream.FieldValue) (stream.ID, error) {
	s.mu.Lock()

	e, exists := s.data[key]
	if exists && e.kind != KindStream {
		s.mu.Unlock()
		return stream.ID{}, ErrWrongType
	}
	if !exists {
		e = &entry{kind: KindStream, strm: stream.New()}
		s.data[key] = e
	}

	nowMs := uint64(s.now().UnixMilli())
	id, err := e.strm.Append(ms, seq, fields, nowMs)
	if err != nil && !exists {
		// Never leave an empty stream behind (invariant 3).
		delete(s.data, key)
	}
	s.mu.Unlock()

	if err != nil {
		return stream.ID{}, err
	}

	s.bus.Publish(stream.AppendEvent{Key: key, Entry: stream.Entry{ID: id, Fields: fields}})
	return id, nil
}

// XRange returns entries in [start, end] (either bound nil for unbounded)
// from the stream at key.
func (s *Store) XRange(key string, start, end *stream.ID) ([]stream.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.data[key]
	if !exists {
		return nil, nil
	}
	if e.kind != KindStream {
		return nil, ErrWrongType
	}
	return e.strm.Range(start, end), nil
}

// XRead resolves one or more stream keys per specs and optionally blocks
// for new entries per mode, per spec.md §4.4.
func (s *Store) XRead(ctx context.Context, specs []stream.ReadSpec, mode stream.BlockMode) (stream.Result, error) {
	return stream.Read(ctx, s.bus, s.streamSnapshot, specs, mode)
}

// streamSnapshot is stream.Read's SnapshotFunc: entries already present
// after the given id, or ErrWrongType if key names a string.
func (s *Store) streamSnapshot(key string, after stream.ID) ([]stream.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.data[key]
	if !exists {
		return nil, nil
	}
	if e.kind != KindStream {
		return nil, ErrWrongType
	}
	return e.strm.After(after), nil
}

// StreamLastID resolves XREAD's "$" id form: the stream's current last
// entry id, or the zero id if key is absent. Must be called before
// subscribing to the bus so no append is missed or double-counted
// (spec.md §4.4).
func (s *Store) StreamLastID(key string) (stream.ID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.data[key]
	if !exists {
		return stream.ID{}, nil
	}
	if e.kind != KindStream {
		return stream.ID{}, ErrWrongType
	}
	return e.strm.Last(), nil
}

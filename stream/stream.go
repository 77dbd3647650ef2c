package stream

import (
	"errors"
)

// ErrInvalidID is returned for an append whose resolved id is (0,0) or does
// not sort strictly after the stream's current last id.
var ErrInvalidID = errors.New("stream: The ID specified in XADD is equal or smaller than the target stream top item")

// FieldValue is one field/value pair carried by an Entry, stored in the
// order the client supplied it.
type FieldValue struct {
	Field []byte
	Value []byte
}

// Entry is one appended record.
type Entry struct {
	ID     ID
	Fields []FieldValue
}

// MsSpec is the ms half of an XADD id argument: either an explicit value or
// "auto" (the wire form "*").
type MsSpec struct {
	Auto  bool
	Value uint64
}

// SeqSpec is the seq half of an XADD id argument.
type SeqSpec struct {
	Auto  bool
	Value uint64
}

// Stream is an ordered, append-only log of Entry records for a single key.
// It is never empty once created (invariant 3 in spec.md); callers create
// one lazily on the first successful XADD and never construct an empty
// Stream that outlives that call.
type Stream struct {
	entries []Entry
}

// New returns an empty Stream. Callers must discard it if the first Append
// fails, since an empty Stream must never be observable (invariant 3).
func New() *Stream {
	return &Stream{}
}

// Last returns the most recently appended entry's id, or the zero ID if
// the stream has no entries yet.
func (s *Stream) Last() ID {
	if len(s.entries) == 0 {
		return ID{}
	}
	return s.entries[len(s.entries)-1].ID
}

// Len reports the number of entries.
func (s *Stream) Len() int { return len(s.entries) }

// resolveID computes the concrete id for an XADD call given the specs and
// the current wall-clock milliseconds (nowMs), following spec.md §4.4.
func (s *Stream) resolveID(ms MsSpec, seq SeqSpec, nowMs uint64) ID {
	msVal := ms.Value
	if ms.Auto {
		msVal = nowMs
	}

	var seqVal uint64
	switch {
	case !seq.Auto:
		seqVal = seq.Value
	case len(s.entries) == 0:
		seqVal = 0
		if msVal == 0 {
			seqVal = 1
		}
	default:
		last := s.Last()
		if last.Ms < msVal {
			seqVal = 0
		} else {
			seqVal = last.Seq + 1
		}
		if msVal == 0 && seqVal == 0 {
			seqVal = 1
		}
	}

	return ID{Ms: msVal, Seq: seqVal}
}

// Append resolves the entry's id per the XADD rules, validates it against
// invariants 3-4, and appends the entry. On success it returns the
// resolved id; on failure the stream is left unchanged.
func (s *Stream) Append(ms MsSpec, seq SeqSpec, fields []FieldValue, nowMs uint64) (ID, error) {
	id := s.resolveID(ms, seq, nowMs)

	if id == Zero {
		return ID{}, ErrInvalidID
	}
	if len(s.entries) > 0 && !s.Last().Less(id) {
		return ID{}, ErrInvalidID
	}

	s.entries = append(s.entries, Entry{ID: id, Fields: fields})
	return id, nil
}

// Range returns entries e with start <= e.ID <= end, in insertion order.
// A nil start/end bound means "unbounded" (the wire "-"/"+" forms).
func (s *Stream) Range(start, end *ID) []Entry {
	var out []Entry
	for _, e := range s.entries {
		if start != nil && e.ID.Less(*start) {
			continue
		}
		if end != nil && end.Less(e.ID) {
			break
		}
		out = append(out, e)
	}
	return out
}

// After returns entries with id strictly greater than after, in insertion
// order — the building block for both non-blocking and blocking XREAD.
func (s *Stream) After(after ID) []Entry {
	var out []Entry
	for _, e := range s.entries {
		if after.Less(e.ID) {
			out = append(out, e)
		}
	}
	return out
}

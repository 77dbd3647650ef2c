package storage

import (
	"time"

	"github.com/mickamy/kvstored/stream"
)

// Kind tags which of the two supported value shapes an entry holds.
type Kind int

const (
	KindNone Kind = iota
	KindString
	KindStream
)

func (k Kind) String() string {
	switch k {
	case KindString:
		return "string"
	case KindStream:
		return "stream"
	default:
		return "none"
	}
}

// WriteMode selects SET's overwrite condition.
type WriteMode int

const (
	WriteNormal   WriteMode = iota // write unconditionally
	WriteIfExists                  // write only if the key currently exists (XX)
	WriteIfAbsent                  // write only if the key does not exist (NX)
)

// ExpireMode selects how a command affects a key's expiration deadline.
type ExpireMode int

const (
	// ExpireUnset is "no expiry option given". GetEx leaves the deadline
	// untouched; Set stores the new value with no deadline, dropping any
	// the previous value had (distinct from ExpireKeep, which carries the
	// prior entry's deadline over).
	ExpireUnset ExpireMode = iota
	// ExpireKeep preserves whatever deadline the existing entry has.
	ExpireKeep
	// ExpireNone removes any deadline.
	ExpireNone
	// ExpireAt installs a new absolute deadline.
	ExpireAt
)

// Expire describes the expiration handling a command requests.
type Expire struct {
	Mode ExpireMode
	// At is the absolute deadline to install when Mode == ExpireAt.
	At time.Time
}

// entry is the internal representation of one stored value. Kept unexported
// so every mutation goes through Store's locking.
type entry struct {
	kind Kind

	str []byte

	strm *stream.Stream

	// deadline is the absolute expiration time, zero if the entry has none.
	// Kept alongside cancel so a replacement entry can carry it forward
	// (SET's KEEPTTL, GETEX with no option).
	deadline time.Time

	// cancel stops the pending expiration timer, if any. It is always
	// called (idempotently) before an entry is replaced or removed.
	cancel func()
}

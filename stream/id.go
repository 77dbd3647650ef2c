// Package stream implements the append-only per-key log data kind: ordered
// entries identified by a strictly increasing (ms, seq) pair, range reads,
// and blocking multi-stream reads driven by a broadcast notification bus.
package stream

import (
	"fmt"
	"strconv"
	"strings"
)

// ID identifies one entry within a stream. Ordering is lexicographic on
// (Ms, Seq). Redis represents Ms as an unsigned 128-bit value; no library
// in the retrieved corpus exports a u128 type and no wall-clock timestamp
// this process will ever see needs more than 64 bits, so Ms is narrowed to
// uint64 here (see DESIGN.md).
type ID struct {
	Ms  uint64
	Seq uint64
}

// Zero is the forbidden identifier (0,0).
var Zero = ID{}

// Less reports whether id sorts strictly before other.
func (id ID) Less(other ID) bool {
	if id.Ms != other.Ms {
		return id.Ms < other.Ms
	}
	return id.Seq < other.Seq
}

// LessOrEqual reports id <= other.
func (id ID) LessOrEqual(other ID) bool {
	return id == other || id.Less(other)
}

func (id ID) String() string {
	return fmt.Sprintf("%d-%d", id.Ms, id.Seq)
}

// ParseID parses a literal "ms-seq" or bare "ms" (seq defaults to 0) id.
func ParseID(s string) (ID, error) {
	ms, seqPart, hasSeq := strings.Cut(s, "-")
	msVal, err := strconv.ParseUint(ms, 10, 64)
	if err != nil {
		return ID{}, fmt.Errorf("stream: invalid id %q: %w", s, err)
	}
	if !hasSeq {
		return ID{Ms: msVal}, nil
	}
	seqVal, err := strconv.ParseUint(seqPart, 10, 64)
	if err != nil {
		return ID{}, fmt.Errorf("stream: invalid id %q: %w", s, err)
	}
	return ID{Ms: msVal, Seq: seqVal}, nil
}

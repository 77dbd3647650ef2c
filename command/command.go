// Package command parses decoded wire Frames into Commands and dispatches
// them against the storage, stream, and replication subsystems (spec.md
// §4.5–§4.6).
package command

import (
	"fmt"
	"strings"

	"github.com/mickamy/kvstored/resp"
)

// Command is a parsed command: the keyword, uppercased, and its remaining
// arguments as raw bytes (binary-safe, since values may not be UTF-8).
type Command struct {
	Name string
	Args [][]byte
}

// ParseFrame converts a decoded Frame into a Command. The command word is
// the frame's first element, case-folded to upper case; any remaining
// elements are its arguments verbatim.
func ParseFrame(frame *resp.Frame) (*Command, error) {
	if len(frame.Elements) == 0 {
		return nil, fmt.Errorf("%w: empty command", ErrSyntax)
	}
	return &Command{
		Name: strings.ToUpper(string(frame.Elements[0])),
		Args: frame.Elements[1:],
	}, nil
}

func (c *Command) arg(i int) (string, bool) {
	if i >= len(c.Args) {
		return "", false
	}
	return string(c.Args[i]), true
}

// Classification is how the dispatcher's caller should treat a command
// after it executes (spec.md §4.6).
type Classification int

const (
	// Other: reply only.
	Other Classification = iota
	// ToReplicate: reply, and the connection handler forwards the raw
	// frame bytes to all attached replicas (Primary only).
	ToReplicate
	// Psync: the initial snapshot reply has been sent and the connection
	// is now owned by the replication subsystem as an attached replica.
	Psync
)

var replicated = map[string]bool{
	"SET": true, "GET": true, "DEL": true, "GETDEL": true, "GETEX": true,
	"INCR": true, "INCRBY": true, "INCRBYFLOAT": true, "DECR": true, "DECRBY": true,
	"XADD": true,
}

// Classify reports how name should be treated once dispatched (spec.md
// §4.6's classification rule).
func Classify(name string) Classification {
	switch {
	case name == "PSYNC":
		return Psync
	case replicated[name]:
		return ToReplicate
	default:
		return Other
	}
}

package stream

import (
	"context"
	"time"

	"github.com/mickamy/kvstored/broker"
)

// AppendEvent is published on the bus whenever an entry is appended to any
// stream, so blocked XREAD callers across connections can observe it.
type AppendEvent struct {
	Key   string
	Entry Entry
}

// ReadSpec names one stream a caller wants entries from (After id).
type ReadSpec struct {
	Key   string
	After ID
}

// BlockMode selects XREAD's waiting behavior.
type BlockMode struct {
	// Blocking is false for a plain, non-blocking XREAD.
	Blocking bool
	// Indefinite is true for a zero/absent timeout (wait forever for the
	// first matching event).
	Indefinite bool
	Timeout    time.Duration
}

// SnapshotFunc returns the entries currently after id for key, or an error
// (e.g. WRONGTYPE). It must not block.
type SnapshotFunc func(key string, after ID) ([]Entry, error)

// Result is keyed by stream key, holding the matching entries in the order
// they were found for that key.
type Result map[string][]Entry

// Read implements XREAD. snapshot supplies the non-blocking "entries after
// id" view; bus is the process-wide append notification bus. Callers that
// pass a blocking BlockMode must have resolved any "$" (latest-at-call-time)
// ReadSpec.After values to concrete ids before calling Read, since the
// resolution of "$" itself must happen before subscribing (spec.md §4.4).
func Read(ctx context.Context, bus *broker.Bus[AppendEvent], snapshot SnapshotFunc, specs []ReadSpec, mode BlockMode) (Result, error) {
	if !mode.Blocking {
		return readSnapshot(snapshot, specs)
	}

	// Subscribe before taking any snapshot or side effect, so no append
	// published between "now" and the subscribe call is missed, and no
	// append before the subscribe call is double-counted against the
	// non-blocking snapshot (blocking XREAD never takes one).
	sub, unsub := bus.Subscribe()
	defer unsub()

	wanted := make(map[string]ID, len(specs))
	for _, s := range specs {
		wanted[s.Key] = s.After
	}

	var timeoutC <-chan time.Time
	if !mode.Indefinite {
		timer := time.NewTimer(mode.Timeout)
		defer timer.Stop()
		timeoutC = timer.C
	}

	result := make(Result)
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()

		case <-timeoutC:
			if len(result) == 0 {
				return nil, nil
			}
			return result, nil

		case ev, ok := <-sub.Chan():
			if !ok {
				if sub.Lagged() {
					return nil, broker.ErrLagged
				}
				return nil, nil
			}
			after, watched := wanted[ev.Key]
			if !watched || !after.Less(ev.Entry.ID) {
				continue
			}
			result[ev.Key] = append(result[ev.Key], ev.Entry)

			if mode.Indefinite {
				return result, nil
			}
		}
	}
}

func readSnapshot(snapshot SnapshotFunc, specs []ReadSpec) (Result, error) {
	result := make(Result)
	matched := false
	for _, s := range specs {
		entries, err := snapshot(s.Key, s.After)
		if err != nil {
			return nil, err
		}
		if len(entries) > 0 {
			result[s.Key] = entries
			matched = true
		}
	}
	if !matched {
		return nil, nil
	}
	return result, nil
}

package command

import (
	"context"
	"fmt"
	"io"

	"github.com/mickamy/kvstored/resp"
)

// discardWriter absorbs the reply a replicated command produces; a replica
// applying its primary's stream has nowhere to send it and no client
// waiting on it.
type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

// ApplyReplicated implements replication.Applier: it runs a frame received
// over the replication link against the local store exactly as dispatching
// it from a client would, discarding the reply.
func (d *Dispatcher) ApplyReplicated(frame *resp.Frame) error {
	cmd, err := ParseFrame(frame)
	if err != nil {
		return fmt.Errorf("command: apply replicated frame: %w", err)
	}

	var w io.Writer = discardWriter{}
	_, err = d.Dispatch(context.Background(), cmd, w, nil)
	return err
}

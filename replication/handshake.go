package replication

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/mickamy/kvstored/resp"
)

// Applier applies a replicated command frame as a local write. A
// command.Dispatcher satisfies this without replication importing
// command, avoiding a cycle between the two packages.
type Applier interface {
	ApplyReplicated(frame *resp.Frame) error
}

// HandshakeResult carries what the Replica side learns from a Primary's
// FULLRESYNC reply and the snapshot transfer that follows it.
type HandshakeResult struct {
	ReplID   string
	Snapshot []byte
}

// Handshake performs the fixed 4-step Replica-side exchange against a
// Primary already connected as conn (spec.md §4.7): PING, REPLCONF
// listening-port, REPLCONF capa psync2, PSYNC ? -1, then reads the
// snapshot frame. On success it stamps n's replid and starting offset.
func (n *Node) Handshake(conn net.Conn, listeningPort string) (*HandshakeResult, error) {
	r := resp.NewReader(conn)

	if err := resp.WriteCommandFrame(conn, "PING"); err != nil {
		return nil, fmt.Errorf("replication: handshake ping: %w", err)
	}
	if err := expectSimpleReply(r, "PONG"); err != nil {
		return nil, err
	}

	if err := resp.WriteCommandFrame(conn, "REPLCONF", "listening-port", listeningPort); err != nil {
		return nil, fmt.Errorf("replication: handshake replconf listening-port: %w", err)
	}
	if err := expectSimpleReply(r, "OK"); err != nil {
		return nil, err
	}

	if err := resp.WriteCommandFrame(conn, "REPLCONF", "capa", "psync2"); err != nil {
		return nil, fmt.Errorf("replication: handshake replconf capa: %w", err)
	}
	if err := expectSimpleReply(r, "OK"); err != nil {
		return nil, err
	}

	if err := resp.WriteCommandFrame(conn, "PSYNC", "?", "-1"); err != nil {
		return nil, fmt.Errorf("replication: handshake psync: %w", err)
	}
	line, err := r.ReadLine()
	if err != nil {
		return nil, fmt.Errorf("replication: handshake psync reply: %w", err)
	}
	replID, offset, err := parseFullResync(line)
	if err != nil {
		return nil, err
	}

	snapshot, err := r.ReadSnapshotFrame()
	if err != nil {
		return nil, fmt.Errorf("replication: handshake snapshot: %w", err)
	}

	n.setReplID(replID)
	n.offset.Store(offset)
	return &HandshakeResult{ReplID: replID, Snapshot: snapshot}, nil
}

// parseFullResync extracts the replid and starting offset from
// "+FULLRESYNC <id> <offset>".
func parseFullResync(line string) (string, int64, error) {
	fields := strings.Fields(strings.TrimPrefix(line, "+"))
	if len(fields) != 3 || fields[0] != "FULLRESYNC" {
		return "", 0, fmt.Errorf("replication: unexpected psync reply %q", line)
	}
	offset, err := strconv.ParseInt(fields[2], 10, 64)
	if err != nil {
		return "", 0, fmt.Errorf("replication: unexpected psync reply %q", line)
	}
	return fields[1], offset, nil
}

func expectSimpleReply(r *resp.Reader, want string) error {
	line, err := r.ReadLine()
	if err != nil {
		return fmt.Errorf("replication: handshake read reply: %w", err)
	}
	if line != "+"+want {
		return fmt.Errorf("replication: expected +%s, got %q", want, line)
	}
	return nil
}

// RunReplicaLoop reads frames from the Primary indefinitely, applying each
// one through applier, until ctx is cancelled or the connection errs. A
// `REPLCONF GETACK *` frame is answered with `REPLCONF ACK <offset>`
// reflecting the byte count processed so far; ordinary replicated writes
// get no reply, matching spec.md §4.8's Replica handler contract.
func (n *Node) RunReplicaLoop(ctx context.Context, conn net.Conn, applier Applier) error {
	r := resp.NewReader(conn)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		frame, err := r.ReadFrame()
		if err != nil {
			return fmt.Errorf("replication: replica loop: %w", err)
		}
		n.addOffset(int64(frame.BytesConsumed))

		if isGetAck(frame) {
			if err := resp.WriteCommandFrame(conn, "REPLCONF", "ACK", strconv.FormatInt(n.Offset(), 10)); err != nil {
				return fmt.Errorf("replication: send ack: %w", err)
			}
			continue
		}

		if err := applier.ApplyReplicated(frame); err != nil {
			return fmt.Errorf("replication: apply: %w", err)
		}
	}
}

func isGetAck(f *resp.Frame) bool {
	return len(f.Elements) == 3 &&
		strings.EqualFold(string(f.Elements[0]), "REPLCONF") &&
		strings.EqualFold(string(f.Elements[1]), "GETACK")
}

// DialAndHandshake is a convenience wrapper that dials the Primary at
// addr, applies dialTimeout to the connection attempt only, and runs
// Handshake. It returns the established connection alongside the result
// so the caller can hand it to RunReplicaLoop.
func (n *Node) DialAndHandshake(ctx context.Context, addr, listeningPort string, dialTimeout time.Duration) (net.Conn, *HandshakeResult, error) {
	var d net.Dialer
	d.Timeout = dialTimeout
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("replication: dial primary %s: %w", addr, err)
	}

	result, err := n.Handshake(conn, listeningPort)
	if err != nil {
		_ = conn.Close()
		return nil, nil, err
	}
	return conn, result, nil
}

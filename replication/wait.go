package replication

import (
	"bytes"
	"time"

	"github.com/mickamy/kvstored/resp"
)

// Wait implements WAIT(numReplicas, timeout) per spec.md §4.7, resolving
// the spec's open question in favor of real-ACK-counting semantics (see
// DESIGN.md): it sends REPLCONF GETACK * to every attached replica, then
// polls each replica's acknowledged offset against the offset recorded
// before this call, returning as soon as numReplicas of them have caught
// up or timeout elapses, whichever comes first.
func (n *Node) Wait(numReplicas int, timeout time.Duration) int {
	if numReplicas == 0 {
		return n.AttachedCount()
	}

	preWaitOffset := n.Offset()

	n.mu.Lock()
	replicas := make([]*Replica, 0, len(n.replicas))
	for r := range n.replicas {
		replicas = append(replicas, r)
	}
	n.mu.Unlock()

	getack, _ := encodeGetAck()
	for _, r := range replicas {
		if _, err := r.conn.Write(getack); err != nil {
			n.Detach(r)
		}
	}
	n.offset.Add(int64(len(getack)))

	deadline := time.Now().Add(timeout)
	for {
		count := 0
		for _, r := range replicas {
			if r.ackOffset.Load() >= preWaitOffset {
				count++
			}
		}
		if count >= numReplicas || time.Now().After(deadline) {
			return count
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func encodeGetAck() ([]byte, error) {
	var buf bytes.Buffer
	if err := resp.WriteCommandFrame(&buf, "REPLCONF", "GETACK", "*"); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

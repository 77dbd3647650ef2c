// Package replication implements the Primary/Replica role state: the
// handshake a Replica performs against a Primary, command fan-out from a
// Primary to its attached replicas, and the WAIT acknowledgement protocol
// (spec.md §4.7).
package replication

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net"
	"sync"
	"sync/atomic"

	"github.com/mickamy/kvstored/resp"
)

// Role is which side of a Primary/Replica pair a Node plays.
type Role int

const (
	RolePrimary Role = iota
	RoleReplica
)

func (r Role) String() string {
	if r == RoleReplica {
		return "slave"
	}
	return "master"
}

// Node carries the replication role state for one server process. The
// zero value is not usable; construct with NewPrimary or NewReplica.
type Node struct {
	role   Role
	replID string

	// offset is the monotone replicated-byte counter (Invariant 5):
	// advanced by every frame forwarded to replicas and every GETACK sent
	// during WAIT, on a Primary; the count of bytes processed from the
	// Primary's stream, on a Replica.
	offset atomic.Int64

	mu       sync.Mutex
	replicas map[*Replica]struct{}
}

// NewPrimary creates a Node with a freshly generated replication id.
func NewPrimary() *Node {
	return &Node{
		role:     RolePrimary,
		replID:   newReplID(),
		replicas: make(map[*Replica]struct{}),
	}
}

// NewReplica creates a Node in the Replica role. replID and offset are
// filled in once the handshake with the Primary completes (see Handshake).
func NewReplica() *Node {
	return &Node{role: RoleReplica}
}

func newReplID() string {
	var buf [20]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand.Read only fails if the OS entropy source is
		// unavailable, which is unrecoverable for a process that needs a
		// replication identity at all.
		panic(fmt.Sprintf("replication: generate replid: %v", err))
	}
	return hex.EncodeToString(buf[:])
}

// Role reports whether this Node is a Primary or a Replica.
func (n *Node) Role() Role { return n.role }

// ReplID returns the 40-hex replication identity.
func (n *Node) ReplID() string { return n.replID }

// Offset returns the current replicated-byte counter.
func (n *Node) Offset() int64 { return n.offset.Load() }

// setReplID is used once, after a Replica's handshake learns its identity
// from the Primary's FULLRESYNC reply. addOffset advances a Replica's
// counter by the size of each frame its apply loop processes.
func (n *Node) setReplID(id string) { n.replID = id }
func (n *Node) addOffset(delta int64) int64 { return n.offset.Add(delta) }

// Replica is a Primary's handle on one attached replica connection.
type Replica struct {
	conn          net.Conn
	listeningPort string

	ackOffset atomic.Int64
}

// AttachReplica registers conn as an attached replica and starts a
// background reader that updates the replica's acknowledged offset from
// any REPLCONF ACK frames it sends back. The connection's lifetime is the
// caller's responsibility; call Detach when it closes.
func (n *Node) AttachReplica(conn net.Conn, listeningPort string) *Replica {
	r := &Replica{conn: conn, listeningPort: listeningPort}

	n.mu.Lock()
	n.replicas[r] = struct{}{}
	n.mu.Unlock()

	go n.readAcks(r)

	return r
}

func (n *Node) readAcks(r *Replica) {
	reader := resp.NewReader(r.conn)
	for {
		frame, err := reader.ReadFrame()
		if err != nil {
			n.Detach(r)
			return
		}
		if len(frame.Elements) == 3 &&
			string(frame.Elements[0]) == "REPLCONF" &&
			string(frame.Elements[1]) == "ACK" {
			if off, ok := parseOffset(frame.Elements[2]); ok {
				r.ackOffset.Store(off)
			}
		}
	}
}

func parseOffset(b []byte) (int64, bool) {
	var v int64
	for _, c := range b {
		if c < '0' || c > '9' {
			return 0, false
		}
		v = v*10 + int64(c-'0')
	}
	return v, true
}

// Detach removes r from the attached-replica set. Safe to call more than
// once.
func (n *Node) Detach(r *Replica) {
	n.mu.Lock()
	delete(n.replicas, r)
	n.mu.Unlock()
}

// AttachedCount returns the number of currently attached replicas.
func (n *Node) AttachedCount() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.replicas)
}

// ReplicateFrame forwards raw (the exact bytes read off the wire for a
// ToReplicate command) to every attached replica and advances the
// replicated-byte counter by len(raw), per Invariant 5. Replicas whose
// connection has failed are dropped rather than blocking the others.
func (n *Node) ReplicateFrame(raw []byte) {
	n.mu.Lock()
	replicas := make([]*Replica, 0, len(n.replicas))
	for r := range n.replicas {
		replicas = append(replicas, r)
	}
	n.mu.Unlock()

	for _, r := range replicas {
		if _, err := r.conn.Write(raw); err != nil {
			n.Detach(r)
		}
	}
	n.offset.Add(int64(len(raw)))
}

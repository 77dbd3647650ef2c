// Package server implements the TCP accept loop and per-connection command
// loop: decode a Frame, dispatch it, write the reply, and — for commands
// the replication manager must fan out, or a connection promoted to a
// replica by PSYNC — hand off to the replication.Node.
package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"strings"

	"github.com/google/uuid"

	"github.com/mickamy/kvstored/command"
	"github.com/mickamy/kvstored/replication"
	"github.com/mickamy/kvstored/resp"
)

// EventKind tags one entry on the Server's Events channel.
type EventKind int

const (
	EventConnected EventKind = iota
	EventClosed
	EventPromotedToReplica
)

func (k EventKind) String() string {
	switch k {
	case EventConnected:
		return "connected"
	case EventClosed:
		return "closed"
	case EventPromotedToReplica:
		return "promoted-to-replica"
	}
	return "unknown"
}

// Event is one connection lifecycle notice, the generalization of the
// teacher's proxy.Event stream to a domain with no queries to report.
type Event struct {
	Kind   EventKind
	ConnID string
	Addr   string
	Err    error
}

// Server accepts client connections and runs the command loop over each.
// It holds no package-global state, matching the teacher's
// dependency-injected Proxy implementations.
type Server struct {
	dispatcher *command.Dispatcher
	node       *replication.Node

	events chan Event
}

// New builds a Server dispatching commands through dispatcher. node may be
// nil for a standalone server with no replication.
func New(dispatcher *command.Dispatcher, node *replication.Node) *Server {
	return &Server{
		dispatcher: dispatcher,
		node:       node,
		events:     make(chan Event, 64),
	}
}

// Events returns the connection lifecycle channel. Optional: a caller that
// never reads it loses nothing but observability, since sends are
// non-blocking (matching the teacher's conn.emitEvent).
func (s *Server) Events() <-chan Event { return s.events }

func (s *Server) emit(ev Event) {
	select {
	case s.events <- ev:
	default:
	}
}

// ListenAndServe accepts connections on addr until ctx is canceled,
// matching the teacher's proxy.Proxy.ListenAndServe(ctx) shape.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	lis, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("server: listen %s: %w", addr, err)
	}
	return s.Serve(ctx, lis)
}

// Serve accepts connections on an already-bound listener until ctx is
// canceled, matching the teacher's srv.Serve(lis) split between binding
// and accepting (cmd/sql-tapd/main.go's gRPC server). Exposed separately
// from ListenAndServe so a caller can bind to an ephemeral port (":0")
// and learn the chosen address before serving.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = lis.Close()
	}()

	for {
		conn, err := lis.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if isClosedErr(err) {
				return nil
			}
			return fmt.Errorf("server: accept: %w", err)
		}
		go s.handle(ctx, conn)
	}
}

func (s *Server) handle(ctx context.Context, conn net.Conn) {
	connID := uuid.New().String()
	s.emit(Event{Kind: EventConnected, ConnID: connID, Addr: conn.RemoteAddr().String()})

	connCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	reader := resp.NewReader(conn)
	promoted := false

	defer func() {
		if !promoted {
			_ = conn.Close()
		}
		s.emit(Event{Kind: EventClosed, ConnID: connID})
	}()

	for {
		frame, err := reader.ReadFrame()
		if err != nil {
			if !isClosedErr(err) && !errors.Is(err, io.EOF) {
				log.Printf("server: conn %s: read frame: %v", connID, err)
			}
			return
		}

		cmd, err := command.ParseFrame(frame)
		if err != nil {
			log.Printf("server: conn %s: parse frame: %v", connID, err)
			return
		}

		class, err := s.dispatcher.Dispatch(connCtx, cmd, conn, conn)
		if err != nil {
			log.Printf("server: conn %s: dispatch %s: %v", connID, cmd.Name, err)
			return
		}

		switch class {
		case command.ToReplicate:
			if s.node != nil {
				s.node.ReplicateFrame(frame.Raw)
			}
		case command.Psync:
			promoted = true
			s.emit(Event{Kind: EventPromotedToReplica, ConnID: connID})
			return
		}
	}
}

func isClosedErr(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, net.ErrClosed) {
		return true
	}
	var netErr *net.OpError
	if errors.As(err, &netErr) {
		return strings.Contains(netErr.Err.Error(), "closed")
	}
	return strings.Contains(err.Error(), "closed")
}

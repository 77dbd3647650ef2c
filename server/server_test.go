package server_test

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/mickamy/kvstored/command"
	"github.com/mickamy/kvstored/replication"
	"github.com/mickamy/kvstored/resp"
	"github.com/mickamy/kvstored/server"
	"github.com/mickamy/kvstored/storage"
)

func newTestServer(t *testing.T) (*server.Server, string, func()) {
	t.Helper()
	store := storage.New()
	node := replication.NewPrimary()
	dispatcher := command.NewDispatcher(store, node, t.TempDir(), "dump.rdb")
	srv := server.New(dispatcher, node)

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ctx, lis)
	}()

	cleanup := func() {
		cancel()
		select {
		case <-errCh:
		case <-time.After(time.Second):
			t.Fatal("server did not stop")
		}
	}
	return srv, lis.Addr().String(), cleanup
}

func sendCommand(t *testing.T, conn net.Conn, args ...string) string {
	t.Helper()
	if err := resp.WriteCommandFrame(conn, args...); err != nil {
		t.Fatalf("send: %v", err)
	}
	r := resp.NewReader(conn)
	line, err := r.ReadLine()
	if err != nil {
		t.Fatalf("read reply: %v", err)
	}
	return line
}

func TestServerRoundTripSetGet(t *testing.T) {
	_, addr, cleanup := newTestServer(t)
	defer cleanup()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if got := sendCommand(t, conn, "SET", "k", "v"); got != "+OK" {
		t.Fatalf("got %q, want +OK", got)
	}

	if err := resp.WriteCommandFrame(conn, "GET", "k"); err != nil {
		t.Fatalf("send GET: %v", err)
	}
	r := resp.NewReader(conn)
	line, err := r.ReadLine()
	if err != nil {
		t.Fatalf("read GET reply header: %v", err)
	}
	if line != "$1" {
		t.Fatalf("got %q, want $1", line)
	}
	body, err := r.ReadBulkPayload(1)
	if err != nil {
		t.Fatalf("read GET reply body: %v", err)
	}
	if string(body) != "v" {
		t.Fatalf("got %q, want v", body)
	}
}

func TestServerEmitsConnectedAndClosedEvents(t *testing.T) {
	srv, addr, cleanup := newTestServer(t)
	defer cleanup()

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}

	var gotConnected bool
	deadline := time.After(2 * time.Second)
	for !gotConnected {
		select {
		case ev := <-srv.Events():
			if ev.Kind == server.EventConnected {
				gotConnected = true
			}
		case <-deadline:
			t.Fatal("timed out waiting for connected event")
		}
	}

	conn.Close()

	var gotClosed bool
	deadline = time.After(2 * time.Second)
	for !gotClosed {
		select {
		case ev := <-srv.Events():
			if ev.Kind == server.EventClosed {
				gotClosed = true
			}
		case <-deadline:
			t.Fatal("timed out waiting for closed event")
		}
	}
}

func TestServerPsyncPromotesConnectionToReplica(t *testing.T) {
	srv, addr, cleanup := newTestServer(t)
	defer cleanup()
	_ = srv

	conn, err := net.Dial("tcp", addr)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	if err := resp.WriteCommandFrame(conn, "PSYNC", "?", "-1"); err != nil {
		t.Fatalf("send psync: %v", err)
	}
	r := resp.NewReader(conn)
	line, err := r.ReadLine()
	if err != nil {
		t.Fatalf("read fullresync reply: %v", err)
	}
	if len(line) < 1 || line[0] != '+' {
		t.Fatalf("got %q, want a simple string reply", line)
	}

	if _, err := r.ReadSnapshotFrame(); err != nil {
		t.Fatalf("read snapshot frame: %v", err)
	}
}

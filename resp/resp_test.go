package resp_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/mickamy/kvstored/resp"
)

func TestReadFrameDecodesArrayOfBulkStrings(t *testing.T) {
	t.Parallel()
	r := resp.NewReader(strings.NewReader("*2\r\n$3\r\nGET\r\n$3\r\nfoo\r\n"))

	f, err := r.ReadFrame()
	if err != nil {
		t.Fatal(err)
	}
	if len(f.Elements) != 2 || string(f.Elements[0]) != "GET" || string(f.Elements[1]) != "foo" {
		t.Fatalf("got %+v", f.Elements)
	}
	if f.BytesConsumed != len("*2\r\n$3\r\nGET\r\n$3\r\nfoo\r\n") {
		t.Fatalf("got BytesConsumed=%d, want %d", f.BytesConsumed, len("*2\r\n$3\r\nGET\r\n$3\r\nfoo\r\n"))
	}
}

func TestReadFrameRawMatchesOriginalWireBytes(t *testing.T) {
	t.Parallel()
	const wire = "*2\r\n$3\r\nGET\r\n$3\r\nfoo\r\n"
	r := resp.NewReader(strings.NewReader(wire))

	f, err := r.ReadFrame()
	if err != nil {
		t.Fatal(err)
	}
	if string(f.Raw) != wire {
		t.Fatalf("got Raw=%q, want %q", f.Raw, wire)
	}
}

func TestReadFrameRejectsNonArrayLead(t *testing.T) {
	t.Parallel()
	r := resp.NewReader(strings.NewReader("+OK\r\n"))
	if _, err := r.ReadFrame(); err == nil {
		t.Fatal("expected protocol error")
	}
}

func TestReadFrameConsecutiveFrames(t *testing.T) {
	t.Parallel()
	r := resp.NewReader(strings.NewReader("*1\r\n$4\r\nPING\r\n*1\r\n$4\r\nPING\r\n"))

	for i := 0; i < 2; i++ {
		f, err := r.ReadFrame()
		if err != nil {
			t.Fatal(err)
		}
		if string(f.Elements[0]) != "PING" {
			t.Fatalf("frame %d: got %q", i, f.Elements[0])
		}
	}
}

func TestReadSnapshotFrameHasNoTrailingCRLF(t *testing.T) {
	t.Parallel()
	r := resp.NewReader(strings.NewReader("$5\r\nhello*1\r\n$4\r\nPING\r\n"))

	payload, err := r.ReadSnapshotFrame()
	if err != nil {
		t.Fatal(err)
	}
	if string(payload) != "hello" {
		t.Fatalf("got %q", payload)
	}

	f, err := r.ReadFrame()
	if err != nil {
		t.Fatal(err)
	}
	if string(f.Elements[0]) != "PING" {
		t.Fatalf("got %q, the snapshot read must not have consumed the next frame", f.Elements[0])
	}
}

func TestWriteBulkStringNull(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	if err := resp.WriteBulkString(&buf, nil); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "$-1\r\n" {
		t.Fatalf("got %q", buf.String())
	}
}

func TestWriteBulkStringValue(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	if err := resp.WriteBulkString(&buf, []byte("bar")); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "$3\r\nbar\r\n" {
		t.Fatalf("got %q", buf.String())
	}
}

func TestWriteCommandFrameRoundTrips(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	if err := resp.WriteCommandFrame(&buf, "REPLCONF", "ACK", "42"); err != nil {
		t.Fatal(err)
	}

	r := resp.NewReader(&buf)
	f, err := r.ReadFrame()
	if err != nil {
		t.Fatal(err)
	}
	if len(f.Elements) != 3 || string(f.Elements[0]) != "REPLCONF" || string(f.Elements[2]) != "42" {
		t.Fatalf("got %+v", f.Elements)
	}
}

package rdb_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/mickamy/kvstored/rdb"
)

func TestWriteReadRoundTrip(t *testing.T) {
	t.Parallel()
	now := time.Now()
	entries := []rdb.Entry{
		{Key: []byte("foo"), Value: []byte("bar")},
		{Key: []byte("ttl"), Value: []byte("soon"), Expire: now.Add(time.Hour).Truncate(time.Millisecond)},
	}

	var buf bytes.Buffer
	if err := rdb.Write(&buf, entries); err != nil {
		t.Fatal(err)
	}

	got, err := rdb.Read(&buf, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d entries, want 2", len(got))
	}
	if string(got[0].Key) != "foo" || string(got[0].Value) != "bar" {
		t.Fatalf("unexpected first entry: %+v", got[0])
	}
	if string(got[1].Key) != "ttl" || !got[1].Expire.Equal(entries[1].Expire) {
		t.Fatalf("unexpected second entry: %+v", got[1])
	}
}

func TestReadDropsAlreadyExpiredEntries(t *testing.T) {
	t.Parallel()
	now := time.Now()
	entries := []rdb.Entry{
		{Key: []byte("gone"), Value: []byte("x"), Expire: now.Add(-time.Hour)},
		{Key: []byte("here"), Value: []byte("y")},
	}

	var buf bytes.Buffer
	if err := rdb.Write(&buf, entries); err != nil {
		t.Fatal(err)
	}

	got, err := rdb.Read(&buf, now)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || string(got[0].Key) != "here" {
		t.Fatalf("got %+v, want only 'here'", got)
	}
}

func TestReadRejectsBadMagic(t *testing.T) {
	t.Parallel()
	_, err := rdb.Read(bytes.NewReader([]byte("NOTREDIS1")), time.Now())
	if err == nil {
		t.Fatal("expected error on bad magic")
	}
}

func TestReadEmptySnapshot(t *testing.T) {
	t.Parallel()
	var buf bytes.Buffer
	if err := rdb.Write(&buf, nil); err != nil {
		t.Fatal(err)
	}
	got, err := rdb.Read(&buf, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("got %d entries, want 0", len(got))
	}
}

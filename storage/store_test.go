package storage_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mickamy/kvstored/storage"
	"github.com/mickamy/kvstored/stream"
)

func TestSetAndGetRoundTrip(t *testing.T) {
	t.Parallel()
	s := storage.New()

	if _, hadOld, _, err := s.Set("k", []byte("v1"), storage.WriteNormal, false, storage.Expire{}); err != nil || hadOld {
		t.Fatalf("set: hadOld=%v err=%v", hadOld, err)
	}
	v, ok, err := s.Get("k")
	if err != nil || !ok || string(v) != "v1" {
		t.Fatalf("get: v=%q ok=%v err=%v", v, ok, err)
	}
}

func TestSetIfAbsentFailsWhenKeyExists(t *testing.T) {
	t.Parallel()
	s := storage.New()
	s.Set("k", []byte("v1"), storage.WriteNormal, false, storage.Expire{})

	if _, _, _, err := s.Set("k", []byte("v2"), storage.WriteIfAbsent, false, storage.Expire{}); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	v, _, _ := s.Get("k")
	if string(v) != "v1" {
		t.Fatalf("NX set should not have overwritten, got %q", v)
	}
}

func TestSetIfExistsFailsWhenKeyAbsent(t *testing.T) {
	t.Parallel()
	s := storage.New()
	s.Set("k", []byte("v"), storage.WriteIfExists, false, storage.Expire{})
	if _, ok, _ := s.Get("k"); ok {
		t.Fatal("XX set should not have created the key")
	}
}

func TestSetReturnOldValue(t *testing.T) {
	t.Parallel()
	s := storage.New()
	s.Set("k", []byte("v1"), storage.WriteNormal, false, storage.Expire{})
	old, hadOld, _, err := s.Set("k", []byte("v2"), storage.WriteNormal, true, storage.Expire{})
	if err != nil || !hadOld || string(old) != "v1" {
		t.Fatalf("old=%q hadOld=%v err=%v", old, hadOld, err)
	}
}

func TestGetOnWrongTypeReturnsWrongType(t *testing.T) {
	t.Parallel()
	s := storage.New()
	s.XAdd("k", stream.MsSpec{Value: 1}, stream.SeqSpec{Value: 0}, nil)

	if _, _, err := s.Get("k"); !errors.Is(err, storage.ErrWrongType) {
		t.Fatalf("got err %v, want ErrWrongType", err)
	}
}

func TestGetDelRemovesKey(t *testing.T) {
	t.Parallel()
	s := storage.New()
	s.Set("k", []byte("v"), storage.WriteNormal, false, storage.Expire{})

	v, ok, err := s.GetDel("k")
	if err != nil || !ok || string(v) != "v" {
		t.Fatalf("v=%q ok=%v err=%v", v, ok, err)
	}
	if _, ok, _ := s.Get("k"); ok {
		t.Fatal("key should be gone after GetDel")
	}
}

func TestExpireAtRemovesKeyWhenTimerFires(t *testing.T) {
	t.Parallel()

	var fired func()
	clock := time.Now()
	s := storage.New(
		storage.WithClock(func() time.Time { return clock }),
		storage.WithAfterFunc(func(d time.Duration, f func()) *time.Timer {
			fired = f
			return time.NewTimer(time.Hour) // never fires on its own in the test
		}),
	)

	s.Set("k", []byte("v"), storage.WriteNormal, false, storage.Expire{Mode: storage.ExpireAt, At: clock.Add(time.Second)})
	if _, ok, _ := s.Get("k"); !ok {
		t.Fatal("key should exist before the timer fires")
	}

	fired()
	if _, ok, _ := s.Get("k"); ok {
		t.Fatal("key should be gone once the expiration callback runs")
	}
}

func TestSetKeepTTLPreservesDeadlineAcrossOverwrite(t *testing.T) {
	t.Parallel()

	var fired func()
	clock := time.Now()
	s := storage.New(
		storage.WithClock(func() time.Time { return clock }),
		storage.WithAfterFunc(func(d time.Duration, f func()) *time.Timer {
			fired = f
			return time.NewTimer(time.Hour)
		}),
	)

	s.Set("k", []byte("v1"), storage.WriteNormal, false, storage.Expire{Mode: storage.ExpireAt, At: clock.Add(time.Second)})
	s.Set("k", []byte("v2"), storage.WriteNormal, false, storage.Expire{Mode: storage.ExpireKeep})

	fired()
	if _, ok, _ := s.Get("k"); ok {
		t.Fatal("KEEPTTL should have carried the deadline to the new value")
	}
}

func TestIncrByCreatesAndAccumulates(t *testing.T) {
	t.Parallel()
	s := storage.New()

	v, err := s.IncrBy("counter", 5)
	if err != nil || v != 5 {
		t.Fatalf("v=%d err=%v", v, err)
	}
	v, err = s.IncrBy("counter", -2)
	if err != nil || v != 3 {
		t.Fatalf("v=%d err=%v", v, err)
	}
}

func TestIncrByRejectsNonIntegerValue(t *testing.T) {
	t.Parallel()
	s := storage.New()
	s.Set("k", []byte("not-a-number"), storage.WriteNormal, false, storage.Expire{})

	if _, err := s.IncrBy("k", 1); !errors.Is(err, storage.ErrNotInteger) {
		t.Fatalf("got err %v, want ErrNotInteger", err)
	}
}

func TestIncrByFloatAccumulates(t *testing.T) {
	t.Parallel()
	s := storage.New()
	v, err := s.IncrByFloat("f", 1.5)
	if err != nil || v != 1.5 {
		t.Fatalf("v=%v err=%v", v, err)
	}
	v, err = s.IncrByFloat("f", 2.25)
	if err != nil || v != 3.75 {
		t.Fatalf("v=%v err=%v", v, err)
	}
}

func TestDelCountsOnlyExistingKeys(t *testing.T) {
	t.Parallel()
	s := storage.New()
	s.Set("a", []byte("1"), storage.WriteNormal, false, storage.Expire{})

	if n := s.Del("a", "b"); n != 1 {
		t.Fatalf("got %d, want 1", n)
	}
}

func TestXAddAndXRange(t *testing.T) {
	t.Parallel()
	s := storage.New()

	id1, err := s.XAdd("events", stream.MsSpec{Value: 1}, stream.SeqSpec{Value: 0}, nil)
	if err != nil {
		t.Fatal(err)
	}
	id2, err := s.XAdd("events", stream.MsSpec{Value: 2}, stream.SeqSpec{Value: 0}, nil)
	if err != nil {
		t.Fatal(err)
	}

	got, err := s.XRange("events", nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].ID != id1 || got[1].ID != id2 {
		t.Fatalf("unexpected range result: %+v", got)
	}
}

func TestXAddOnStringKeyIsWrongType(t *testing.T) {
	t.Parallel()
	s := storage.New()
	s.Set("k", []byte("v"), storage.WriteNormal, false, storage.Expire{})

	if _, err := s.XAdd("k", stream.MsSpec{Value: 1}, stream.SeqSpec{Value: 0}, nil); !errors.Is(err, storage.ErrWrongType) {
		t.Fatalf("got err %v, want ErrWrongType", err)
	}
}

func TestXReadNonBlockingSeesAppendedEntries(t *testing.T) {
	t.Parallel()
	s := storage.New()
	id, err := s.XAdd("events", stream.MsSpec{Value: 1}, stream.SeqSpec{Value: 0}, nil)
	if err != nil {
		t.Fatal(err)
	}

	res, err := s.XRead(context.Background(), []stream.ReadSpec{{Key: "events", After: stream.ID{}}}, stream.BlockMode{})
	if err != nil {
		t.Fatal(err)
	}
	if len(res["events"]) != 1 || res["events"][0].ID != id {
		t.Fatalf("unexpected result: %+v", res)
	}
}

func TestRestoreInstallsSnapshotEntries(t *testing.T) {
	t.Parallel()
	s := storage.New()

	s.Restore([]storage.SnapshotEntry{
		{Key: "a", Value: []byte("1")},
		{Key: "b", Value: []byte("2")},
	})

	if v, ok, _ := s.Get("a"); !ok || string(v) != "1" {
		t.Fatalf("got %q, %v, want 1, true", v, ok)
	}
	if v, ok, _ := s.Get("b"); !ok || string(v) != "2" {
		t.Fatalf("got %q, %v, want 2, true", v, ok)
	}
}

func TestRestoreSchedulesExpirationForEntriesWithDeadline(t *testing.T) {
	t.Parallel()

	var fired func()
	clock := time.Now()
	s := storage.New(
		storage.WithClock(func() time.Time { return clock }),
		storage.WithAfterFunc(func(d time.Duration, f func()) *time.Timer {
			fired = f
			return time.NewTimer(time.Hour)
		}),
	)

	s.Restore([]storage.SnapshotEntry{
		{Key: "k", Value: []byte("v"), Expire: clock.Add(time.Second)},
	})
	if _, ok, _ := s.Get("k"); !ok {
		t.Fatal("key should exist before the timer fires")
	}

	fired()
	if _, ok, _ := s.Get("k"); ok {
		t.Fatal("key should be gone once the expiration callback runs")
	}
}

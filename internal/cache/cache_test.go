package cache

import (
	"errors"
	"testing"
	"time"

	"quotefeed/internal/quote"
)

func fixedClock(at time.Time) func() time.Time {
	return func() time.Time { return at }
}

func TestGetSet_MemoryTTL(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := New(WithClock(fixedClock(now)))

	q := quote.Quote{Symbol: "AAPL", Price: 189.5, Source: "finnhub"}
	Set(s, "quote:AAPL", q)

	got, ok := Get[quote.Quote](s, "quote:AAPL", time.Second)
	if !ok || got.Price != 189.5 {
		t.Fatalf("fresh read: %+v, %v", got, ok)
	}

	// same entry, stricter TTL after the clock advances
	s.now = fixedClock(now.Add(2 * time.Second))
	if _, ok := Get[quote.Quote](s, "quote:AAPL", time.Second); ok {
		t.Fatal("expired entry served")
	}
	// a longer TTL still admits it: freshness is the reader's choice
	if _, ok := Get[quote.Quote](s, "quote:AAPL", time.Minute); !ok {
		t.Fatal("entry should satisfy the longer TTL")
	}
}

func TestGet_MissingKey(t *testing.T) {
	s := New()
	if _, ok := Get[quote.Quote](s, "quote:NOPE", time.Minute); ok {
		t.Fatal("expected miss")
	}
}

func TestDiskBackend_RoundTripAndPromotion(t *testing.T) {
	dir := t.TempDir()
	disk, err := NewDisk(dir)
	if err != nil {
		t.Fatalf("NewDisk: %v", err)
	}
	s := New(WithBackend(disk))

	candles := []quote.Candle{{Time: "2024-01-02", Open: 1, High: 2, Low: 1, Close: 1.5, Volume: 10}}
	Set(s, "candles:AAPL:D:1:2", candles)

	// a second store over the same directory simulates a restart: tier 1 is
	// empty, the disk file carries the data
	s2 := New(WithBackend(disk))
	got, ok := Get[[]quote.Candle](s2, "candles:AAPL:D:1:2", time.Minute)
	if !ok || len(got) != 1 || got[0].Time != "2024-01-02" {
		t.Fatalf("disk read: %+v, %v", got, ok)
	}

	// promoted entry must now be served from memory even if the file goes away
	if err := disk.Write("candles:AAPL:D:1:2", []byte("garbage")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if _, ok := Get[[]quote.Candle](s2, "candles:AAPL:D:1:2", time.Minute); !ok {
		t.Fatal("promotion into memory failed")
	}
}

func TestDisk_UnknownKey(t *testing.T) {
	disk, err := NewDisk(t.TempDir())
	if err != nil {
		t.Fatalf("NewDisk: %v", err)
	}
	if _, _, err := disk.Read("never-written"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

type failingBackend struct{ writes int }

func (f *failingBackend) Read(string) ([]byte, time.Time, error) {
	return nil, time.Time{}, errors.New("backend down")
}

func (f *failingBackend) Write(string, []byte) error {
	f.writes++
	return errors.New("backend down")
}

func TestBackendFailuresAreSwallowed(t *testing.T) {
	fb := &failingBackend{}
	var logged int
	s := New(WithBackend(fb), WithLogf(func(string, ...any) { logged++ }))

	// Set must not fail even though the backend does
	Set(s, "k", quote.Quote{Symbol: "X", Price: 1})
	if fb.writes != 1 {
		t.Fatalf("writes = %d", fb.writes)
	}

	// memory still serves the value
	if _, ok := Get[quote.Quote](s, "k", time.Minute); !ok {
		t.Fatal("memory tier lost the value")
	}

	// a cold read hits the failing backend, logs, and reports a miss
	s2 := New(WithBackend(fb), WithLogf(func(string, ...any) { logged++ }))
	if _, ok := Get[quote.Quote](s2, "k", time.Minute); ok {
		t.Fatal("expected miss")
	}
	if logged == 0 {
		t.Fatal("backend errors should be logged")
	}
}

func TestGet_TypeMismatchIsAMiss(t *testing.T) {
	s := New()
	Set(s, "k", quote.Quote{Symbol: "X", Price: 1})
	if _, ok := Get[[]quote.Candle](s, "k", time.Minute); ok {
		t.Fatal("mismatched type should not be served")
	}
}

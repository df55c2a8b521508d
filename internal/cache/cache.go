// Package cache is a two-tier key/value store with per-read TTLs. Tier 1 is
// an in-process map; tier 2 is an optional persistent Backend consulted on
// tier-1 misses, with hits promoted back into memory. Entries are never
// explicitly deleted: stale ones are ignored and overwritten by the next
// successful fetch, and the key universe is small enough that no eviction
// pressure exists.
package cache

import (
	"encoding/json"
	"errors"
	"log"
	"sync"
	"time"

	"quotefeed/internal/metrics"
)

// ErrNotFound is returned by backends when a key has never been written.
var ErrNotFound = errors.New("cache: entry not found")

// Backend is the persistent tier. Read returns the raw payload and the time
// it was written; Write replaces the payload. Backends are best-effort:
// the Store logs and swallows their failures.
type Backend interface {
	Read(key string) (data []byte, writtenAt time.Time, err error)
	Write(key string, data []byte) error
}

type entry struct {
	value     any
	writtenAt time.Time
}

// Store is safe for concurrent use.
type Store struct {
	backend Backend
	now     func() time.Time
	logf    func(format string, args ...any)
	met     *metrics.Metrics

	mu  sync.RWMutex
	mem map[string]entry
}

// Option configures a Store.
type Option func(*Store)

// WithBackend attaches a persistent tier. Without one, memory is
// authoritative (the no-durable-storage configuration).
func WithBackend(b Backend) Option {
	return func(s *Store) { s.backend = b }
}

// WithClock overrides the time source, for TTL tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithMetrics attaches hit/miss counters.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.met = m }
}

// WithLogf overrides the sink for swallowed backend errors.
func WithLogf(logf func(format string, args ...any)) Option {
	return func(s *Store) { s.logf = logf }
}

func New(opts ...Option) *Store {
	s := &Store{
		now:  time.Now,
		logf: log.Printf,
		mem:  make(map[string]entry),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Get returns the cached value for key if it was written within ttl.
// Tier 1 is checked first; on a miss the backend is consulted and a fresh
// hit is promoted into memory.
func Get[T any](s *Store, key string, ttl time.Duration) (T, bool) {
	var zero T
	now := s.now()

	s.mu.RLock()
	e, ok := s.mem[key]
	s.mu.RUnlock()
	if ok && now.Sub(e.writtenAt) <= ttl {
		if v, ok := e.value.(T); ok {
			s.met.HitTier("memory")
			return v, true
		}
	}

	if s.backend != nil {
		data, writtenAt, err := s.backend.Read(key)
		switch {
		case errors.Is(err, ErrNotFound):
		case err != nil:
			s.logf("cache: backend read %q: %v", key, err)
		case now.Sub(writtenAt) <= ttl:
			var v T
			if err := json.Unmarshal(data, &v); err != nil {
				s.logf("cache: backend decode %q: %v", key, err)
				break
			}
			s.mu.Lock()
			s.mem[key] = entry{value: v, writtenAt: writtenAt}
			s.mu.Unlock()
			s.met.HitTier("persistent")
			return v, true
		}
	}

	s.met.Miss()
	return zero, false
}

// Set writes v through both tiers. Backend failures never fail the call.
func Set[T any](s *Store, key string, v T) {
	s.mu.Lock()
	s.mem[key] = entry{value: v, writtenAt: s.now()}
	s.mu.Unlock()

	if s.backend == nil {
		return
	}
	data, err := json.Marshal(v)
	if err != nil {
		s.logf("cache: encode %q: %v", key, err)
		return
	}
	if err := s.backend.Write(key, data); err != nil {
		s.logf("cache: backend write %q: %v", key, err)
	}
}

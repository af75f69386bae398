// Package counters implements the grow-only counter map shared by every
// worker and the driver. Counters are spread over independently locked
// shards; each value is an atomic so concurrent Adds to an existing name
// never contend on a lock.
package counters

import (
	"sync"
	"sync/atomic"

	"github.com/cespare/xxhash/v2"

	"github.com/JakeFAU/webarchive-ingest/internal/ingest"
)

const defaultShards = 64

// Store is a concurrency-safe, grow-only map of named counters.
type Store struct {
	shards []shard
	mask   uint64
}

type shard struct {
	mu     sync.RWMutex
	values map[string]*atomic.Int64
}

// New returns a Store with at least n shards (rounded up to a power of two).
// n <= 0 selects the default.
func New(n int) *Store {
	if n <= 0 {
		n = defaultShards
	}
	size := 1
	for size < n {
		size <<= 1
	}
	s := &Store{shards: make([]shard, size), mask: uint64(size - 1)}
	for i := range s.shards {
		s.shards[i].values = make(map[string]*atomic.Int64)
	}
	return s
}

func (s *Store) shardFor(name string) *shard {
	return &s.shards[xxhash.Sum64String(name)&s.mask]
}

// Add increments name by delta. Non-positive deltas are ignored so counters
// never decrease.
func (s *Store) Add(name string, delta int64) {
	if delta <= 0 {
		return
	}
	s.counter(name).Add(delta)
}

func (s *Store) counter(name string) *atomic.Int64 {
	sh := s.shardFor(name)
	sh.mu.RLock()
	c, ok := sh.values[name]
	sh.mu.RUnlock()
	if ok {
		return c
	}
	sh.mu.Lock()
	defer sh.mu.Unlock()
	if c, ok = sh.values[name]; !ok {
		c = new(atomic.Int64)
		sh.values[name] = c
	}
	return c
}

// Get returns the current value of name, or zero if it was never added to.
func (s *Store) Get(name string) int64 {
	sh := s.shardFor(name)
	sh.mu.RLock()
	c, ok := sh.values[name]
	sh.mu.RUnlock()
	if !ok {
		return 0
	}
	return c.Load()
}

// Snapshot merges all shards into a point-in-time copy. Adds that race with
// the snapshot may or may not be included.
func (s *Store) Snapshot() ingest.Snapshot {
	out := make(ingest.Snapshot)
	for i := range s.shards {
		sh := &s.shards[i]
		sh.mu.RLock()
		for name, c := range sh.values {
			out[name] = c.Load()
		}
		sh.mu.RUnlock()
	}
	return out
}

// Merge adds every entry of a snapshot taken elsewhere (another process or a
// worker-local tally) into the store.
func (s *Store) Merge(snap ingest.Snapshot) {
	for name, v := range snap {
		s.Add(name, v)
	}
}

var _ ingest.Counters = (*Store)(nil)

// Package cache memoizes festival query results in memory with TTL
// expiry. Expired entries are evicted lazily on Get or in bulk via
// Sweep; capacity is unbounded since the (kind, year, month) request
// space is small.
package cache

import (
	"sync"
	"time"

	"github.com/panchang-io/festivals-api/internal/festival"
)

type entry struct {
	value     *festival.Grouping
	expiresAt time.Time
}

// Store is a thread-safe fingerprint-keyed result cache.
type Store struct {
	mu         sync.RWMutex
	entries    map[string]entry
	defaultTTL time.Duration
	clk        festival.Clock
}

// New creates a Store with the given default TTL.
func New(defaultTTL time.Duration, clk festival.Clock) *Store {
	return &Store{
		entries:    make(map[string]entry),
		defaultTTL: defaultTTL,
		clk:        clk,
	}
}

// Get returns the cached value for a fingerprint if present and not
// yet expired. An entry found expired is deleted on the spot.
func (s *Store) Get(fingerprint string) (*festival.Grouping, bool) {
	s.mu.RLock()
	e, ok := s.entries[fingerprint]
	s.mu.RUnlock()

	if !ok {
		return nil, false
	}

	if !s.clk.Now().Before(e.expiresAt) {
		// Re-check under the write lock: a concurrent Set may have
		// replaced the entry with a fresh one since RUnlock.
		s.mu.Lock()
		if current, ok := s.entries[fingerprint]; ok && !s.clk.Now().Before(current.expiresAt) {
			delete(s.entries, fingerprint)
		}
		s.mu.Unlock()
		return nil, false
	}

	return e.value, true
}

// Set stores a value under a fingerprint, overwriting any prior entry.
// A non-positive ttl falls back to the default TTL.
func (s *Store) Set(fingerprint string, value *festival.Grouping, ttl time.Duration) {
	if ttl <= 0 {
		ttl = s.defaultTTL
	}
	s.mu.Lock()
	s.entries[fingerprint] = entry{
		value:     value,
		expiresAt: s.clk.Now().Add(ttl),
	}
	s.mu.Unlock()
}

// Sweep removes every expired entry and returns how many were removed.
func (s *Store) Sweep() int {
	now := s.clk.Now()
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for fingerprint, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, fingerprint)
			removed++
		}
	}
	return removed
}

// Clear drops all entries.
func (s *Store) Clear() {
	s.mu.Lock()
	s.entries = make(map[string]entry)
	s.mu.Unlock()
}

// Len returns the number of stored entries, expired or not.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

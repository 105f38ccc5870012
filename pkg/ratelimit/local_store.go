package ratelimit

import (
	"context"
	"sync"
	"time"
)

// LocalStore counts hits in a process-local map. It exists as a degraded
// fallback when Redis is unreachable: each process instance keeps
// independent counts, so with N instances the effective global limit is
// limit*N. Never rely on it as the production guarantee.
type LocalStore struct {
	mu         sync.Mutex
	records    map[string]*localRecord
	clock      Clock
	gcInterval time.Duration
	lastGC     time.Time
}

type localRecord struct {
	count       int64
	windowStart time.Time
	window      time.Duration
}

// NewLocalStore creates a local fallback store. Expired records are garbage
// collected at most once per gcInterval, regardless of call volume.
func NewLocalStore(clock Clock, gcInterval time.Duration) *LocalStore {
	return &LocalStore{
		records:    make(map[string]*localRecord),
		clock:      clock,
		gcInterval: gcInterval,
		lastGC:     clock.Now(),
	}
}

// Incr increments the counter for key, resetting it when its window has
// elapsed. Never fails.
func (s *LocalStore) Incr(_ context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	now := s.clock.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.maybeGC(now)

	rec, ok := s.records[key]
	if !ok || now.Sub(rec.windowStart) >= window {
		rec = &localRecord{count: 0, windowStart: now, window: window}
		s.records[key] = rec
	}
	rec.count++

	resetIn := window - now.Sub(rec.windowStart)
	return rec.count, resetIn, nil
}

// maybeGC sweeps expired records, at most once per gcInterval. Caller holds
// the mutex.
func (s *LocalStore) maybeGC(now time.Time) {
	if now.Sub(s.lastGC) < s.gcInterval {
		return
	}
	s.lastGC = now

	for key, rec := range s.records {
		if now.Sub(rec.windowStart) >= rec.window {
			delete(s.records, key)
		}
	}
}

// Len reports the number of tracked keys. Used by tests and diagnostics.
func (s *LocalStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}

var _ Store = (*LocalStore)(nil)

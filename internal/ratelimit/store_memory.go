package ratelimit

import (
	"context"
	"sync"
	"time"
)

type bucket struct {
	count       int64
	windowStart time.Time
}

// MemoryStore is a process-local CounterStore. Buckets are created lazily
// on first observation of a key and swept once they fall out of their
// window, so an idle process does not accumulate dead keys.
type MemoryStore struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	now     func() time.Time

	lastSweep time.Time
}

// NewMemoryStore constructs a MemoryStore using the wall clock.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		buckets: make(map[string]*bucket),
		now:     time.Now,
	}
}

// NewMemoryStoreWithClock constructs a MemoryStore with an injected clock
// so window elapse is testable without sleeping.
func NewMemoryStoreWithClock(now func() time.Time) *MemoryStore {
	return &MemoryStore{
		buckets: make(map[string]*bucket),
		now:     now,
	}
}

// Incr bumps the counter for key within the current window. The increment
// and the window check happen under one lock so two concurrent requests can
// never both observe a pre-increment count under the cap.
func (s *MemoryStore) Incr(ctx context.Context, key string, window time.Duration) (int64, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.maybeSweep(now, window)

	b, ok := s.buckets[key]
	if !ok || now.Sub(b.windowStart) >= window {
		s.buckets[key] = &bucket{count: 1, windowStart: now}
		return 1, nil
	}
	b.count++
	return b.count, nil
}

// Reset clears all counters.
func (s *MemoryStore) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buckets = make(map[string]*bucket)
	return nil
}

// maybeSweep drops expired buckets at most once per window. Caller holds
// the lock.
func (s *MemoryStore) maybeSweep(now time.Time, window time.Duration) {
	if now.Sub(s.lastSweep) < window {
		return
	}
	s.lastSweep = now
	for key, b := range s.buckets {
		if now.Sub(b.windowStart) >= window {
			delete(s.buckets, key)
		}
	}
}

var _ CounterStore = (*MemoryStore)(nil)

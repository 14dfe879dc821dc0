package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// CounterStore is the fixed-window counter the rate limit middleware runs on.
// The Redis client satisfies it in deployments with Redis configured; the
// in-memory store below covers single-instance runs without it.
type CounterStore interface {
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	RateLimitKey(scope string) string
}

type windowCounter struct {
	count     int64
	expiresAt time.Time
}

// MemoryStore is a process-local CounterStore. Counters expire lazily on the
// next increment after their window ends.
type MemoryStore struct {
	mu       sync.Mutex
	counters map[string]*windowCounter
	now      func() time.Time
}

// NewMemoryStore builds an empty in-memory counter store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		counters: make(map[string]*windowCounter),
		now:      time.Now,
	}
}

// IncrWithTTL bumps the counter for key, starting a fresh window with the
// supplied TTL when none is active.
func (s *MemoryStore) IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	counter, ok := s.counters[key]
	if !ok || !now.Before(counter.expiresAt) {
		counter = &windowCounter{expiresAt: now.Add(ttl)}
		s.counters[key] = counter
	}
	counter.count++
	return counter.count, nil
}

// RateLimitKey mirrors the Redis client's key layout so scopes look the same
// in logs regardless of the backing store.
func (s *MemoryStore) RateLimitKey(scope string) string {
	return fmt.Sprintf("pl:rate_limit:%s", scope)
}

package stripewebhook

import (
	"context"
	"fmt"
	"sync"
	"time"
)

type memoryEntry struct {
	expiresAt time.Time
}

// MemoryIdempotencyStore is a single-process fallback for deployments that
// run without Redis. Markers expire lazily on the next lookup.
type MemoryIdempotencyStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryIdempotencyStore() *MemoryIdempotencyStore {
	return &MemoryIdempotencyStore{
		entries: make(map[string]memoryEntry),
		now:     time.Now,
	}
}

func (s *MemoryIdempotencyStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if entry, ok := s.entries[key]; ok && now.Before(entry.expiresAt) {
		return false, nil
	}
	s.entries[key] = memoryEntry{expiresAt: now.Add(ttl)}
	return true, nil
}

func (s *MemoryIdempotencyStore) IdempotencyKey(scope, id string) string {
	return fmt.Sprintf("pl:idempotency:%s:%s", scope, id)
}

func (s *MemoryIdempotencyStore) Del(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.entries, key)
	}
	return nil
}

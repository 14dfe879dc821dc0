package ratelimit

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStoreCountsWithinWindow(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := store.IncrWithTTL(ctx, "pl:rate_limit:ai:203.0.113.9", time.Minute)
		if err != nil {
			t.Fatalf("incr: %v", err)
		}
		if got != want {
			t.Fatalf("expected count %d, got %d", want, got)
		}
	}
}

func TestMemoryStoreResetsAfterWindow(t *testing.T) {
	store := NewMemoryStore()
	current := time.Now()
	store.now = func() time.Time { return current }
	ctx := context.Background()

	if _, err := store.IncrWithTTL(ctx, "pl:rate_limit:ai:203.0.113.9", time.Minute); err != nil {
		t.Fatalf("incr: %v", err)
	}

	current = current.Add(time.Minute)
	got, err := store.IncrWithTTL(ctx, "pl:rate_limit:ai:203.0.113.9", time.Minute)
	if err != nil {
		t.Fatalf("incr: %v", err)
	}
	if got != 1 {
		t.Fatalf("window must reset, got %d", got)
	}
}

func TestMemoryStoreKeysAreIndependent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	if _, err := store.IncrWithTTL(ctx, store.RateLimitKey("ai:203.0.113.9"), time.Minute); err != nil {
		t.Fatalf("incr: %v", err)
	}
	got, err := store.IncrWithTTL(ctx, store.RateLimitKey("ai:198.51.100.7"), time.Minute)
	if err != nil {
		t.Fatalf("incr: %v", err)
	}
	if got != 1 {
		t.Fatalf("distinct clients must not share counters, got %d", got)
	}
}

func TestMemoryStoreKeyLayoutMatchesRedis(t *testing.T) {
	store := NewMemoryStore()
	if got := store.RateLimitKey("ai:203.0.113.9"); got != "pl:rate_limit:ai:203.0.113.9" {
		t.Fatalf("unexpected key %q", got)
	}
}

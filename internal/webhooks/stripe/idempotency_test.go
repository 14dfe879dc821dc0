package stripewebhook

import (
	"context"
	"testing"
	"time"
)

func TestNewIdempotencyGuardRejectsNonPositiveTTL(t *testing.T) {
	store := NewMemoryIdempotencyStore()

	if _, err := NewIdempotencyGuard(store, 0, "stripe"); err == nil {
		t.Fatal("zero ttl must be rejected")
	}
	if _, err := NewIdempotencyGuard(store, -time.Minute, "stripe"); err == nil {
		t.Fatal("negative ttl must be rejected")
	}
	if _, err := NewIdempotencyGuard(store, time.Minute, "stripe"); err != nil {
		t.Fatalf("positive ttl must be accepted: %v", err)
	}
}

func TestIdempotencyGuardMarksAndReleases(t *testing.T) {
	guard, err := NewIdempotencyGuard(NewMemoryIdempotencyStore(), time.Minute, "stripe")
	if err != nil {
		t.Fatalf("new guard: %v", err)
	}
	ctx := context.Background()

	seen, err := guard.CheckAndMark(ctx, "evt_1")
	if err != nil {
		t.Fatalf("first mark: %v", err)
	}
	if seen {
		t.Fatal("first delivery must not be reported as seen")
	}

	seen, err = guard.CheckAndMark(ctx, "evt_1")
	if err != nil {
		t.Fatalf("second mark: %v", err)
	}
	if !seen {
		t.Fatal("duplicate delivery must be reported as seen")
	}

	if err := guard.Delete(ctx, "evt_1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	seen, err = guard.CheckAndMark(ctx, "evt_1")
	if err != nil {
		t.Fatalf("mark after delete: %v", err)
	}
	if seen {
		t.Fatal("released marker must allow reprocessing")
	}
}

func TestMemoryIdempotencyStoreExpiresMarkers(t *testing.T) {
	store := NewMemoryIdempotencyStore()
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()
	key := store.IdempotencyKey("stripe", "evt_ttl")

	set, err := store.SetNX(ctx, key, "1", time.Hour)
	if err != nil || !set {
		t.Fatalf("first set: set=%v err=%v", set, err)
	}
	set, err = store.SetNX(ctx, key, "1", time.Hour)
	if err != nil || set {
		t.Fatalf("marker must hold within its ttl: set=%v err=%v", set, err)
	}

	now = now.Add(time.Hour + time.Second)
	set, err = store.SetNX(ctx, key, "1", time.Hour)
	if err != nil || !set {
		t.Fatalf("expired marker must be reclaimable: set=%v err=%v", set, err)
	}
}

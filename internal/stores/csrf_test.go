package stores

import (
	"context"
	"errors"
	"testing"
	"time"
)

func runPairStoreTests(t *testing.T, store PairStore) {
	t.Helper()
	ctx := context.Background()
	now := time.Now()

	pair := &CSRFPair{
		Secret:    "0123456789abcdefghijklmnopqrstuvwxyzABCDEF",
		ExpiresAt: now.Add(time.Hour).Unix(),
	}
	if err := store.Put(ctx, "sess-1", pair, time.Hour); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := store.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if *got != *pair {
		t.Fatalf("pair mangled: got %+v want %+v", got, pair)
	}

	// Get does not consume.
	if _, err := store.Get(ctx, "sess-1"); err != nil {
		t.Fatalf("second Get failed: %v", err)
	}

	found, err := store.Delete(ctx, "sess-1")
	if err != nil || !found {
		t.Fatalf("Delete failed: found=%v err=%v", found, err)
	}
	if _, err := store.Get(ctx, "sess-1"); !errors.Is(err, ErrPairNotFound) {
		t.Fatalf("expected ErrPairNotFound after delete, got %v", err)
	}

	// Deleting again reports absence without error.
	found, err = store.Delete(ctx, "sess-1")
	if err != nil || found {
		t.Fatalf("repeat Delete: found=%v err=%v", found, err)
	}
}

func TestMemoryPairStore(t *testing.T) {
	runPairStoreTests(t, NewMemoryPairStore())
}

func TestRedisPairStore(t *testing.T) {
	_, client := newTestRedis(t)
	runPairStoreTests(t, NewRedisPairStore(client, ""))
}

func TestMemoryPairStoreSweep(t *testing.T) {
	store := NewMemoryPairStore()
	ctx := context.Background()
	now := time.Now()

	if err := store.Put(ctx, "live", &CSRFPair{Secret: "a", ExpiresAt: now.Add(time.Hour).Unix()}, time.Hour); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	if err := store.Put(ctx, "stale", &CSRFPair{Secret: "b", ExpiresAt: now.Add(-time.Hour).Unix()}, time.Hour); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	removed, err := store.Sweep(ctx, now)
	if err != nil {
		t.Fatalf("Sweep failed: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
	if _, err := store.Get(ctx, "live"); err != nil {
		t.Fatalf("live pair swept: %v", err)
	}
}

func TestRedisPairStoreKeyTTL(t *testing.T) {
	mr, client := newTestRedis(t)
	store := NewRedisPairStore(client, "")
	ctx := context.Background()

	pair := &CSRFPair{Secret: "secret", ExpiresAt: time.Now().Add(time.Minute).Unix()}
	if err := store.Put(ctx, "sess-1", pair, time.Minute); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	mr.FastForward(2 * time.Minute)
	if _, err := store.Get(ctx, "sess-1"); !errors.Is(err, ErrPairNotFound) {
		t.Fatalf("expected pair expired by key TTL, got %v", err)
	}
}

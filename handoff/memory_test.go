package handoff

import (
	"context"
	"testing"
	"time"
)

func TestMemoryStore_RoundTrip(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	rec := Record{
		CompanyName: "Acme Corp",
		Amount:      5000,
		Currency:    "USD",
		ClientEmail: "john@acme.com",
		ClientName:  "John Smith",
	}
	if err := store.Put(ctx, "env-123", rec, DefaultTTL); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, ok, err := store.Get(ctx, "env-123")
	if err != nil || !ok {
		t.Fatalf("expected hit, got ok=%v err=%v", ok, err)
	}
	if got != rec {
		t.Fatalf("expected record preserved, got %+v", got)
	}
}

func TestMemoryStore_ReReadIsIdempotent(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	rec := Record{CompanyName: "Acme Corp", Amount: 5000, Currency: "USD"}
	store.Put(ctx, "env-123", rec, DefaultTTL)

	for i := 0; i < 3; i++ {
		got, ok, _ := store.Get(ctx, "env-123")
		if !ok || got != rec {
			t.Fatalf("read %d: expected record still present, got ok=%v rec=%+v", i, ok, got)
		}
	}
}

func TestMemoryStore_ExpiresAfterRetention(t *testing.T) {
	store := NewMemoryStore()
	clock := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return clock }

	ctx := context.Background()
	store.Put(ctx, "env-123", Record{CompanyName: "Acme Corp", Amount: 5000}, DefaultTTL)

	clock = clock.Add(DefaultTTL + time.Minute)
	if _, ok, _ := store.Get(ctx, "env-123"); ok {
		t.Fatal("expected miss after retention window")
	}
}

func TestMemoryStore_MissForUnknownEnvelope(t *testing.T) {
	store := NewMemoryStore()
	if _, ok, err := store.Get(context.Background(), "env-nope"); ok || err != nil {
		t.Fatalf("expected clean miss, got ok=%v err=%v", ok, err)
	}
}

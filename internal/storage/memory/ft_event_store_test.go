package memory

import (
	"context"
	"testing"

	"balance-history/internal/domain"
)

func transfer(ts, from, to, amount string) *domain.FTEvent {
	return &domain.FTEvent{
		BlockHeight:    ts,
		BlockTimestamp: ts,
		Amount:         amount,
		EventKind:      "TRANSFER",
		OldOwnerID:     from,
		NewOwnerID:     to,
	}
}

func TestFTEventStore_FiltersByAccountAndContract(t *testing.T) {
	store := NewFTEventStore()
	ctx := context.Background()

	err := store.Add("usdt.near",
		transfer("1", "", "alice.near", "100"),
		transfer("2", "alice.near", "bob.near", "30"),
		transfer("3", "carol.near", "dave.near", "5"),
		transfer("4", "bob.near", "alice.near", "10"),
	)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	if err := store.Add("wrap.near", transfer("2", "alice.near", "bob.near", "7")); err != nil {
		t.Fatalf("Add failed: %v", err)
	}

	events, err := store.FTHistory(ctx, "usdt.near", "alice.near", domain.Cursor{BlockTimestamp: 5, Limit: 10})
	if err != nil {
		t.Fatalf("FTHistory failed: %v", err)
	}

	wantAmounts := []string{"10", "30", "100"}
	if len(events) != len(wantAmounts) {
		t.Fatalf("expected %d events, got %d", len(wantAmounts), len(events))
	}
	for i, e := range events {
		if e.Amount != wantAmounts[i] {
			t.Errorf("event %d: got amount %s, want %s", i, e.Amount, wantAmounts[i])
		}
	}

	// Strict upper bound
	events, err = store.FTHistory(ctx, "usdt.near", "alice.near", domain.Cursor{BlockTimestamp: 4, Limit: 10})
	if err != nil {
		t.Fatalf("FTHistory failed: %v", err)
	}
	if len(events) != 2 || events[0].Amount != "30" {
		t.Errorf("expected events strictly older than 4, got %+v", events)
	}
}

func TestFTEventStore_UnknownContract(t *testing.T) {
	store := NewFTEventStore()

	events, err := store.FTHistory(context.Background(), "nope.near", "alice.near", domain.Cursor{BlockTimestamp: 5, Limit: 10})
	if err != nil {
		t.Fatalf("FTHistory failed: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("expected no events, got %d", len(events))
	}
}

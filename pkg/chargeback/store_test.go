package chargeback

import (
	"context"
	"path/filepath"
	"testing"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "budgets.db"))
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreSetGetBudget(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.SetBudget(ctx, "tag:team", "data", 1000); err != nil {
		t.Fatalf("SetBudget: %v", err)
	}

	got, err := store.GetBudget(ctx, "tag:team", "data")
	if err != nil {
		t.Fatalf("GetBudget: %v", err)
	}
	if got == nil {
		t.Fatal("GetBudget returned nil for existing allocation")
	}
	if got.Amount != 1000 || got.Value != "data" || got.Dimension != "tag:team" {
		t.Errorf("got %+v", got)
	}
}

func TestStoreUpsert(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.SetBudget(ctx, "cluster", "c-1", 100); err != nil {
		t.Fatalf("SetBudget: %v", err)
	}
	if err := store.SetBudget(ctx, "cluster", "c-1", 250); err != nil {
		t.Fatalf("SetBudget (update): %v", err)
	}

	got, err := store.GetBudget(ctx, "cluster", "c-1")
	if err != nil {
		t.Fatalf("GetBudget: %v", err)
	}
	if got.Amount != 250 {
		t.Errorf("Amount = %v, want 250", got.Amount)
	}
}

func TestStoreGetMissing(t *testing.T) {
	store := testStore(t)

	got, err := store.GetBudget(context.Background(), "cluster", "no-such")
	if err != nil {
		t.Fatalf("GetBudget: %v", err)
	}
	if got != nil {
		t.Errorf("got %+v, want nil", got)
	}
}

func TestStoreListBudgets(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	for value, amount := range map[string]float64{"beta": 200, "alpha": 100} {
		if err := store.SetBudget(ctx, "tag:project", value, amount); err != nil {
			t.Fatalf("SetBudget: %v", err)
		}
	}
	if err := store.SetBudget(ctx, "cluster", "c-1", 50); err != nil {
		t.Fatalf("SetBudget: %v", err)
	}

	got, err := store.ListBudgets(ctx, "tag:project")
	if err != nil {
		t.Fatalf("ListBudgets: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d allocations, want 2", len(got))
	}
	// Sorted by value.
	if got[0].Value != "alpha" || got[1].Value != "beta" {
		t.Errorf("got order [%s %s], want [alpha beta]", got[0].Value, got[1].Value)
	}
}

func TestStoreDeleteBudget(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.SetBudget(ctx, "cluster", "c-1", 100); err != nil {
		t.Fatalf("SetBudget: %v", err)
	}
	if err := store.DeleteBudget(ctx, "cluster", "c-1"); err != nil {
		t.Fatalf("DeleteBudget: %v", err)
	}
	got, err := store.GetBudget(ctx, "cluster", "c-1")
	if err != nil {
		t.Fatalf("GetBudget: %v", err)
	}
	if got != nil {
		t.Errorf("allocation survived delete: %+v", got)
	}

	// Deleting again is not an error.
	if err := store.DeleteBudget(ctx, "cluster", "c-1"); err != nil {
		t.Errorf("second delete: %v", err)
	}
}

func TestStoreValidation(t *testing.T) {
	store := testStore(t)
	ctx := context.Background()

	if err := store.SetBudget(ctx, "", "v", 1); err == nil {
		t.Error("empty dimension accepted")
	}
	if err := store.SetBudget(ctx, "cluster", "", 1); err == nil {
		t.Error("empty value accepted")
	}
	if err := store.SetBudget(ctx, "cluster", "c-1", -5); err == nil {
		t.Error("negative amount accepted")
	}
}

func TestStoreCloseIdempotent(t *testing.T) {
	store := testStore(t)
	if err := store.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
}

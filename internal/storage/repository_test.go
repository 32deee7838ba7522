package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"wallet/internal/core"
	"wallet/internal/store"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "wallet.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestSQLiteRepository_TransactionsRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	at := time.Date(2024, 3, 10, 23, 59, 59, 0, time.UTC)
	tx := core.NewTransaction("Groceries", decimal.RequireFromString("19.99"), "Food", core.Expense, at)
	if err := repo.AddTransaction(ctx, tx); err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}

	got, err := repo.GetTransactions(ctx)
	if err != nil {
		t.Fatalf("GetTransactions: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 transaction, got %d", len(got))
	}
	if got[0].ID != tx.ID || got[0].Title != "Groceries" || got[0].Kind != core.Expense {
		t.Fatalf("unexpected transaction %+v", got[0])
	}
	if !got[0].Amount.Equal(tx.Amount) {
		t.Fatalf("amount = %s, want %s", got[0].Amount, tx.Amount)
	}
	if !got[0].Timestamp.Equal(at) {
		t.Fatalf("timestamp = %v, want %v", got[0].Timestamp, at)
	}

	one, err := repo.GetTransaction(ctx, tx.ID)
	if err != nil || one.ID != tx.ID {
		t.Fatalf("GetTransaction: %+v, %v", one, err)
	}
	if _, err := repo.GetTransaction(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteRepository_UpdateDelete(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	tx := core.NewTransaction("Bus", decimal.NewFromInt(3), "Transport", core.Expense, time.Now())
	if err := repo.AddTransaction(ctx, tx); err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}

	tx.Amount = decimal.RequireFromString("3.50")
	if err := repo.UpdateTransaction(ctx, tx); err != nil {
		t.Fatalf("UpdateTransaction: %v", err)
	}
	got, _ := repo.GetTransaction(ctx, tx.ID)
	if got.Amount.String() != "3.5" {
		t.Fatalf("amount = %s, want 3.5", got.Amount)
	}

	ghost := core.NewTransaction("Ghost", decimal.NewFromInt(1), "Other", core.Expense, time.Now())
	if err := repo.UpdateTransaction(ctx, ghost); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := repo.DeleteTransaction(ctx, tx.ID); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	if err := repo.DeleteTransaction(ctx, tx.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

func TestSQLiteRepository_Settings(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	b, err := repo.GetMonthlyBudget(ctx)
	if err != nil || !b.IsZero() {
		t.Fatalf("expected zero budget, got %s (%v)", b, err)
	}
	if err := repo.SaveMonthlyBudget(ctx, decimal.NewFromInt(-1)); !errors.Is(err, core.ErrNegativeBudget) {
		t.Fatalf("expected ErrNegativeBudget, got %v", err)
	}
	if err := repo.SaveMonthlyBudget(ctx, decimal.RequireFromString("1500.25")); err != nil {
		t.Fatalf("SaveMonthlyBudget: %v", err)
	}
	if err := repo.SaveMonthlyBudget(ctx, decimal.NewFromInt(1000)); err != nil {
		t.Fatalf("SaveMonthlyBudget overwrite: %v", err)
	}
	b, _ = repo.GetMonthlyBudget(ctx)
	if !b.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("budget = %s, want 1000", b)
	}

	c, _ := repo.GetSelectedCurrency(ctx)
	if c != "" {
		t.Fatalf("expected unset currency, got %q", c)
	}
	_ = repo.SaveSelectedCurrency(ctx, "EUR")
	c, _ = repo.GetSelectedCurrency(ctx)
	if c != "EUR" {
		t.Fatalf("currency = %q, want EUR", c)
	}
}

func TestSQLiteRepository_ReplaceAll(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	old := core.NewTransaction("Old", decimal.NewFromInt(5), "Food", core.Expense, time.Now())
	_ = repo.AddTransaction(ctx, old)
	_ = repo.SaveSelectedCurrency(ctx, "GBP")

	snap := store.Snapshot{
		Version:  store.SnapshotVersion,
		Budget:   decimal.NewFromInt(800),
		Currency: "USD",
		Transactions: []core.Transaction{
			core.NewTransaction("Salary", decimal.NewFromInt(3000), "Salary", core.Income, time.Now()),
			core.NewTransaction("Rent", decimal.NewFromInt(1200), "Bills", core.Expense, time.Now()),
		},
	}
	if err := repo.ReplaceAll(ctx, snap); err != nil {
		t.Fatalf("ReplaceAll: %v", err)
	}

	got, _ := repo.GetTransactions(ctx)
	if len(got) != 2 {
		t.Fatalf("expected 2 transactions after restore, got %d", len(got))
	}
	for _, tx := range got {
		if tx.ID == old.ID {
			t.Fatalf("old transaction survived restore")
		}
	}
	b, _ := repo.GetMonthlyBudget(ctx)
	c, _ := repo.GetSelectedCurrency(ctx)
	if !b.Equal(decimal.NewFromInt(800)) || c != "USD" {
		t.Fatalf("settings after restore: %s %s", b, c)
	}

	bad := store.Snapshot{Transactions: []core.Transaction{{ID: "x"}}}
	if err := repo.ReplaceAll(ctx, bad); err == nil {
		t.Fatalf("expected validation error")
	}
	got, _ = repo.GetTransactions(ctx)
	if len(got) != 2 {
		t.Fatalf("failed restore must not wipe data, got %d", len(got))
	}
}

func TestSQLiteRepository_SyncStatus(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	a := core.NewTransaction("A", decimal.NewFromInt(1), "Food", core.Expense, time.Now())
	b := core.NewTransaction("B", decimal.NewFromInt(2), "Food", core.Expense, time.Now())
	_ = repo.AddTransaction(ctx, a)
	_ = repo.AddTransaction(ctx, b)

	pending, err := repo.PendingSync(ctx, 10)
	if err != nil || len(pending) != 2 {
		t.Fatalf("PendingSync = %d, %v", len(pending), err)
	}

	if err := repo.MarkSynced(ctx, a.ID); err != nil {
		t.Fatalf("MarkSynced: %v", err)
	}
	if err := repo.MarkSyncError(ctx, b.ID); err != nil {
		t.Fatalf("MarkSyncError: %v", err)
	}
	pending, _ = repo.PendingSync(ctx, 10)
	if len(pending) != 0 {
		t.Fatalf("expected nothing pending, got %d", len(pending))
	}
}

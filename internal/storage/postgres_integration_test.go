//go:build integration

package storage

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"wallet/internal/core"
	"wallet/internal/store"
)

// Run with: WALLET_TEST_DATABASE_URL=postgres://... go test -tags=integration ./internal/storage

func TestIntegration_PostgresRepository(t *testing.T) {
	url := os.Getenv("WALLET_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("WALLET_TEST_DATABASE_URL not set, skipping integration test")
	}

	ctx := context.Background()
	repo, err := NewPostgresRepository(ctx, url)
	if err != nil {
		t.Fatalf("NewPostgresRepository: %v", err)
	}
	defer repo.Close()

	if err := repo.ReplaceAll(ctx, store.Snapshot{Budget: decimal.Zero}); err != nil {
		t.Fatalf("reset: %v", err)
	}

	tx := core.NewTransaction("Coffee", decimal.RequireFromString("4.20"), "Food", core.Expense, time.Now())
	if err := repo.AddTransaction(ctx, tx); err != nil {
		t.Fatalf("AddTransaction: %v", err)
	}
	got, err := repo.GetTransaction(ctx, tx.ID)
	if err != nil {
		t.Fatalf("GetTransaction: %v", err)
	}
	if !got.Amount.Equal(tx.Amount) {
		t.Fatalf("amount = %s, want %s", got.Amount, tx.Amount)
	}
	if _, err := repo.GetTransaction(ctx, "not-a-uuid"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := repo.SaveMonthlyBudget(ctx, decimal.NewFromInt(1000)); err != nil {
		t.Fatalf("SaveMonthlyBudget: %v", err)
	}
	b, _ := repo.GetMonthlyBudget(ctx)
	if !b.Equal(decimal.NewFromInt(1000)) {
		t.Fatalf("budget = %s", b)
	}

	pending, _ := repo.PendingSync(ctx, 5)
	if len(pending) != 1 {
		t.Fatalf("expected 1 pending, got %d", len(pending))
	}
	if err := repo.DeleteTransaction(ctx, tx.ID); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
}

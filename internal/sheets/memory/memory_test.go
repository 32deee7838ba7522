package memory

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"wallet/internal/core"
)

func TestSheet_AppendAndContains(t *testing.T) {
	ctx := context.Background()
	s := New()
	tx := core.NewTransaction("Coffee", decimal.NewFromInt(3), "Food", core.Expense, time.Now())

	ok, _ := s.Contains(ctx, tx)
	if ok {
		t.Fatal("empty sheet should not contain anything")
	}

	ref, err := s.Append(ctx, tx)
	if err != nil {
		t.Fatalf("Append: %v", err)
	}
	if ref != "mem:1" {
		t.Fatalf("ref = %q, want mem:1", ref)
	}
	if ok, _ := s.Contains(ctx, tx); !ok {
		t.Fatal("appended transaction should be found")
	}
	if len(s.Rows()) != 1 {
		t.Fatalf("rows = %d, want 1", len(s.Rows()))
	}
}

func TestSheet_AppendValidates(t *testing.T) {
	if _, err := New().Append(context.Background(), core.Transaction{ID: "x"}); err == nil {
		t.Fatal("expected validation error")
	}
}

package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseKind(t *testing.T) {
	cases := []struct {
		in   string
		want Kind
		ok   bool
	}{
		{"income", Income, true},
		{" Expense ", Expense, true},
		{"INCOME", Income, true},
		{"transfer", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseKind(tc.in)
		if tc.ok {
			if err != nil || got != tc.want {
				t.Fatalf("%q expected %q, got %q (err=%v)", tc.in, tc.want, got, err)
			}
			continue
		}
		if !errors.Is(err, ErrInvalidKind) {
			t.Fatalf("%q expected ErrInvalidKind, got %v", tc.in, err)
		}
	}
}

func TestTransactionValidate(t *testing.T) {
	ts := time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)
	good := NewTransaction("Lunch", decimal.RequireFromString("12.50"), "Food", Expense, ts)
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if good.ID == "" {
		t.Fatalf("expected generated id")
	}

	zero := good
	zero.Amount = decimal.Zero
	if err := zero.Validate(); err != nil {
		t.Fatalf("zero amount should be accepted, got %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Transaction)
		want   error
	}{
		{"blank title", func(tx *Transaction) { tx.Title = "  " }, ErrEmptyTitle},
		{"negative amount", func(tx *Transaction) { tx.Amount = decimal.NewFromInt(-1) }, ErrInvalidAmount},
		{"blank category", func(tx *Transaction) { tx.Category = "" }, ErrEmptyCategory},
		{"unknown kind", func(tx *Transaction) { tx.Kind = "transfer" }, ErrInvalidKind},
		{"zero timestamp", func(tx *Transaction) { tx.Timestamp = time.Time{} }, ErrMissingTimestamp},
	}
	for _, tc := range cases {
		tx := good
		tc.mutate(&tx)
		if err := tx.Validate(); !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
		if !IsValidationError(tx.Validate()) {
			t.Fatalf("%s: expected a validation error", tc.name)
		}
	}
}

func TestBudgetConfigValidate(t *testing.T) {
	if err := (BudgetConfig{MonthlyLimit: decimal.Zero, CurrencyCode: "USD"}).Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := (BudgetConfig{MonthlyLimit: decimal.NewFromInt(-5), CurrencyCode: "USD"}).Validate(); !errors.Is(err, ErrNegativeBudget) {
		t.Fatalf("expected ErrNegativeBudget, got %v", err)
	}
	if err := (BudgetConfig{MonthlyLimit: decimal.NewFromInt(5), CurrencyCode: "XYZ"}).Validate(); !errors.Is(err, ErrUnsupportedCurrency) {
		t.Fatalf("expected ErrUnsupportedCurrency, got %v", err)
	}
}

func TestIsSupportedCurrency(t *testing.T) {
	for _, code := range []string{"USD", "eur", " LKR "} {
		if !IsSupportedCurrency(code) {
			t.Fatalf("%q should be supported", code)
		}
	}
	if IsSupportedCurrency("CHF") {
		t.Fatalf("CHF is not offered")
	}
}

func TestValidateTransactions(t *testing.T) {
	at := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	a := NewTransaction("a", decimal.NewFromInt(1), "Food", Expense, at)
	b := NewTransaction("b", decimal.NewFromInt(2), "Food", Expense, at)
	noID := b
	noID.ID = ""
	badTitle := b
	badTitle.Title = ""

	cases := []struct {
		name string
		txs  []Transaction
		want error
	}{
		{"empty set", nil, nil},
		{"unique", []Transaction{a, b}, nil},
		{"duplicate", []Transaction{a, b, a}, ErrDuplicateID},
		{"missing id", []Transaction{a, noID}, ErrMissingID},
		{"invalid field", []Transaction{badTitle}, ErrEmptyTitle},
	}
	for _, tc := range cases {
		err := ValidateTransactions(tc.txs)
		if tc.want == nil {
			if err != nil {
				t.Fatalf("%s: unexpected error %v", tc.name, err)
			}
			continue
		}
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, err)
		}
		if !IsValidationError(err) {
			t.Fatalf("%s: %v should be a validation error", tc.name, err)
		}
	}
}

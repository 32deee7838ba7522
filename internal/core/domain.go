package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	Income  Kind = "income"
	Expense Kind = "expense"
)

const DefaultCurrency = "USD"

type (
	// Kind tells whether a transaction adds to or subtracts from the balance.
	Kind string

	Transaction struct {
		ID        string          `json:"id"`
		Title     string          `json:"title"`
		Amount    decimal.Decimal `json:"amount"`
		Category  string          `json:"category"`
		Kind      Kind            `json:"kind"`
		Timestamp time.Time       `json:"timestamp"`
	}

	BudgetConfig struct {
		MonthlyLimit decimal.Decimal `json:"monthly_limit"`
		CurrencyCode string          `json:"currency"`
	}
)

var (
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrEmptyTitle          = errors.New("title is required")
	ErrTitleTooLong        = errors.New("title too long (max 200 characters)")
	ErrEmptyCategory       = errors.New("category is required")
	ErrInvalidKind         = errors.New("invalid transaction kind")
	ErrMissingTimestamp    = errors.New("timestamp is required")
	ErrNegativeBudget      = errors.New("budget must not be negative")
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	ErrMissingID           = errors.New("transaction id is required")
	ErrDuplicateID         = errors.New("duplicate transaction id")
)

// DefaultCategories are offered when recording a transaction.
var DefaultCategories = []string{
	"Salary", "Bonus", "Investment",
	"Food", "Transport", "Entertainment", "Bills", "Shopping", "Other",
}

// SupportedCurrencies lists the ISO 4217 codes a user may select.
var SupportedCurrencies = []string{
	"USD", "EUR", "GBP", "JPY", "INR", "AUD", "CAD", "LKR", "CNY", "SGD",
	"MYR", "THB", "IDR", "PHP", "VND", "KRW", "AED", "SAR", "QAR",
}

// ParseKind accepts "income" or "expense" in any case.
func ParseKind(s string) (Kind, error) {
	switch Kind(strings.ToLower(strings.TrimSpace(s))) {
	case Income:
		return Income, nil
	case Expense:
		return Expense, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
}

func (k Kind) Validate() error {
	if k != Income && k != Expense {
		return ErrInvalidKind
	}
	return nil
}

// Label is the capitalised form used in category keys.
func (k Kind) Label() string {
	if k == Income {
		return "Income"
	}
	return "Expense"
}

// NewTransaction builds a transaction with a fresh ID. It is not validated.
func NewTransaction(title string, amount decimal.Decimal, category string, kind Kind, ts time.Time) Transaction {
	return Transaction{
		ID:        uuid.NewString(),
		Title:     strings.TrimSpace(title),
		Amount:    amount,
		Category:  strings.TrimSpace(category),
		Kind:      kind,
		Timestamp: ts,
	}
}

func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Title) == "" {
		return ErrEmptyTitle
	}
	if len(t.Title) > 200 {
		return ErrTitleTooLong
	}
	if t.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrEmptyCategory
	}
	if err := t.Kind.Validate(); err != nil {
		return err
	}
	if t.Timestamp.IsZero() {
		return ErrMissingTimestamp
	}
	return nil
}

// ValidateTransactions checks every transaction of a set that is loaded as a
// whole, e.g. from a backup. IDs must be present and unique.
func ValidateTransactions(txs []Transaction) error {
	seen := make(map[string]struct{}, len(txs))
	for i, tx := range txs {
		if strings.TrimSpace(tx.ID) == "" {
			return fmt.Errorf("transaction %d: %w", i, ErrMissingID)
		}
		if _, dup := seen[tx.ID]; dup {
			return fmt.Errorf("transaction %d: %w: %q", i, ErrDuplicateID, tx.ID)
		}
		seen[tx.ID] = struct{}{}
		if err := tx.Validate(); err != nil {
			return fmt.Errorf("transaction %d: %w", i, err)
		}
	}
	return nil
}

func (b BudgetConfig) Validate() error {
	if b.MonthlyLimit.IsNegative() {
		return ErrNegativeBudget
	}
	if !IsSupportedCurrency(b.CurrencyCode) {
		return fmt.Errorf("%w: %q", ErrUnsupportedCurrency, b.CurrencyCode)
	}
	return nil
}

// IsSupportedCurrency reports whether code is in SupportedCurrencies.
func IsSupportedCurrency(code string) bool {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, c := range SupportedCurrencies {
		if c == code {
			return true
		}
	}
	return false
}

// IsValidationError reports whether err came from input validation.
func IsValidationError(err error) bool {
	for _, target := range []error{
		ErrInvalidAmount, ErrEmptyTitle, ErrTitleTooLong, ErrEmptyCategory, ErrInvalidKind,
		ErrMissingTimestamp, ErrNegativeBudget, ErrUnsupportedCurrency,
		ErrMissingID, ErrDuplicateID,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

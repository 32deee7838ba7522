// Package store defines the persistence ports the wallet services depend on.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"wallet/internal/core"
)

//go:generate mockgen -destination=store_mock.go -package=store . Store

var ErrNotFound = errors.New("transaction not found")

// SnapshotVersion is written into every backup.
const SnapshotVersion = 1

type (
	TransactionReader interface {
		GetTransactions(ctx context.Context) ([]core.Transaction, error)
	}

	TransactionWriter interface {
		AddTransaction(ctx context.Context, tx core.Transaction) error
		// UpdateTransaction returns ErrNotFound when no transaction has tx.ID.
		UpdateTransaction(ctx context.Context, tx core.Transaction) error
		DeleteTransaction(ctx context.Context, id string) error
	}

	// BudgetStore persists the monthly limit. An unset limit reads as zero.
	BudgetStore interface {
		GetMonthlyBudget(ctx context.Context) (decimal.Decimal, error)
		SaveMonthlyBudget(ctx context.Context, amount decimal.Decimal) error
	}

	// CurrencyStore persists the selected currency. An unset value reads as "".
	CurrencyStore interface {
		GetSelectedCurrency(ctx context.Context) (string, error)
		SaveSelectedCurrency(ctx context.Context, code string) error
	}

	// Snapshotter replaces the whole data set, used by restore.
	Snapshotter interface {
		ReplaceAll(ctx context.Context, snap Snapshot) error
	}

	Store interface {
		TransactionReader
		TransactionWriter
		BudgetStore
		CurrencyStore
		Snapshotter
		Close() error
	}
)

// Snapshot is the backup document.
type Snapshot struct {
	Version      int                `json:"version"`
	CreatedAt    time.Time          `json:"created_at"`
	Budget       decimal.Decimal    `json:"budget"`
	Currency     string             `json:"currency"`
	Transactions []core.Transaction `json:"transactions"`
}

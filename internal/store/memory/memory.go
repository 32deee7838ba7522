package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"wallet/internal/core"
	"wallet/internal/store"
)

// Store keeps everything in process memory. It is used for development and
// tests; data is lost on exit.
type Store struct {
	mu       sync.Mutex
	items    []core.Transaction
	budget   decimal.Decimal
	currency string
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{budget: decimal.Zero}
}

// NewFromFile seeds the store from a backup document.
func NewFromFile(path string) (*Store, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var snap store.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return nil, fmt.Errorf("decode seed file: %w", err)
	}
	s := New()
	if err := s.ReplaceAll(context.Background(), snap); err != nil {
		return nil, err
	}
	return s, nil
}

// GetTransactions returns a copy ordered by timestamp, newest first.
func (s *Store) GetTransactions(_ context.Context) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]core.Transaction(nil), s.items...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out, nil
}

func (s *Store) AddTransaction(_ context.Context, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range s.items {
		if it.ID == tx.ID {
			return fmt.Errorf("transaction %s already exists", tx.ID)
		}
	}
	s.items = append(s.items, tx)
	return nil
}

func (s *Store) UpdateTransaction(_ context.Context, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == tx.ID {
			s.items[i] = tx
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) DeleteTransaction(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.items {
		if s.items[i].ID == id {
			s.items = append(s.items[:i], s.items[i+1:]...)
			return nil
		}
	}
	return store.ErrNotFound
}

func (s *Store) GetMonthlyBudget(_ context.Context) (decimal.Decimal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.budget, nil
}

func (s *Store) SaveMonthlyBudget(_ context.Context, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return core.ErrNegativeBudget
	}
	s.mu.Lock()
	s.budget = amount
	s.mu.Unlock()
	return nil
}

func (s *Store) GetSelectedCurrency(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currency, nil
}

func (s *Store) SaveSelectedCurrency(_ context.Context, code string) error {
	s.mu.Lock()
	s.currency = code
	s.mu.Unlock()
	return nil
}

// ReplaceAll wipes the store and loads snap.
func (s *Store) ReplaceAll(_ context.Context, snap store.Snapshot) error {
	if err := core.ValidateTransactions(snap.Transactions); err != nil {
		return err
	}
	if snap.Budget.IsNegative() {
		return core.ErrNegativeBudget
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append([]core.Transaction(nil), snap.Transactions...)
	s.budget = snap.Budget
	s.currency = snap.Currency
	return nil
}

func (s *Store) Close() error { return nil }

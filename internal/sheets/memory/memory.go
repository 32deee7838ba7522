// Package memory is an in-process spreadsheet mirror for development and tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"wallet/internal/core"
	"wallet/internal/sheets"
)

var _ sheets.Mirror = (*Sheet)(nil)

type Sheet struct {
	mu   sync.Mutex
	rows []core.Transaction
	ids  map[string]int
}

func New() *Sheet {
	return &Sheet{ids: make(map[string]int)}
}

// Append stores tx and returns a synthetic row reference.
func (s *Sheet) Append(_ context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, tx)
	s.ids[tx.ID] = len(s.rows)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

func (s *Sheet) Contains(_ context.Context, tx core.Transaction) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.ids[tx.ID]
	return ok, nil
}

// Rows returns a copy of the mirrored transactions in append order.
func (s *Sheet) Rows() []core.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.Transaction(nil), s.rows...)
}

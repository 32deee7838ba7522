package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Summary is the result of aggregating a set of transactions.
type Summary struct {
	TotalIncome      decimal.Decimal            `json:"total_income"`
	TotalExpense     decimal.Decimal            `json:"total_expense"`
	TotalBalance     decimal.Decimal            `json:"total_balance"`
	CategorySpending map[string]decimal.Decimal `json:"category_spending"`
}

// CategoryAmount represents an amount aggregated under one category key.
type CategoryAmount struct {
	Key    string          `json:"key"`
	Amount decimal.Decimal `json:"amount"`
}

// CategoryKey builds the map key for a (kind, category) pair, e.g. "Expense: Food".
func CategoryKey(kind Kind, category string) string {
	return kind.Label() + ": " + category
}

// Aggregate folds transactions into totals and a per-(kind, category) map.
// It never fails and has no side effects; an empty input yields zero totals
// and an empty map.
func Aggregate(txs []Transaction) Summary {
	s := Summary{
		TotalIncome:      decimal.Zero,
		TotalExpense:     decimal.Zero,
		TotalBalance:     decimal.Zero,
		CategorySpending: make(map[string]decimal.Decimal),
	}
	for _, tx := range txs {
		switch tx.Kind {
		case Income:
			s.TotalIncome = s.TotalIncome.Add(tx.Amount)
		case Expense:
			s.TotalExpense = s.TotalExpense.Add(tx.Amount)
		default:
			continue
		}
		key := CategoryKey(tx.Kind, tx.Category)
		s.CategorySpending[key] = s.CategorySpending[key].Add(tx.Amount)
	}
	s.TotalBalance = s.TotalIncome.Sub(s.TotalExpense)
	return s
}

// Categories returns the category map sorted by key.
func (s Summary) Categories() []CategoryAmount {
	out := make([]CategoryAmount, 0, len(s.CategorySpending))
	for k, v := range s.CategorySpending {
		out = append(out, CategoryAmount{Key: k, Amount: v})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// MonthOverview is a summary for a specific year+month.
type MonthOverview struct {
	Year    int     `json:"year"`
	Month   int     `json:"month"` // 1-12
	Summary Summary `json:"summary"`
}

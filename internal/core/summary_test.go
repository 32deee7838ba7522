package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func tx(title, amount, category string, kind Kind, ts time.Time) Transaction {
	return NewTransaction(title, dec(amount), category, kind, ts)
}

func TestAggregate_Empty(t *testing.T) {
	s := Aggregate(nil)

	assert.True(t, s.TotalIncome.IsZero())
	assert.True(t, s.TotalExpense.IsZero())
	assert.True(t, s.TotalBalance.IsZero())
	require.NotNil(t, s.CategorySpending)
	assert.Empty(t, s.CategorySpending)
	assert.Empty(t, s.Categories())
}

func TestAggregate_TotalsAndCategories(t *testing.T) {
	now := time.Date(2024, 3, 10, 9, 0, 0, 0, time.UTC)
	txs := []Transaction{
		tx("Paycheck", "1000", "Salary", Income, now),
		tx("Groceries", "200", "Food", Expense, now),
		tx("Dinner", "50", "Food", Expense, now),
	}

	s := Aggregate(txs)

	assert.True(t, s.TotalIncome.Equal(dec("1000")), "income %s", s.TotalIncome)
	assert.True(t, s.TotalExpense.Equal(dec("250")), "expense %s", s.TotalExpense)
	assert.True(t, s.TotalBalance.Equal(dec("750")), "balance %s", s.TotalBalance)
	require.Len(t, s.CategorySpending, 2)
	assert.True(t, s.CategorySpending["Income: Salary"].Equal(dec("1000")))
	assert.True(t, s.CategorySpending["Expense: Food"].Equal(dec("250")))
}

func TestAggregate_SameCategoryDifferentKinds(t *testing.T) {
	now := time.Now()
	s := Aggregate([]Transaction{
		tx("Refund", "30", "Shopping", Income, now),
		tx("Shoes", "80", "Shopping", Expense, now),
	})

	assert.Len(t, s.CategorySpending, 2)
	assert.True(t, s.CategorySpending["Income: Shopping"].Equal(dec("30")))
	assert.True(t, s.CategorySpending["Expense: Shopping"].Equal(dec("80")))
}

func TestAggregate_Invariants(t *testing.T) {
	now := time.Now()
	txs := []Transaction{
		tx("a", "0.10", "Food", Expense, now),
		tx("b", "0.20", "Food", Expense, now),
		tx("c", "1234.56", "Bonus", Income, now),
		tx("d", "99.99", "Bills", Expense, now),
		tx("e", "0.01", "Salary", Income, now),
	}
	s := Aggregate(txs)

	assert.True(t, s.TotalIncome.Sub(s.TotalExpense).Equal(s.TotalBalance))

	income, expense := decimal.Zero, decimal.Zero
	for key, v := range s.CategorySpending {
		switch {
		case len(key) > 7 && key[:7] == "Income:":
			income = income.Add(v)
		case len(key) > 8 && key[:8] == "Expense:":
			expense = expense.Add(v)
		default:
			t.Fatalf("unexpected key %q", key)
		}
	}
	assert.True(t, income.Equal(s.TotalIncome))
	assert.True(t, expense.Equal(s.TotalExpense))
	// exact decimal arithmetic: 0.10 + 0.20 + 99.99
	assert.Equal(t, "100.29", s.TotalExpense.StringFixed(2))
}

func TestAggregate_Pure(t *testing.T) {
	now := time.Now()
	txs := []Transaction{tx("a", "5", "Food", Expense, now)}
	first := Aggregate(txs)
	second := Aggregate(txs)

	assert.True(t, first.TotalExpense.Equal(second.TotalExpense))
	first.CategorySpending["Expense: Food"] = dec("999")
	assert.True(t, second.CategorySpending["Expense: Food"].Equal(dec("5")))
}

func TestSummaryCategories_Sorted(t *testing.T) {
	now := time.Now()
	s := Aggregate([]Transaction{
		tx("a", "1", "Transport", Expense, now),
		tx("b", "2", "Bills", Expense, now),
		tx("c", "3", "Salary", Income, now),
	})

	cats := s.Categories()
	require.Len(t, cats, 3)
	assert.Equal(t, "Expense: Bills", cats[0].Key)
	assert.Equal(t, "Expense: Transport", cats[1].Key)
	assert.Equal(t, "Income: Salary", cats[2].Key)
}

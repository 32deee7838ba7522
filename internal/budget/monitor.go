// Package budget evaluates monthly spending against the configured limit and
// keeps the single active alert.
package budget

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"wallet/internal/core"
)

type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// Tier thresholds, in whole percent of the budget consumed.
const (
	AlertThreshold    = 70
	WarningThreshold  = 90
	ExceededThreshold = 100
)

const (
	TitleExceeded = "Budget Exceeded!"
	TitleWarning  = "Budget Warning!"
	TitleAlert    = "Budget Alert!"
)

var (
	hundred     = decimal.NewFromInt(100)
	maxProgress = decimal.NewFromInt(math.MaxInt32)
)

// Alert is what the monitor produces when spending crosses a tier.
type Alert struct {
	Title     string          `json:"title"`
	Message   string          `json:"message"`
	Severity  Severity        `json:"severity"`
	Progress  int             `json:"progress"`
	Remaining decimal.Decimal `json:"remaining"`
	Overage   decimal.Decimal `json:"overage"`
}

// Progress returns floor(expenses / limit * 100), capped at math.MaxInt32.
// It is 0 when limit <= 0.
func Progress(limit, expenses decimal.Decimal) int {
	if !limit.IsPositive() {
		return 0
	}
	if !expenses.IsPositive() {
		return 0
	}
	q, _ := expenses.Mul(hundred).QuoRem(limit, 0)
	if q.GreaterThan(maxProgress) {
		return math.MaxInt32
	}
	return int(q.IntPart())
}

// Evaluate maps (limit, expenses) to at most one alert. The highest matching
// tier wins and boundaries belong to the higher tier. Amounts in the message
// are rendered in currencyCode.
func Evaluate(limit, expenses decimal.Decimal, currencyCode string) (Alert, bool) {
	if !limit.IsPositive() {
		return Alert{}, false
	}
	progress := Progress(limit, expenses)
	remaining := limit.Sub(expenses)

	a := Alert{Progress: progress, Remaining: remaining, Overage: decimal.Zero}
	switch {
	case progress >= ExceededThreshold:
		a.Title = TitleExceeded
		a.Severity = SeverityWarning
		a.Overage = expenses.Sub(limit)
		a.Message = fmt.Sprintf("You've exceeded your budget by %s", core.FormatCurrency(currencyCode, a.Overage))
	case progress >= WarningThreshold:
		a.Title = TitleWarning
		a.Severity = SeverityWarning
		a.Message = remainingMessage(currencyCode, remaining, progress)
	case progress >= AlertThreshold:
		a.Title = TitleAlert
		a.Severity = SeverityInfo
		a.Message = remainingMessage(currencyCode, remaining, progress)
	default:
		return Alert{}, false
	}
	return a, true
}

func remainingMessage(code string, remaining decimal.Decimal, progress int) string {
	return fmt.Sprintf("You have %s remaining (%d%% left)", core.FormatCurrency(code, remaining), 100-progress)
}

// IsWarning reports whether the alert should be surfaced prominently.
func (a Alert) IsWarning() bool {
	return a.Severity == SeverityWarning
}

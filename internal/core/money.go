// Package core holds the wallet domain: transactions, totals, day and month
// windows, and currency display.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user-entered decimal string into an amount rounded
// half-up to two places.
//
// Both dot (12.34) and comma (12,34) separators are accepted. Signs, empty
// input and anything that is not a plain decimal number are rejected with
// ErrInvalidAmount. Zero is accepted; callers decide whether it is useful.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34
//	ParseAmount("12,345") -> 12.35
//	ParseAmount("-1")     -> ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return decimal.Zero, ErrInvalidAmount
	}
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return decimal.Zero, ErrInvalidAmount
	}
	if parts[0] == "" && (len(parts) == 1 || parts[1] == "") {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, p := range parts {
		for _, r := range p {
			if !unicode.IsDigit(r) {
				return decimal.Zero, ErrInvalidAmount
			}
		}
	}
	if parts[0] == "" {
		s = "0" + s
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d.Round(2), nil
}

// ParseBudget is ParseAmount for the monthly limit, reporting negatives as
// ErrNegativeBudget.
func ParseBudget(s string) (decimal.Decimal, error) {
	if strings.HasPrefix(strings.TrimSpace(s), "-") {
		return decimal.Zero, ErrNegativeBudget
	}
	return ParseAmount(s)
}

// This file implements decoding and validation of request bodies and query
// parameters.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"wallet/internal/core"
	"wallet/internal/services"
)

// maxBodyBytes bounds JSON bodies; a restore document is the largest.
const maxBodyBytes = 8 << 20

var errBadRequest = errors.New("bad request")

// TransactionRequest is the body of POST and PUT /api/transactions.
type TransactionRequest struct {
	Title     string          `json:"title"`
	Amount    decimal.Decimal `json:"amount"`
	Category  string          `json:"category"`
	Kind      string          `json:"kind"`
	Timestamp *time.Time      `json:"timestamp,omitempty"`
}

// Input converts the request to a service input, sanitising free text.
func (t TransactionRequest) Input() (services.TransactionInput, error) {
	kind, err := core.ParseKind(t.Kind)
	if err != nil {
		return services.TransactionInput{}, err
	}
	in := services.TransactionInput{
		Title:    sanitizeInput(t.Title),
		Amount:   t.Amount,
		Category: sanitizeInput(t.Category),
		Kind:     kind,
	}
	if t.Timestamp != nil {
		in.Timestamp = *t.Timestamp
	}
	return in, nil
}

type BudgetRequest struct {
	Amount decimal.Decimal `json:"amount"`
}

type CurrencyRequest struct {
	Currency string `json:"currency"`
}

// decodeJSON reads exactly one JSON value into dst, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	body := http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return err
		}
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errBadRequest)
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data after JSON body", errBadRequest)
	}
	return nil
}

// parseDay reads ?date=YYYY-MM-DD in loc, defaulting to today.
func parseDay(query url.Values, loc *time.Location, now time.Time) (time.Time, error) {
	v := strings.TrimSpace(query.Get("date"))
	if v == "" {
		local := now.In(loc)
		return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc), nil
	}
	day, err := time.ParseInLocation(time.DateOnly, v, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date must be YYYY-MM-DD", errBadRequest)
	}
	return day, nil
}

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month time.Month
}

// parseMonthParams reads ?year=&month= with the current month as default.
// Unlike a silent fallback, malformed values are reported.
func parseMonthParams(query url.Values, now time.Time) (MonthParams, error) {
	params := MonthParams{Year: now.Year(), Month: now.Month()}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 || y > 9999 {
			return MonthParams{}, fmt.Errorf("%w: invalid year %q", errBadRequest, v)
		}
		params.Year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return MonthParams{}, fmt.Errorf("%w: invalid month %q", errBadRequest, v)
		}
		params.Month = time.Month(m)
	}
	return params, nil
}

package core

import "time"

// DayBounds returns the half-open window [start, end) covering the calendar
// day of date in loc. end is computed with calendar arithmetic so days that
// contain a DST transition are 23 or 25 hours long.
func DayBounds(date time.Time, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = date.Location()
	}
	y, m, d := date.In(loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 0, 1)
}

// MonthBounds returns the half-open window covering year/month in loc.
func MonthBounds(year int, month time.Month, loc *time.Location) (time.Time, time.Time) {
	if loc == nil {
		loc = time.Local
	}
	start := time.Date(year, month, 1, 0, 0, 0, 0, loc)
	return start, start.AddDate(0, 1, 0)
}

// Between keeps transactions with start <= timestamp < end, preserving order.
func Between(txs []Transaction, start, end time.Time) []Transaction {
	out := make([]Transaction, 0)
	for _, tx := range txs {
		if !tx.Timestamp.Before(start) && tx.Timestamp.Before(end) {
			out = append(out, tx)
		}
	}
	return out
}

// TransactionsOn returns the transactions recorded on the local calendar day
// of date, using date's own location.
func TransactionsOn(date time.Time, txs []Transaction) []Transaction {
	start, end := DayBounds(date, date.Location())
	return Between(txs, start, end)
}

// TransactionsInMonth returns the transactions recorded in year/month in loc.
func TransactionsInMonth(year int, month time.Month, loc *time.Location, txs []Transaction) []Transaction {
	start, end := MonthBounds(year, month, loc)
	return Between(txs, start, end)
}

// DaySummary aggregates the transactions of one calendar day.
func DaySummary(date time.Time, txs []Transaction) Summary {
	return Aggregate(TransactionsOn(date, txs))
}

// MonthSummary aggregates one calendar month.
func MonthSummary(year int, month time.Month, loc *time.Location, txs []Transaction) MonthOverview {
	return MonthOverview{
		Year:    year,
		Month:   int(month),
		Summary: Aggregate(TransactionsInMonth(year, month, loc, txs)),
	}
}

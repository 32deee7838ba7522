package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"wallet/internal/core"
	"wallet/internal/services"
	"wallet/internal/store"
)

const monthLayout = "2006-01"

type addCmd struct {
	Title    string `arg:"" help:"What the money was for."`
	Amount   string `arg:"" help:"Positive amount, e.g. 12.50 or 12,50."`
	Category string `short:"c" default:"Other" help:"Category name."`
	Kind     string `short:"k" enum:"income,expense" default:"expense" help:"income or expense."`
	Date     string `short:"d" help:"Local date (YYYY-MM-DD) or RFC 3339 timestamp. Defaults to now."`
}

func (c *addCmd) Run(app *appContext) error {
	amount, err := core.ParseAmount(c.Amount)
	if err != nil {
		return err
	}
	kind, err := core.ParseKind(c.Kind)
	if err != nil {
		return err
	}
	in := services.TransactionInput{
		Title:    strings.TrimSpace(c.Title),
		Amount:   amount,
		Category: strings.TrimSpace(c.Category),
		Kind:     kind,
	}
	if c.Date != "" {
		if in.Timestamp, err = parseTimestamp(c.Date, app.svc.Location()); err != nil {
			return err
		}
	}

	tx, err := app.svc.AddTransaction(app.ctx, in)
	if err != nil {
		return err
	}
	fmt.Fprintf(app.out, "Recorded %s %s (%s) as %s\n",
		tx.Kind.Label(), core.FormatCurrency(app.svc.Currency(app.ctx), tx.Amount), tx.Category, tx.ID)
	printAlert(app)
	return nil
}

type listCmd struct {
	Month string `short:"m" help:"Only show one month (YYYY-MM)."`
	Limit int    `short:"n" default:"0" help:"Show at most this many rows; 0 shows all."`
}

func (c *listCmd) Run(app *appContext) error {
	txs := app.svc.Transactions(app.ctx)
	if c.Month != "" {
		year, month, err := parseMonth(c.Month)
		if err != nil {
			return err
		}
		txs = core.TransactionsInMonth(year, month, app.svc.Location(), txs)
	}
	if c.Limit > 0 && len(txs) > c.Limit {
		txs = txs[:c.Limit]
	}

	code := app.svc.Currency(app.ctx)
	tw := tabwriter.NewWriter(app.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tKIND\tCATEGORY\tAMOUNT\tTITLE\tID")
	for _, tx := range txs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			tx.Timestamp.In(app.svc.Location()).Format("2006-01-02 15:04"),
			tx.Kind.Label(), tx.Category, core.FormatCurrency(code, tx.Amount), tx.Title, tx.ID)
	}
	return tw.Flush()
}

type budgetCmd struct {
	Show budgetShowCmd `cmd:"" default:"1" help:"Print the monthly budget and progress."`
	Set  budgetSetCmd  `cmd:"" help:"Change the monthly budget."`
}

type budgetShowCmd struct{}

func (c *budgetShowCmd) Run(app *appContext) error {
	d := app.svc.Dashboard(app.ctx)
	if !d.Budget.IsPositive() {
		fmt.Fprintln(app.out, "No monthly budget set")
		return nil
	}
	fmt.Fprintf(app.out, "Budget:    %s\n", core.FormatCurrency(d.Currency, d.Budget))
	fmt.Fprintf(app.out, "Spent:     %s (%d%%)\n", core.FormatCurrency(d.Currency, d.Month.Summary.TotalExpense), d.Progress)
	fmt.Fprintf(app.out, "Remaining: %s\n", core.FormatCurrency(d.Currency, d.Remaining))
	return nil
}

type budgetSetCmd struct {
	Amount string `arg:"" help:"New monthly limit; 0 disables alerts."`
}

func (c *budgetSetCmd) Run(app *appContext) error {
	amount, err := core.ParseBudget(c.Amount)
	if err != nil {
		return err
	}
	if err := app.svc.UpdateBudget(app.ctx, amount); err != nil {
		return err
	}
	fmt.Fprintf(app.out, "Monthly budget set to %s\n", core.FormatCurrency(app.svc.Currency(app.ctx), amount))
	printAlert(app)
	return nil
}

type currencyCmd struct {
	Show currencyShowCmd `cmd:"" default:"1" help:"Print the display currency."`
	Set  currencySetCmd  `cmd:"" help:"Change the display currency."`
}

type currencyShowCmd struct{}

func (c *currencyShowCmd) Run(app *appContext) error {
	fmt.Fprintln(app.out, app.svc.Currency(app.ctx))
	return nil
}

type currencySetCmd struct {
	Code string `arg:"" help:"ISO 4217 code, e.g. EUR."`
}

func (c *currencySetCmd) Run(app *appContext) error {
	if err := app.svc.SetCurrency(app.ctx, c.Code); err != nil {
		return err
	}
	fmt.Fprintf(app.out, "Currency set to %s\n", app.svc.Currency(app.ctx))
	return nil
}

type summaryCmd struct {
	Month string `short:"m" help:"Month to aggregate (YYYY-MM). Defaults to the current month."`
}

func (c *summaryCmd) Run(app *appContext) error {
	now := time.Now().In(app.svc.Location())
	year, month := now.Year(), now.Month()
	if c.Month != "" {
		var err error
		if year, month, err = parseMonth(c.Month); err != nil {
			return err
		}
	}
	overview := app.svc.MonthSummary(app.ctx, year, month)
	fmt.Fprintf(app.out, "%04d-%02d\n", overview.Year, overview.Month)
	return printSummary(app, overview.Summary)
}

type dayCmd struct {
	Date string `arg:"" optional:"" help:"Local date (YYYY-MM-DD). Defaults to today."`
}

func (c *dayCmd) Run(app *appContext) error {
	date := time.Now()
	if c.Date != "" {
		var err error
		if date, err = time.ParseInLocation(time.DateOnly, c.Date, app.svc.Location()); err != nil {
			return fmt.Errorf("invalid date %q: want YYYY-MM-DD", c.Date)
		}
	}
	day := app.svc.DailySummary(app.ctx, date)
	fmt.Fprintf(app.out, "%s: %d transaction(s)\n", day.Date, len(day.Transactions))
	return printSummary(app, day.Summary)
}

type alertCmd struct{}

func (c *alertCmd) Run(app *appContext) error {
	if _, ok := app.svc.CurrentAlert(); !ok {
		fmt.Fprintln(app.out, "No active budget alert")
		return nil
	}
	printAlert(app)
	return nil
}

type categoriesCmd struct{}

func (c *categoriesCmd) Run(app *appContext) error {
	for _, name := range core.DefaultCategories {
		fmt.Fprintln(app.out, name)
	}
	return nil
}

type backupCmd struct {
	Output string `short:"o" type:"path" help:"File to write; stdout when empty."`
}

func (c *backupCmd) Run(app *appContext) error {
	snap, err := app.svc.Backup(app.ctx)
	if err != nil {
		return err
	}
	if c.Output == "" {
		return writeBackup(app.out, snap)
	}

	f, err := os.Create(c.Output)
	if err != nil {
		return fmt.Errorf("create backup file: %w", err)
	}
	if err := writeBackup(f, snap); err != nil {
		f.Close()
		return err
	}
	// Close flushes to disk; a failure here means the backup is incomplete.
	if err := f.Close(); err != nil {
		return fmt.Errorf("close backup file: %w", err)
	}
	fmt.Fprintf(app.out, "Backed up %d transaction(s) to %s\n", len(snap.Transactions), c.Output)
	return nil
}

func writeBackup(w io.Writer, snap store.Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snap); err != nil {
		return fmt.Errorf("write backup: %w", err)
	}
	return nil
}

type restoreCmd struct {
	File string `arg:"" type:"existingfile" help:"Backup file produced by walletctl backup or GET /api/backup."`
}

func (c *restoreCmd) Run(app *appContext) error {
	f, err := os.Open(c.File)
	if err != nil {
		return err
	}
	defer f.Close()
	snap, err := decodeSnapshot(f)
	if err != nil {
		return err
	}
	if err := app.svc.Restore(app.ctx, snap); err != nil {
		return err
	}
	fmt.Fprintf(app.out, "Restored %d transaction(s)\n", len(snap.Transactions))
	return nil
}

func decodeSnapshot(r io.Reader) (store.Snapshot, error) {
	var snap store.Snapshot
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&snap); err != nil {
		return store.Snapshot{}, fmt.Errorf("read backup: %w", err)
	}
	return snap, nil
}

func printSummary(app *appContext, s core.Summary) error {
	code := app.svc.Currency(app.ctx)
	tw := tabwriter.NewWriter(app.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Income\t%s\n", core.FormatCurrency(code, s.TotalIncome))
	fmt.Fprintf(tw, "Expenses\t%s\n", core.FormatCurrency(code, s.TotalExpense))
	fmt.Fprintf(tw, "Balance\t%s\n", core.FormatCurrency(code, s.TotalBalance))
	for _, c := range s.Categories() {
		fmt.Fprintf(tw, "  %s\t%s\n", c.Key, core.FormatCurrency(code, c.Amount))
	}
	return tw.Flush()
}

func printAlert(app *appContext) {
	if a, ok := app.svc.CurrentAlert(); ok {
		fmt.Fprintf(app.out, "%s %s\n", a.Title, a.Message)
	}
}

func parseMonth(s string) (int, time.Month, error) {
	t, err := time.Parse(monthLayout, strings.TrimSpace(s))
	if err != nil {
		return 0, 0, fmt.Errorf("invalid month %q: want YYYY-MM", s)
	}
	return t.Year(), t.Month(), nil
}

var errBadTimestamp = errors.New("want YYYY-MM-DD or an RFC 3339 timestamp")

// parseTimestamp reads a bare date as local noon so the transaction lands
// on that day even across DST changes.
func parseTimestamp(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	d, err := time.ParseInLocation(time.DateOnly, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, errBadTimestamp)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 12, 0, 0, 0, loc), nil
}

package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"wallet/internal/budget"
	"wallet/internal/cache"
	"wallet/internal/core"
	"wallet/internal/log"
	"wallet/internal/notify"
	"wallet/internal/store"
)

const (
	TitleBudgetSet = "Budget Set"

	summaryCacheSize = 128
	summaryCacheTTL  = 10 * time.Minute
)

var ErrUnsupportedSnapshot = errors.New("unsupported snapshot version")

// SyncPublisher announces stored transactions to the spreadsheet mirror.
type SyncPublisher interface {
	PublishTransactionSync(ctx context.Context, id string) error
}

// Options configures a BudgetService. Zero values fall back to defaults.
type Options struct {
	Location        *time.Location
	DefaultCurrency string
	Sync            SyncPublisher
	Logger          *log.Logger
	Clock           func() time.Time
	Cache           *cache.Manager
	// DispatchTimeout bounds each notification and sync publish.
	DispatchTimeout time.Duration
}

// TransactionInput is an unsaved transaction as entered by a user.
type TransactionInput struct {
	Title     string
	Amount    decimal.Decimal
	Category  string
	Kind      core.Kind
	Timestamp time.Time
}

// DaySummary is the aggregate of one local calendar day.
type DaySummary struct {
	Date         string             `json:"date"`
	Transactions []core.Transaction `json:"transactions"`
	Summary      core.Summary       `json:"summary"`
}

// Dashboard bundles everything the overview screen needs.
type Dashboard struct {
	Overall   core.Summary       `json:"overall"`
	Month     core.MonthOverview `json:"month"`
	Budget    decimal.Decimal    `json:"budget"`
	Currency  string             `json:"currency"`
	Progress  int                `json:"progress"`
	Remaining decimal.Decimal    `json:"remaining"`
	Alert     *budget.Alert      `json:"alert,omitempty"`
}

// BudgetService hosts the aggregation engine and the threshold monitor. Every
// mutation follows persist, reload, recompute while holding mu. Notifications
// and sync messages are queued in the same order and delivered outside mu.
type BudgetService struct {
	mu       sync.Mutex
	store    store.Store
	notifier notify.Notifier
	sync     SyncPublisher
	alerts   budget.State

	loc             *time.Location
	defaultCurrency string
	now             func() time.Time

	logger   *log.Logger
	events   *log.StructuredLogger
	dispatch *dispatcher

	generation atomic.Uint64
	days       *cache.LRUCache[DaySummary]
	months     *cache.LRUCache[core.MonthOverview]
}

func NewBudgetService(st store.Store, notifier notify.Notifier, opts Options) *BudgetService {
	logger := opts.Logger
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentBudget)

	loc := opts.Location
	if loc == nil {
		loc = time.Local
	}
	currency := strings.ToUpper(strings.TrimSpace(opts.DefaultCurrency))
	if !core.IsSupportedCurrency(currency) {
		currency = core.DefaultCurrency
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}

	s := &BudgetService{
		store:           st,
		notifier:        notify.NewSafe(notifier, logger),
		sync:            opts.Sync,
		loc:             loc,
		defaultCurrency: currency,
		now:             clock,
		logger:          logger,
		events:          log.NewStructuredLogger(logger),
		dispatch:        newDispatcher(opts.DispatchTimeout, logger),
		days:            cache.NewLRUCache[DaySummary](summaryCacheSize, summaryCacheTTL),
		months:          cache.NewLRUCache[core.MonthOverview](summaryCacheSize, summaryCacheTTL),
	}
	if opts.Cache != nil {
		opts.Cache.Register(s.days)
		opts.Cache.Register(s.months)
	}
	return s
}

// Location is the time zone used for day and month buckets.
func (s *BudgetService) Location() *time.Location { return s.loc }

// Load evaluates the stored data once, as happens when the app opens.
func (s *BudgetService) Load(ctx context.Context) (budget.Alert, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recompute(ctx)
}

// Recompute re-runs the monitor against the current data.
func (s *BudgetService) Recompute(ctx context.Context) (budget.Alert, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.recompute(ctx)
}

// recompute must be called with mu held. A tier match replaces the active
// alert and notifies every time; no match clears it.
func (s *BudgetService) recompute(ctx context.Context) (budget.Alert, bool) {
	limit := s.budget(ctx)
	expenses := s.monthExpenses(ctx)
	currency := s.currency(ctx)

	alert, ok := budget.Evaluate(limit, expenses, currency)
	if !ok {
		s.alerts.Clear()
		s.logger.DebugContext(ctx, "No budget tier reached",
			log.FieldBudget, limit.String(),
			log.FieldExpenses, expenses.String())
		return budget.Alert{}, false
	}

	s.alerts.Set(alert)
	s.events.LogAlertRaised(ctx, alert.Title, string(alert.Severity), limit, expenses, alert.Progress)
	s.deliver(ctx, alert.Title, alert.Message, alert.Severity)
	return alert, true
}

func (s *BudgetService) monthExpenses(ctx context.Context) decimal.Decimal {
	now := s.now().In(s.loc)
	overview := core.MonthSummary(now.Year(), now.Month(), s.loc, s.transactions(ctx))
	return overview.Summary.TotalExpense
}

// transactions degrades a failed read to an empty set.
func (s *BudgetService) transactions(ctx context.Context) []core.Transaction {
	txs, err := s.store.GetTransactions(ctx)
	if err != nil {
		s.events.LogError(ctx, "Failed to read transactions, using empty set", err,
			log.ComponentStorage, log.OpList, log.ErrorTypeDatabase)
		return []core.Transaction{}
	}
	return txs
}

func (s *BudgetService) budget(ctx context.Context) decimal.Decimal {
	limit, err := s.store.GetMonthlyBudget(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to read monthly budget, using zero", log.FieldError, err.Error())
		return decimal.Zero
	}
	return limit
}

func (s *BudgetService) currency(ctx context.Context) string {
	code, err := s.store.GetSelectedCurrency(ctx)
	if err != nil {
		s.logger.WarnContext(ctx, "Failed to read currency, using default", log.FieldError, err.Error())
		return s.defaultCurrency
	}
	code = strings.ToUpper(strings.TrimSpace(code))
	if !core.IsSupportedCurrency(code) {
		return s.defaultCurrency
	}
	return code
}

func (s *BudgetService) invalidate() {
	s.generation.Add(1)
	s.days.Purge()
	s.months.Purge()
}

// Transactions returns every stored transaction, newest first.
func (s *BudgetService) Transactions(ctx context.Context) []core.Transaction {
	return s.transactions(ctx)
}

// AddTransaction validates, stores and announces a new transaction, then
// re-evaluates the budget.
func (s *BudgetService) AddTransaction(ctx context.Context, in TransactionInput) (core.Transaction, error) {
	ts := in.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}
	tx := core.NewTransaction(in.Title, in.Amount.Round(2), in.Category, in.Kind, ts)
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("validate transaction: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.AddTransaction(ctx, tx); err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	s.invalidate()
	s.events.LogTransactionRecorded(ctx, log.OpCreate, tx.ID, string(tx.Kind), tx.Category, tx.Amount)

	s.publishSync(ctx, tx.ID)
	s.recompute(ctx)
	return tx, nil
}

// UpdateTransaction replaces a stored transaction with the same ID.
func (s *BudgetService) UpdateTransaction(ctx context.Context, tx core.Transaction) (core.Transaction, error) {
	tx.Title = strings.TrimSpace(tx.Title)
	tx.Category = strings.TrimSpace(tx.Category)
	tx.Amount = tx.Amount.Round(2)
	if err := tx.Validate(); err != nil {
		return core.Transaction{}, fmt.Errorf("validate transaction: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.UpdateTransaction(ctx, tx); err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction %s: %w", tx.ID, err)
	}
	s.invalidate()
	s.events.LogTransactionRecorded(ctx, log.OpUpdate, tx.ID, string(tx.Kind), tx.Category, tx.Amount)

	s.recompute(ctx)
	return tx, nil
}

func (s *BudgetService) DeleteTransaction(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction %s: %w", id, err)
	}
	s.invalidate()
	s.logger.InfoContext(ctx, "Transaction deleted", log.FieldTxID, id, log.FieldOperation, log.OpDelete)

	s.recompute(ctx)
	return nil
}

// deliver queues a notification. The notifier is wrapped by notify.Safe.
func (s *BudgetService) deliver(ctx context.Context, title, message string, severity budget.Severity) {
	_ = s.dispatch.submit(ctx, log.OpNotify, func(ctx context.Context) {
		_ = s.notifier.Deliver(ctx, title, message, severity)
	})
}

func (s *BudgetService) publishSync(ctx context.Context, id string) {
	if s.sync == nil {
		return
	}
	_ = s.dispatch.submit(ctx, log.OpSync, func(ctx context.Context) {
		if err := s.sync.PublishTransactionSync(ctx, id); err != nil {
			s.logger.ErrorContext(ctx, "Failed to publish sync message", log.FieldTxID, id, log.FieldError, err.Error())
		}
	})
}

// Budget returns the monthly limit, zero when unset or unreadable.
func (s *BudgetService) Budget(ctx context.Context) decimal.Decimal {
	return s.budget(ctx)
}

// UpdateBudget stores a new monthly limit. The active alert is cleared, the
// user is told about the new limit and the monitor runs again.
func (s *BudgetService) UpdateBudget(ctx context.Context, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return core.ErrNegativeBudget
	}
	amount = amount.Round(2)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.SaveMonthlyBudget(ctx, amount); err != nil {
		return fmt.Errorf("save budget: %w", err)
	}
	s.alerts.Clear()

	currency := s.currency(ctx)
	s.logger.InfoContext(ctx, "Monthly budget updated", log.FieldBudget, amount.String(), log.FieldCurrency, currency)
	s.deliver(ctx, TitleBudgetSet,
		fmt.Sprintf("Your monthly budget has been set to %s", core.FormatCurrency(currency, amount)),
		budget.SeverityInfo)

	s.recompute(ctx)
	return nil
}

// Currency returns the selected currency or the configured default.
func (s *BudgetService) Currency(ctx context.Context) string {
	return s.currency(ctx)
}

// SetCurrency selects the display currency. Amounts are not converted.
func (s *BudgetService) SetCurrency(ctx context.Context, code string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if !core.IsSupportedCurrency(code) {
		return fmt.Errorf("%w: %q", core.ErrUnsupportedCurrency, code)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.SaveSelectedCurrency(ctx, code); err != nil {
		return fmt.Errorf("save currency: %w", err)
	}
	s.logger.InfoContext(ctx, "Currency selected", log.FieldCurrency, code)

	s.recompute(ctx)
	return nil
}

// CurrentAlert returns the active alert, if any.
func (s *BudgetService) CurrentAlert() (budget.Alert, bool) {
	return s.alerts.Current()
}

// DismissAlert clears the active alert without touching any data.
func (s *BudgetService) DismissAlert() {
	s.alerts.Clear()
}

// DailySummary buckets transactions into the local calendar day of date.
func (s *BudgetService) DailySummary(ctx context.Context, date time.Time) DaySummary {
	local := date.In(s.loc)
	day := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.loc)
	key := fmt.Sprintf("%d|%s", s.generation.Load(), day.Format(time.DateOnly))
	if cached, ok := s.days.Get(key); ok {
		return cached
	}

	txs := core.TransactionsOn(day, s.transactions(ctx))
	out := DaySummary{
		Date:         day.Format(time.DateOnly),
		Transactions: txs,
		Summary:      core.Aggregate(txs),
	}
	s.days.Set(key, out)
	return out
}

// MonthSummary aggregates one calendar month in the service time zone.
func (s *BudgetService) MonthSummary(ctx context.Context, year int, month time.Month) core.MonthOverview {
	key := fmt.Sprintf("%d|%04d-%02d", s.generation.Load(), year, int(month))
	if cached, ok := s.months.Get(key); ok {
		return cached
	}

	out := core.MonthSummary(year, month, s.loc, s.transactions(ctx))
	s.months.Set(key, out)
	return out
}

// Dashboard gathers the overall and current-month figures with the alert.
func (s *BudgetService) Dashboard(ctx context.Context) Dashboard {
	txs := s.transactions(ctx)
	now := s.now().In(s.loc)
	month := core.MonthSummary(now.Year(), now.Month(), s.loc, txs)
	limit := s.budget(ctx)

	d := Dashboard{
		Overall:   core.Aggregate(txs),
		Month:     month,
		Budget:    limit,
		Currency:  s.currency(ctx),
		Progress:  budget.Progress(limit, month.Summary.TotalExpense),
		Remaining: limit.Sub(month.Summary.TotalExpense),
	}
	if a, ok := s.alerts.Current(); ok {
		d.Alert = &a
	}
	return d
}

// Backup exports the full data set. Unlike the read paths it does not
// degrade: a partial backup is worse than none.
func (s *BudgetService) Backup(ctx context.Context) (store.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs, err := s.store.GetTransactions(ctx)
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("read transactions: %w", err)
	}
	limit, err := s.store.GetMonthlyBudget(ctx)
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("read budget: %w", err)
	}
	code, err := s.store.GetSelectedCurrency(ctx)
	if err != nil {
		return store.Snapshot{}, fmt.Errorf("read currency: %w", err)
	}
	if code == "" {
		code = s.defaultCurrency
	}

	s.logger.InfoContext(ctx, "Backup created", "transactions", len(txs), log.FieldOperation, log.OpBackup)
	return store.Snapshot{
		Version:      store.SnapshotVersion,
		CreatedAt:    s.now().UTC(),
		Budget:       limit,
		Currency:     code,
		Transactions: txs,
	}, nil
}

// Restore wipes the store, loads snap and re-evaluates the budget.
func (s *BudgetService) Restore(ctx context.Context, snap store.Snapshot) error {
	if snap.Version > store.SnapshotVersion {
		return fmt.Errorf("%w: %d", ErrUnsupportedSnapshot, snap.Version)
	}
	if snap.Budget.IsNegative() {
		return core.ErrNegativeBudget
	}
	if snap.Currency != "" {
		snap.Currency = strings.ToUpper(strings.TrimSpace(snap.Currency))
		if !core.IsSupportedCurrency(snap.Currency) {
			return fmt.Errorf("%w: %q", core.ErrUnsupportedCurrency, snap.Currency)
		}
	}
	if err := core.ValidateTransactions(snap.Transactions); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.store.ReplaceAll(ctx, snap); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	s.invalidate()
	s.alerts.Clear()
	s.logger.InfoContext(ctx, "Backup restored", "transactions", len(snap.Transactions), log.FieldOperation, log.OpRestore)

	s.recompute(ctx)
	return nil
}

// Flush waits until every notification and sync message queued so far has
// been handed to its transport.
func (s *BudgetService) Flush(ctx context.Context) error {
	return s.dispatch.flush(ctx)
}

// Shutdown stops accepting notifications and delivers the queued ones.
func (s *BudgetService) Shutdown(ctx context.Context) error {
	return s.dispatch.stop(ctx)
}

// Close delivers queued notifications and releases the store.
func (s *BudgetService) Close() error {
	if err := s.Shutdown(context.Background()); err != nil {
		return err
	}
	if s.store == nil {
		return nil
	}
	if err := s.store.Close(); err != nil {
		return fmt.Errorf("close store: %w", err)
	}
	return nil
}

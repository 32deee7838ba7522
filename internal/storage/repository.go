package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"wallet/internal/core"
	"wallet/internal/store"

	_ "modernc.org/sqlite"
)

// Setting keys shared by the SQL backends.
const (
	settingMonthlyBudget = "monthly_budget"
	settingCurrency      = "selected_currency"
)

// Sync states of a transaction with respect to the spreadsheet mirror.
const (
	SyncPending = "pending"
	SyncSynced  = "synced"
	SyncError   = "error"
)

type SQLiteRepository struct {
	db *sql.DB
}

var _ store.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// single writer
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

const selectTransaction = `SELECT id, title, amount, category, kind, occurred_at FROM transactions`

func (r *SQLiteRepository) GetTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, selectTransaction+` ORDER BY occurred_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transactions: %w", err)
	}
	return out, nil
}

// GetTransaction returns store.ErrNotFound when id is unknown.
func (r *SQLiteRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	row := r.db.QueryRowContext(ctx, selectTransaction+` WHERE id = ?`, id)
	tx, err := scanTransaction(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, store.ErrNotFound
	}
	return tx, err
}

func (r *SQLiteRepository) AddTransaction(ctx context.Context, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO transactions (id, title, amount, category, kind, occurred_at, sync_status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.Title, tx.Amount.String(), tx.Category, string(tx.Kind), tx.Timestamp.UnixMilli(), SyncPending)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"id", tx.ID,
		"kind", tx.Kind,
		"category", tx.Category)
	return nil
}

func (r *SQLiteRepository) UpdateTransaction(ctx context.Context, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx,
		`UPDATE transactions
		 SET title = ?, amount = ?, category = ?, kind = ?, occurred_at = ?,
		     sync_status = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`,
		tx.Title, tx.Amount.String(), tx.Category, string(tx.Kind), tx.Timestamp.UnixMilli(), SyncPending, tx.ID)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	return expectOneRow(res)
}

func (r *SQLiteRepository) DeleteTransaction(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return expectOneRow(res)
}

func (r *SQLiteRepository) GetMonthlyBudget(ctx context.Context) (decimal.Decimal, error) {
	v, err := r.getSetting(ctx, settingMonthlyBudget)
	if err != nil || v == "" {
		return decimal.Zero, err
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse stored budget %q: %w", v, err)
	}
	return d, nil
}

func (r *SQLiteRepository) SaveMonthlyBudget(ctx context.Context, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return core.ErrNegativeBudget
	}
	return r.putSetting(ctx, r.db, settingMonthlyBudget, amount.String())
}

func (r *SQLiteRepository) GetSelectedCurrency(ctx context.Context) (string, error) {
	return r.getSetting(ctx, settingCurrency)
}

func (r *SQLiteRepository) SaveSelectedCurrency(ctx context.Context, code string) error {
	return r.putSetting(ctx, r.db, settingCurrency, code)
}

// ReplaceAll wipes every table and loads snap inside one transaction.
func (r *SQLiteRepository) ReplaceAll(ctx context.Context, snap store.Snapshot) error {
	if snap.Budget.IsNegative() {
		return core.ErrNegativeBudget
	}
	if err := core.ValidateTransactions(snap.Transactions); err != nil {
		return err
	}

	dbtx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin restore: %w", err)
	}
	defer dbtx.Rollback()

	if _, err := dbtx.ExecContext(ctx, `DELETE FROM transactions`); err != nil {
		return fmt.Errorf("wipe transactions: %w", err)
	}
	if _, err := dbtx.ExecContext(ctx, `DELETE FROM settings`); err != nil {
		return fmt.Errorf("wipe settings: %w", err)
	}
	stmt, err := dbtx.PrepareContext(ctx,
		`INSERT INTO transactions (id, title, amount, category, kind, occurred_at, sync_status)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()
	for _, tx := range snap.Transactions {
		if _, err := stmt.ExecContext(ctx, tx.ID, tx.Title, tx.Amount.String(), tx.Category, string(tx.Kind), tx.Timestamp.UnixMilli(), SyncPending); err != nil {
			return fmt.Errorf("restore transaction %s: %w", tx.ID, err)
		}
	}
	if err := r.putSetting(ctx, dbtx, settingMonthlyBudget, snap.Budget.String()); err != nil {
		return err
	}
	if snap.Currency != "" {
		if err := r.putSetting(ctx, dbtx, settingCurrency, snap.Currency); err != nil {
			return err
		}
	}

	if err := dbtx.Commit(); err != nil {
		return fmt.Errorf("commit restore: %w", err)
	}
	slog.InfoContext(ctx, "Store restored from snapshot", "transactions", len(snap.Transactions))
	return nil
}

// PendingSync returns up to limit transactions not yet mirrored, oldest first.
func (r *SQLiteRepository) PendingSync(ctx context.Context, limit int) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx,
		selectTransaction+` WHERE sync_status = ? ORDER BY created_at, occurred_at LIMIT ?`, SyncPending, limit)
	if err != nil {
		return nil, fmt.Errorf("query pending sync: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

// MarkSynced marks a transaction as successfully mirrored.
func (r *SQLiteRepository) MarkSynced(ctx context.Context, id string) error {
	return r.setSyncStatus(ctx, id, SyncSynced)
}

// MarkSyncError marks a transaction as failed to mirror.
func (r *SQLiteRepository) MarkSyncError(ctx context.Context, id string) error {
	return r.setSyncStatus(ctx, id, SyncError)
}

func (r *SQLiteRepository) setSyncStatus(ctx context.Context, id, status string) error {
	if _, err := r.db.ExecContext(ctx,
		`UPDATE transactions SET sync_status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, status, id); err != nil {
		return fmt.Errorf("mark transaction %s: %w", status, err)
	}
	return nil
}

func (r *SQLiteRepository) getSetting(ctx context.Context, key string) (string, error) {
	var v string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}
	return v, nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func (r *SQLiteRepository) putSetting(ctx context.Context, db execer, key, value string) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO settings (key, value, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = CURRENT_TIMESTAMP`,
		key, value)
	if err != nil {
		return fmt.Errorf("put setting %s: %w", key, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row rowScanner) (core.Transaction, error) {
	var (
		tx     core.Transaction
		amount string
		kind   string
		millis int64
	)
	if err := row.Scan(&tx.ID, &tx.Title, &amount, &tx.Category, &kind, &millis); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return tx, err
		}
		return tx, fmt.Errorf("scan transaction: %w", err)
	}
	d, err := decimal.NewFromString(amount)
	if err != nil {
		return tx, fmt.Errorf("parse amount of %s: %w", tx.ID, err)
	}
	tx.Amount = d
	tx.Kind = core.Kind(kind)
	tx.Timestamp = time.UnixMilli(millis)
	return tx, nil
}

func expectOneRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"wallet/internal/core"
	"wallet/internal/store"
)

// PostgresRepository is the PostgreSQL backend. Queries are built with
// squirrel and run on a pgx pool.
type PostgresRepository struct {
	pool *pgxpool.Pool
	sb   squirrel.StatementBuilderType
}

var _ store.Store = (*PostgresRepository)(nil)

var transactionColumns = []string{"id::text", "title", "amount::text", "category", "kind", "occurred_at"}

func NewPostgresRepository(ctx context.Context, databaseURL string) (*PostgresRepository, error) {
	if err := RunPostgresMigrations(databaseURL); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	poolConfig, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}
	poolConfig.MaxConns = 10
	poolConfig.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &PostgresRepository{
		pool: pool,
		sb:   squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
	}, nil
}

func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *PostgresRepository) GetTransactions(ctx context.Context) ([]core.Transaction, error) {
	query := r.sb.Select(transactionColumns...).
		From("transactions").
		OrderBy("occurred_at DESC", "id")
	return r.queryTransactions(ctx, query)
}

func (r *PostgresRepository) GetTransaction(ctx context.Context, id string) (core.Transaction, error) {
	if !validID(id) {
		return core.Transaction{}, store.ErrNotFound
	}
	sql, args, err := r.sb.Select(transactionColumns...).
		From("transactions").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return core.Transaction{}, err
	}
	tx, err := scanPgTransaction(r.pool.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Transaction{}, store.ErrNotFound
	}
	return tx, err
}

func (r *PostgresRepository) AddTransaction(ctx context.Context, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	sql, args, err := r.sb.Insert("transactions").
		Columns("id", "title", "amount", "category", "kind", "occurred_at", "sync_status").
		Values(tx.ID, tx.Title, tx.Amount.String(), tx.Category, string(tx.Kind), tx.Timestamp, SyncPending).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := r.pool.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	slog.DebugContext(ctx, "Transaction saved to PostgreSQL", "id", tx.ID, "kind", tx.Kind)
	return nil
}

func (r *PostgresRepository) UpdateTransaction(ctx context.Context, tx core.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	if !validID(tx.ID) {
		return store.ErrNotFound
	}
	sql, args, err := r.sb.Update("transactions").
		Set("title", tx.Title).
		Set("amount", tx.Amount.String()).
		Set("category", tx.Category).
		Set("kind", string(tx.Kind)).
		Set("occurred_at", tx.Timestamp).
		Set("sync_status", SyncPending).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": tx.ID}).
		ToSql()
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteTransaction(ctx context.Context, id string) error {
	if !validID(id) {
		return store.ErrNotFound
	}
	sql, args, err := r.sb.Delete("transactions").Where(squirrel.Eq{"id": id}).ToSql()
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, sql, args...)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) GetMonthlyBudget(ctx context.Context) (decimal.Decimal, error) {
	v, err := r.getSetting(ctx, settingMonthlyBudget)
	if err != nil || v == "" {
		return decimal.Zero, err
	}
	return decimal.NewFromString(v)
}

func (r *PostgresRepository) SaveMonthlyBudget(ctx context.Context, amount decimal.Decimal) error {
	if amount.IsNegative() {
		return core.ErrNegativeBudget
	}
	return r.putSetting(ctx, r.pool, settingMonthlyBudget, amount.String())
}

func (r *PostgresRepository) GetSelectedCurrency(ctx context.Context) (string, error) {
	return r.getSetting(ctx, settingCurrency)
}

func (r *PostgresRepository) SaveSelectedCurrency(ctx context.Context, code string) error {
	return r.putSetting(ctx, r.pool, settingCurrency, code)
}

func (r *PostgresRepository) ReplaceAll(ctx context.Context, snap store.Snapshot) error {
	if snap.Budget.IsNegative() {
		return core.ErrNegativeBudget
	}
	if err := core.ValidateTransactions(snap.Transactions); err != nil {
		return err
	}

	dbtx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin restore: %w", err)
	}
	defer dbtx.Rollback(ctx)

	if _, err := dbtx.Exec(ctx, `DELETE FROM transactions`); err != nil {
		return fmt.Errorf("wipe transactions: %w", err)
	}
	if _, err := dbtx.Exec(ctx, `DELETE FROM settings`); err != nil {
		return fmt.Errorf("wipe settings: %w", err)
	}
	for _, builder := range r.restoreInserts(snap.Transactions, restoreBatchSize) {
		sql, args, err := builder.ToSql()
		if err != nil {
			return err
		}
		if _, err := dbtx.Exec(ctx, sql, args...); err != nil {
			return fmt.Errorf("restore transactions: %w", err)
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
	if err := dbtx.Commit(ctx); err != nil {
		return fmt.Errorf("commit restore: %w", err)
	}
	slog.InfoContext(ctx, "Store restored from snapshot", "transactions", len(snap.Transactions))
	return nil
}

// restoreBatchSize keeps each INSERT well under the 65535 bind parameter
// limit of the Postgres protocol (7 parameters per row).
const restoreBatchSize = 1000

// restoreInserts splits txs into multi-row INSERTs of at most size rows.
func (r *PostgresRepository) restoreInserts(txs []core.Transaction, size int) []squirrel.InsertBuilder {
	var out []squirrel.InsertBuilder
	for start := 0; start < len(txs); start += size {
		end := min(start+size, len(txs))
		builder := r.sb.Insert("transactions").
			Columns("id", "title", "amount", "category", "kind", "occurred_at", "sync_status")
		for _, tx := range txs[start:end] {
			builder = builder.Values(tx.ID, tx.Title, tx.Amount.String(), tx.Category, string(tx.Kind), tx.Timestamp, SyncPending)
		}
		out = append(out, builder)
	}
	return out
}

func (r *PostgresRepository) PendingSync(ctx context.Context, limit int) ([]core.Transaction, error) {
	query := r.sb.Select(transactionColumns...).
		From("transactions").
		Where(squirrel.Eq{"sync_status": SyncPending}).
		OrderBy("created_at", "occurred_at").
		Limit(uint64(limit))
	return r.queryTransactions(ctx, query)
}

func (r *PostgresRepository) MarkSynced(ctx context.Context, id string) error {
	return r.setSyncStatus(ctx, id, SyncSynced)
}

func (r *PostgresRepository) MarkSyncError(ctx context.Context, id string) error {
	return r.setSyncStatus(ctx, id, SyncError)
}

func (r *PostgresRepository) setSyncStatus(ctx context.Context, id, status string) error {
	sql, args, err := r.sb.Update("transactions").
		Set("sync_status", status).
		Set("updated_at", squirrel.Expr("NOW()")).
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	if _, err := r.pool.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("mark transaction %s: %w", status, err)
	}
	return nil
}

func (r *PostgresRepository) queryTransactions(ctx context.Context, query squirrel.SelectBuilder) ([]core.Transaction, error) {
	sql, args, err := query.ToSql()
	if err != nil {
		return nil, err
	}
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		tx, err := scanPgTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, rows.Err()
}

func (r *PostgresRepository) getSetting(ctx context.Context, key string) (string, error) {
	sql, args, err := r.sb.Select("value").From("settings").Where(squirrel.Eq{"key": key}).ToSql()
	if err != nil {
		return "", err
	}
	var v string
	err = r.pool.QueryRow(ctx, sql, args...).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get setting %s: %w", key, err)
	}
	return v, nil
}

type pgExecer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

func (r *PostgresRepository) putSetting(ctx context.Context, db pgExecer, key, value string) error {
	sql, args, err := r.sb.Insert("settings").
		Columns("key", "value").
		Values(key, value).
		Suffix("ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()").
		ToSql()
	if err != nil {
		return err
	}
	if _, err := db.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("put setting %s: %w", key, err)
	}
	return nil
}

func scanPgTransaction(row pgx.Row) (core.Transaction, error) {
	var (
		tx     core.Transaction
		amount string
		kind   string
	)
	if err := row.Scan(&tx.ID, &tx.Title, &amount, &tx.Category, &kind, &tx.Timestamp); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
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
	return tx, nil
}

// validID guards the uuid column against malformed ids.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

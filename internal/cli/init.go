// Package cli provides initialization shared by cmd/wallet, cmd/wallet-worker
// and cmd/walletctl.
package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"

	"wallet/internal/amqp"
	"wallet/internal/backend"
	"wallet/internal/config"
	"wallet/internal/log"
	"wallet/internal/sheets"
	gsheet "wallet/internal/sheets/google"
	"wallet/internal/sheets/memory"
	"wallet/internal/store"
)

// LoadEnvFile loads .env for local development. A missing file is not an error.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// SetupLogger builds the process logger from cfg and installs it as the slog default.
func SetupLogger(cfg *config.Config, component string) *log.Logger {
	lc := log.DefaultConfig()
	lc.Level = log.ParseLevel(cfg.LogLevel)
	lc.Format = cfg.LogFormat
	lc.Component = component
	logger := log.New(lc)
	log.SetDefault(logger)
	return logger
}

// LoadConfig loads and validates the configuration.
func LoadConfig() (*config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// OpenBackend creates the configured store and applies DEFAULT_BUDGET when
// no budget has been saved yet.
func OpenBackend(ctx context.Context, cfg *config.Config, logger *log.Logger) (*backend.BackendResult, error) {
	bcfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bcfg)
	if err != nil {
		return nil, err
	}
	if err := ApplyDefaultBudget(ctx, res.Store, cfg.DefaultBudget); err != nil {
		_ = res.Cleanup()
		return nil, err
	}
	return res, nil
}

// ApplyDefaultBudget stores amount as the monthly limit if none is set.
func ApplyDefaultBudget(ctx context.Context, st store.BudgetStore, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return nil
	}
	current, err := st.GetMonthlyBudget(ctx)
	if err != nil {
		return fmt.Errorf("read budget: %w", err)
	}
	if current.IsPositive() {
		return nil
	}
	if err := st.SaveMonthlyBudget(ctx, amount.Round(2)); err != nil {
		return fmt.Errorf("apply default budget: %w", err)
	}
	return nil
}

// ConnectAMQP dials the broker. It returns nil, nil when AMQP is not configured.
func ConnectAMQP(cfg *config.Config) (*amqp.Client, error) {
	if cfg.AMQPURL == "" {
		return nil, nil
	}
	return amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPAlertQueue, cfg.AMQPSyncQueue)
}

// NewMirror returns the Google Sheets mirror, or an in-memory sheet when no
// spreadsheet is configured.
func NewMirror(ctx context.Context, cfg *config.Config, logger *log.Logger) (sheets.Mirror, error) {
	if !cfg.SheetsEnabled() {
		logger.Info("Google Sheets disabled, mirroring to memory")
		return memory.New(), nil
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	client, err := gsheet.New(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
		Location:        loc,
	})
	if err != nil {
		return nil, fmt.Errorf("initialize Google Sheets client: %w", err)
	}
	logger.Info("Google Sheets client initialized", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	return client, nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

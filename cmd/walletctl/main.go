// walletctl manages the wallet store from the command line.
package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/alecthomas/kong"

	"wallet/internal/cli"
	"wallet/internal/log"
	"wallet/internal/notify"
	"wallet/internal/services"
)

// appContext is bound into every command's Run method.
type appContext struct {
	ctx context.Context
	svc *services.BudgetService
	out io.Writer
}

var walletctl struct {
	Add        addCmd        `cmd:"" help:"Record an income or an expense."`
	List       listCmd       `cmd:"" help:"List transactions, newest first."`
	Budget     budgetCmd     `cmd:"" help:"Show or change the monthly budget."`
	Currency   currencyCmd   `cmd:"" help:"Show or change the display currency."`
	Summary    summaryCmd    `cmd:"" help:"Aggregate one calendar month."`
	Day        dayCmd        `cmd:"" help:"Aggregate one local calendar day."`
	Alert      alertCmd      `cmd:"" help:"Show the active budget alert."`
	Categories categoriesCmd `cmd:"" help:"List the default categories."`
	Backup     backupCmd     `cmd:"" help:"Write a JSON backup of all data."`
	Restore    restoreCmd    `cmd:"" help:"Replace all data with a JSON backup."`
}

func main() {
	kctx := kong.Parse(&walletctl,
		kong.Name("walletctl"),
		kong.Description("Budget and transaction management for wallet."),
		kong.UsageOnError())

	cli.LoadEnvFile()
	cfg, err := cli.LoadConfig()
	kctx.FatalIfErrorf(err)
	logger := cli.SetupLogger(cfg, log.ComponentCLI)

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	loc, err := cfg.Location()
	kctx.FatalIfErrorf(err)

	backend, err := cli.OpenBackend(ctx, cfg, logger)
	kctx.FatalIfErrorf(err)
	defer backend.Cleanup()

	var (
		notifier notify.Notifier = notify.NewLogNotifier(logger)
		syncPub  services.SyncPublisher
	)
	if client, err := cli.ConnectAMQP(cfg); err != nil {
		logger.Warn("AMQP unavailable", "error", err)
	} else if client != nil {
		defer client.Close()
		notifier = notify.Multi{notifier, notify.NewAMQPNotifier(client)}
		syncPub = client
	}

	svc := services.NewBudgetService(backend.Store, notifier, services.Options{
		Location:        loc,
		DefaultCurrency: cfg.DefaultCurrency,
		Sync:            syncPub,
		Logger:          logger,
	})
	svc.Load(ctx)

	runErr := kctx.Run(&appContext{ctx: ctx, svc: svc, out: os.Stdout})

	drainCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := svc.Shutdown(drainCtx); err != nil {
		logger.Warn("Pending notifications not delivered", "error", err)
	}

	if runErr != nil {
		fmt.Fprintf(os.Stderr, "walletctl: %v\n", runErr)
		os.Exit(1)
	}
}

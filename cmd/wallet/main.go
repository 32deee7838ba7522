package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
	"golang.org/x/sync/errgroup"

	"wallet/internal/amqp"
	"wallet/internal/cache"
	"wallet/internal/cli"
	"wallet/internal/config"
	apphttp "wallet/internal/http"
	"wallet/internal/log"
	"wallet/internal/notify"
	"wallet/internal/services"
)

const cacheCleanupInterval = 5 * time.Minute

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg, log.ComponentApp)

	if err := run(cfg, logger); err != nil {
		logger.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	loc, err := cfg.Location()
	if err != nil {
		return err
	}

	backend, err := cli.OpenBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backend.Cleanup()

	cacheManager := cache.NewManager(logger)
	cacheManager.StartCleanup(cacheCleanupInterval)
	defer cacheManager.Stop()

	var (
		notifier notify.Notifier = notify.NewLogNotifier(logger)
		syncPub  services.SyncPublisher
	)
	amqpClient, err := cli.ConnectAMQP(cfg)
	if err != nil {
		logger.Warn("AMQP unavailable, alerts are logged only", "error", err)
	} else if amqpClient != nil {
		defer closeAMQP(amqpClient, logger)
		notifier = notify.Multi{notifier, notify.NewAMQPNotifier(amqpClient)}
		syncPub = amqpClient
		logger.Info("AMQP client connected", "exchange", cfg.AMQPExchange)
	}

	svc := services.NewBudgetService(backend.Store, notifier, services.Options{
		Location:        loc,
		DefaultCurrency: cfg.DefaultCurrency,
		Sync:            syncPub,
		Logger:          logger,
		Cache:           cacheManager,
	})
	defer drainNotifications(svc, cfg.ShutdownTimeout, logger)
	if alert, ok := svc.Load(ctx); ok {
		logger.Info("Budget alert active at startup", log.FieldAlertTitle, alert.Title)
	}

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.ServerOptions{
		Logger:             logger,
		RateLimitRPM:       cfg.RateLimitRPM,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		Ready:              backend.Ping,
	})
	srv.Handler = h2c.NewHandler(srv.Handler, &http2.Server{})
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting wallet server",
			"port", cfg.Port,
			"backend", backend.Type.String(),
			"rate_limit_rpm", cfg.RateLimitRPM)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// drainNotifications delivers queued alerts and sync messages before the AMQP
// client is closed.
func drainNotifications(svc *services.BudgetService, timeout time.Duration, logger *log.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := svc.Shutdown(ctx); err != nil {
		logger.Warn("Pending notifications not delivered", "error", err)
	}
}

func closeAMQP(client *amqp.Client, logger *log.Logger) {
	if err := client.Close(); err != nil {
		logger.Warn("Error closing AMQP client", "error", err)
	}
}

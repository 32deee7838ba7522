package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"golang.org/x/sync/errgroup"

	"wallet/internal/cli"
	"wallet/internal/config"
	"wallet/internal/log"
	"wallet/internal/notify"
	"wallet/internal/services"
	"wallet/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	cfg, err := cli.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}
	logger := cli.SetupLogger(cfg, log.ComponentWorker)

	if err := run(cfg, logger); err != nil {
		logger.Error("Worker exited with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Worker stopped gracefully")
}

func run(cfg *config.Config, logger *log.Logger) error {
	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	backend, err := cli.OpenBackend(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer backend.Cleanup()
	if backend.SyncSource == nil {
		return fmt.Errorf("backend %q does not track sync state; use sqlite or postgres", backend.Type)
	}

	mirror, err := cli.NewMirror(ctx, cfg, logger)
	if err != nil {
		return err
	}

	syncWorker := worker.NewSyncWorker(backend.SyncSource, mirror, cfg.SyncBatchSize, logger)
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Warn("Startup sync check failed", "error", err)
	}

	processor := services.NewSyncProcessor(syncWorker, services.SyncProcessorConfig{
		PollInterval: cfg.SyncInterval,
		BatchSize:    cfg.SyncBatchSize,
	}, logger)
	if err := processor.Start(ctx); err != nil {
		return fmt.Errorf("start sync processor: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	amqpClient, err := cli.ConnectAMQP(cfg)
	switch {
	case err != nil:
		logger.Warn("AMQP unavailable, relying on periodic sync only", "error", err)
	case amqpClient == nil:
		logger.Info("AMQP not configured, relying on periodic sync only")
	default:
		defer amqpClient.Close()
		alertWorker := worker.NewAlertWorker(notify.NewLogNotifier(logger))
		g.Go(func() error {
			logger.Info("Consuming AMQP queues",
				"alert_queue", cfg.AMQPAlertQueue,
				"sync_queue", cfg.AMQPSyncQueue)
			return worker.Run(gctx, amqpClient, alertWorker, syncWorker)
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutdown signal received", log.FieldOperation, log.OpShutdown)
		stopCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return processor.Stop(stopCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

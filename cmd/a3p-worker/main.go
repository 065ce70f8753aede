package main

import (
	"context"
	"os"
	"time"

	"a3p/internal/amqp"
	"a3p/internal/cli"
	"a3p/internal/log"
	"a3p/internal/metrics"
	"a3p/internal/worker"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	logger.Info("Starting a3p-worker")

	cfg := cli.LoadAndValidateConfig(logger)

	stack, err := cli.NewStack(context.Background(), cfg, logger, metrics.New())
	if err != nil {
		logger.Error("Failed to initialize record source", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer stack.Close()

	// Keep the interfaces nil when a dependency is disabled.
	var (
		publisher worker.Publisher
		pruner    worker.Pruner
	)
	if stack.Store != nil {
		pruner = stack.Store
		logger.Info("Snapshot store enabled", "path", cfg.SnapshotDBPath, "keep", cfg.SnapshotKeep)
	} else {
		logger.Info("Snapshot store disabled - no SNAPSHOT_DB_PATH provided")
	}

	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		amqpClient.SetLogger(logger)
		publisher = amqpClient
	} else {
		logger.Info("AMQP disabled - snapshot changes will not be announced")
	}

	syncWorker := worker.NewSyncWorker(stack.Snapshots, publisher, pruner, cfg.SnapshotKeep, logger)

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, nil)

	// On startup, load and announce the current snapshot
	logger.Info("Performing startup sync check...")
	if err := syncWorker.StartupSyncCheck(ctx); err != nil {
		logger.Error("Failed startup sync check", "error", err, log.FieldOperation, log.OpStartup)
		// Don't exit - the periodic check retries
	}

	go syncWorker.Run(ctx, cfg.WatchInterval)
	logger.Info("Watching source", "source", stack.Source.Name(), "interval", cfg.WatchInterval)

	cli.WaitForShutdown(ctx, done)
	logger.Info("Worker stopped gracefully")
}

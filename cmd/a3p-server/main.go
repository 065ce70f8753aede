package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"a3p/internal/amqp"
	"a3p/internal/cache"
	"a3p/internal/charts"
	"a3p/internal/cli"
	"a3p/internal/coverage"
	apphttp "a3p/internal/http"
	"a3p/internal/log"
	"a3p/internal/metrics"
	"a3p/internal/services"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	cli.LoadEnvFile()

	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Getenv("LOG_FORMAT"))
	cfg := cli.LoadAndValidateConfig(logger)

	m := metrics.New()
	stack, err := cli.NewStack(context.Background(), cfg, logger, m)
	if err != nil {
		logger.Error("Failed to initialize record source", "error", err, "backend", cfg.DataBackend)
		os.Exit(1)
	}
	defer stack.Close()

	memo := cache.NewLRUCache[*coverage.Series](cfg.CacheSize, cfg.CacheTTL)
	cacheManager := cache.NewManager(logger)
	cacheManager.Register("coverage", memo)
	cacheManager.StartCleanup(cfg.CacheTTL)

	location, sheet := stack.SourceLocation()
	svc := services.NewDashboardService(stack.Snapshots, services.DashboardOptions{
		Today:    stack.Today(),
		Memo:     memo,
		Metrics:  m,
		Logger:   logger,
		Location: location,
		Sheet:    sheet,
	})

	srv := apphttp.NewServer(":"+cfg.Port, svc, apphttp.Options{
		Charts:   charts.New(charts.Options{}),
		Metrics:  m,
		Logger:   logger,
		Location: stack.Location,
		Ready:    stack.Ready,

		CeilingHorizonDays: cfg.CeilingHorizonDays,
	})

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 2 * time.Minute // reloads may re-read a large workbook
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	// Snapshot change events from a3p-worker, optional
	var amqpClient *amqp.Client
	if cfg.AMQPURL != "" {
		amqpClient, err = amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		amqpClient.SetLogger(logger)
		logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	ctx, done := cli.GracefulShutdown(logger, 30*time.Second, func(shutdownCtx context.Context) {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
		cacheManager.Stop()
		if amqpClient != nil {
			if err := amqpClient.Close(); err != nil {
				logger.Warn("AMQP close error", "error", err)
			}
		}
	})

	if amqpClient != nil {
		go func() {
			if err := amqpClient.ConsumeSnapshotChanged(ctx, svc.HandleSnapshotChanged); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("Snapshot event consumption failed", "error", err, log.FieldOperation, log.OpConsume)
			}
		}()
	}

	// Warm the snapshot so the first page view does not pay for the parse.
	go func() {
		warmCtx, cancel := context.WithTimeout(ctx, 2*time.Minute)
		defer cancel()
		snap, err := svc.Snapshot(warmCtx)
		if err != nil {
			logger.Warn("Initial snapshot load failed", "error", err, log.FieldOperation, log.OpStartup)
			return
		}
		logger.Info("Initial snapshot loaded",
			log.NewFields().
				WithSnapshot(snap.ID, snap.Source, snap.Fingerprint, len(snap.Records)).
				WithOperation(log.OpStartup).ToSlice()...)
	}()

	logger.Info("Starting a3p server", "port", cfg.Port, "backend", cfg.DataBackend, "timezone", stack.Location.String())
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("Server error", "error", err, "port", cfg.Port)
		os.Exit(1)
	}

	cli.WaitForShutdown(ctx, done)
	logger.Info("Server stopped gracefully")
}

// Package cli provides common initialization shared by cmd/a3p-server,
// cmd/a3p-worker and cmd/a3p.
package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"a3p/internal/backend"
	"a3p/internal/cache"
	"a3p/internal/config"
	"a3p/internal/dataset"
	"a3p/internal/log"
	"a3p/internal/metrics"
	"a3p/internal/sheets"
	"a3p/internal/storage"
	"a3p/internal/timeutil"
)

// SetupLogger initializes structured logging at the given level and format
// and sets it as the default logger. Unknown values fall back to info text.
func SetupLogger(level, format string) *log.Logger {
	lvl, levelErr := log.ParseLevel(level)
	f, formatErr := log.ParseFormat(format)
	logger := log.New(log.Config{
		Level:  lvl,
		Format: f,
		Output: os.Stdout,
	})
	log.SetDefault(logger)
	if levelErr != nil {
		logger.Warn("Unknown log level, using info", "level", level)
	}
	if formatErr != nil {
		logger.Warn("Unknown log format, using text", "format", format)
	}
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig(logger *log.Logger) *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed",
			log.FieldError, err, log.FieldOperation, log.OpValidate)
		os.Exit(1)
	}
	return cfg
}

// Stack is the record pipeline every binary starts from: the configured
// source, the optional snapshot store and the snapshot cache on top.
type Stack struct {
	Config    *config.Config
	Logger    *log.Logger
	Source    sheets.TableSource
	Store     *storage.SQLiteRepository // nil when SNAPSHOT_DB_PATH is empty
	Snapshots *cache.SnapshotCache
	Location  *time.Location

	cleanups []func() error
}

// NewStack wires the source, store and snapshot cache described by cfg.
// m may be nil.
func NewStack(ctx context.Context, cfg *config.Config, logger *log.Logger, m *metrics.Metrics) (*Stack, error) {
	loc, err := timeutil.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, err
	}

	columns := dataset.DefaultColumns()
	if cfg.ColumnsFile != "" {
		if columns, err = dataset.LoadColumns(cfg.ColumnsFile); err != nil {
			return nil, err
		}
	}

	bc, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, bc)
	if err != nil {
		return nil, fmt.Errorf("create %s source: %w", cfg.DataBackend, err)
	}

	s := &Stack{
		Config:   cfg,
		Logger:   logger,
		Source:   res.Source,
		Location: loc,
	}
	if res.Cleanup != nil {
		s.cleanups = append(s.cleanups, res.Cleanup)
	}

	opts := cache.SnapshotOptions{
		RecheckInterval: cfg.RecheckInterval,
		Logger:          logger,
		Hooks: cache.SnapshotHooks{
			OnHit:  func() { m.CacheHit("snapshot") },
			OnLoad: m.SourceLoad,
			OnChange: func(_, next *dataset.Snapshot) {
				m.SetSnapshotRecords(len(next.Records))
			},
		},
	}
	if cfg.SnapshotDBPath != "" {
		repo, err := storage.NewSQLiteRepository(cfg.SnapshotDBPath)
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("open snapshot store: %w", err)
		}
		s.Store = repo
		logger.WithComponent(log.ComponentStorage).Info("Opened snapshot store",
			log.FieldPath, cfg.SnapshotDBPath, log.FieldOperation, log.OpStartup)
		s.cleanups = append(s.cleanups, repo.Close)
		opts.Store = repo
	}

	s.Snapshots = cache.NewSnapshotCache(res.Source, dataset.Loader{Columns: columns}, opts)
	return s, nil
}

// Today is "today" in the configured time zone.
func (s *Stack) Today() timeutil.Today {
	return timeutil.NewToday(s.Location)
}

// SourceLocation names the configured source and sheet for load error
// messages.
func (s *Stack) SourceLocation() (location, sheet string) {
	switch s.Config.DataBackend {
	case "excel":
		return s.Config.SourcePath, s.Config.SourceSheet
	case "csv":
		return s.Config.SourcePath, ""
	case "remote":
		return s.Config.SourceURL, ""
	case "sheets":
		return s.Config.GoogleSpreadsheetID, s.Config.GoogleSheetName
	default:
		return s.Source.Name(), ""
	}
}

// Ready checks that the source answers a fingerprint request.
func (s *Stack) Ready(ctx context.Context) error {
	if _, err := s.Source.Fingerprint(ctx); err != nil {
		return err
	}
	if s.Store != nil {
		return s.Store.Ping(ctx)
	}
	return nil
}

// Close releases the store and the source, in reverse order of creation.
func (s *Stack) Close() error {
	var errs []error
	for i := len(s.cleanups) - 1; i >= 0; i-- {
		if err := s.cleanups[i](); err != nil {
			errs = append(errs, err)
		}
	}
	s.cleanups = nil
	return errors.Join(errs...)
}

// GracefulShutdown sets up signal handling for graceful shutdown.
// Returns a context that will be cancelled on shutdown signals,
// and a channel that signals when shutdown is complete.
func GracefulShutdown(logger *log.Logger, timeout time.Duration, cleanup func(ctx context.Context)) (context.Context, <-chan struct{}) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigChan
		logger.Info("Shutdown signal received", "signal", sig.String(), log.FieldOperation, log.OpShutdown)

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
		defer shutdownCancel()

		cancel()
		if cleanup != nil {
			cleanup(shutdownCtx)
		}

		if shutdownCtx.Err() != nil {
			logger.Warn("Shutdown timeout reached")
		} else {
			logger.Info("Shutdown complete")
		}
		close(done)
	}()

	return ctx, done
}

// WaitForShutdown blocks until the context is cancelled and cleanup ran.
func WaitForShutdown(ctx context.Context, done <-chan struct{}) {
	<-ctx.Done()
	<-done
}

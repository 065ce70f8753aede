package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"a3p/internal/cli"
	"a3p/internal/config"
	"a3p/internal/core"
	"a3p/internal/dataset"
	"a3p/internal/log"
)

var (
	logLevel string
	backend  string
	source   string
	dbPath   string
)

var rootCmd = &cobra.Command{
	Use:   "a3p",
	Short: "Query A3P adhesion records",
	Long: `a3p reads the A3P adhesion spreadsheet configured for a3p-server
(DATA_BACKEND, SOURCE_PATH, ...) and prints the dashboard figures as tables.
Flags override the environment.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cli.LoadEnvFile()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "data backend (default is $DATA_BACKEND)")
	rootCmd.PersistentFlags().StringVar(&source, "source", "", "workbook or CSV path (default is $SOURCE_PATH)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "snapshot database (default is $SNAPSHOT_DB_PATH)")
}

// newLogger writes to stderr so tables on stdout stay clean.
func newLogger() *log.Logger {
	lvl, err := log.ParseLevel(logLevel)
	if err != nil {
		lvl = slog.LevelWarn
	}
	return log.New(log.Config{
		Level:     lvl,
		Component: log.ComponentCLI,
		Handler:   slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}),
	})
}

// loadConfig reads the environment and applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg := config.Load()
	if backend != "" {
		cfg.DataBackend = backend
	}
	if source != "" {
		cfg.SourcePath = source
	}
	if dbPath != "" {
		cfg.SnapshotDBPath = dbPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openStack builds the record pipeline.
func openStack(ctx context.Context) (*cli.Stack, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	stack, err := cli.NewStack(ctx, cfg, newLogger(), nil)
	if err != nil {
		return nil, fmt.Errorf("opening source: %w", err)
	}
	return stack, nil
}

// loadSnapshot opens the stack and reads the current snapshot.
func loadSnapshot(ctx context.Context) (*cli.Stack, *dataset.Snapshot, error) {
	stack, err := openStack(ctx)
	if err != nil {
		return nil, nil, err
	}
	snap, err := stack.Snapshots.Get(ctx)
	if err != nil {
		stack.Close()
		return nil, nil, fmt.Errorf("loading records: %w", err)
	}
	return stack, snap, nil
}

// parseDateFlag reads an optional date flag; "" yields the null date.
func parseDateFlag(name, value string) (core.Date, error) {
	if value == "" {
		return core.Date{}, nil
	}
	d, ok := dataset.ParseDate(value)
	if !ok {
		return core.Date{}, fmt.Errorf("invalid --%s %q: want YYYY-MM-DD or DD/MM/YYYY", name, value)
	}
	return d, nil
}

// ceilingOr returns the parsed --ceiling value, today when unset.
func ceilingOr(value string, today core.Date) (core.Date, error) {
	d, err := parseDateFlag("ceiling", value)
	if err != nil || !d.IsEmpty() {
		return d, err
	}
	return today, nil
}

// byState keeps the records of one UF; an empty state keeps everything.
func byState(records []core.Record, state string) ([]core.Record, error) {
	if state == "" {
		return records, nil
	}
	code := core.Record{State: state}.StateCode()
	if !core.IsValidUF(code) {
		return nil, fmt.Errorf("unknown state %q", state)
	}
	out := make([]core.Record, 0, len(records))
	for _, r := range records {
		if r.StateCode() == code {
			out = append(out, r)
		}
	}
	return out, nil
}

func printRule() {
	fmt.Println("----------------------------------------")
}

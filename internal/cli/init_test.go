package cli

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"a3p/internal/config"
	"a3p/internal/log"
	"a3p/internal/metrics"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		DataBackend:     "memory",
		DataDir:         t.TempDir(),
		SnapshotKeep:    2,
		RecheckInterval: time.Minute,
		Timezone:        "America/Sao_Paulo",
	}
}

func discardLogger() *log.Logger {
	return log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
}

func TestNewStackMemory(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)

	stack, err := NewStack(ctx, cfg, discardLogger(), metrics.New())
	require.NoError(t, err)
	defer stack.Close()

	assert.Nil(t, stack.Store)
	assert.Equal(t, "America/Sao_Paulo", stack.Location.String())
	require.NoError(t, stack.Ready(ctx))

	snap, err := stack.Snapshots.Get(ctx)
	require.NoError(t, err)
	assert.NotEmpty(t, snap.Records)
	assert.False(t, stack.Today().Date().IsEmpty())
}

func TestNewStackWithStore(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.SnapshotDBPath = filepath.Join(t.TempDir(), "snapshots.db")

	stack, err := NewStack(ctx, cfg, discardLogger(), nil)
	require.NoError(t, err)

	snap, err := stack.Snapshots.Get(ctx)
	require.NoError(t, err)
	require.NotNil(t, stack.Store)
	require.NoError(t, stack.Ready(ctx))

	stored, err := stack.Store.FindSnapshot(ctx, snap.Source, snap.Fingerprint)
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Len(t, stored.Records, len(snap.Records))

	require.NoError(t, stack.Close())
	assert.NoError(t, stack.Close(), "closing twice is a no-op")
}

func TestNewStackRejectsBadTimezone(t *testing.T) {
	cfg := testConfig(t)
	cfg.Timezone = "Mars/Olympus_Mons"

	_, err := NewStack(context.Background(), cfg, discardLogger(), nil)
	assert.Error(t, err)
}

func TestSourceLocation(t *testing.T) {
	tests := []struct {
		backend   string
		wantLoc   string
		wantSheet string
	}{
		{"excel", "adesoes.xlsx", "Adesões à A3P"},
		{"csv", "adesoes.xlsx", ""},
		{"remote", "https://example.org/a3p.xlsx", ""},
		{"sheets", "sheet-id", "Plan1"},
	}
	for _, tt := range tests {
		t.Run(tt.backend, func(t *testing.T) {
			s := &Stack{Config: &config.Config{
				DataBackend:         tt.backend,
				SourcePath:          "adesoes.xlsx",
				SourceSheet:         "Adesões à A3P",
				SourceURL:           "https://example.org/a3p.xlsx",
				GoogleSpreadsheetID: "sheet-id",
				GoogleSheetName:     "Plan1",
			}}
			loc, sheet := s.SourceLocation()
			assert.Equal(t, tt.wantLoc, loc)
			assert.Equal(t, tt.wantSheet, sheet)
		})
	}
}

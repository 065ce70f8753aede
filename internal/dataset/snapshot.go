package dataset

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"a3p/internal/core"
	"a3p/internal/sheets"
)

// Snapshot is one parsed load of a source. Records are never modified after
// the snapshot is built.
type Snapshot struct {
	ID          string
	Source      string
	Fingerprint string
	LoadedAt    time.Time
	Records     []core.Record
	Stats       Stats
}

// NewSnapshot wraps records with a fresh ID.
func NewSnapshot(source, fingerprint string, records []core.Record, stats Stats, now time.Time) *Snapshot {
	return &Snapshot{
		ID:          uuid.NewString(),
		Source:      source,
		Fingerprint: fingerprint,
		LoadedAt:    now,
		Records:     records,
		Stats:       stats,
	}
}

// Intervals returns the validity interval of every record.
func (s *Snapshot) Intervals() []core.Interval {
	return core.Intervals(s.Records)
}

// Loader reads and parses a TableSource.
type Loader struct {
	Columns ColumnMap
	Now     func() time.Time
}

// Load reads src and parses it into a snapshot stamped with fingerprint.
func (l Loader) Load(ctx context.Context, src sheets.TableSource, fingerprint string) (*Snapshot, error) {
	table, err := src.ReadTable(ctx)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", src.Name(), err)
	}
	records, stats, err := Parse(table, l.Columns)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", src.Name(), err)
	}
	now := time.Now
	if l.Now != nil {
		now = l.Now
	}
	return NewSnapshot(src.Name(), fingerprint, records, stats, now()), nil
}

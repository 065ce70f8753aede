package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"a3p/internal/core"
	"a3p/internal/dataset"

	_ "modernc.org/sqlite"
)

// SnapshotInfo is a stored snapshot without its records.
type SnapshotInfo struct {
	ID          string
	Source      string
	Fingerprint string
	LoadedAt    time.Time
	Records     int
}

// SQLiteRepository stores parsed snapshots so that a restart does not need
// to re-read an unchanged source.
type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// sqlite allows a single writer; serialize access through one connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks the database connection.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// SaveSnapshot stores snap and its records, replacing any snapshot with the
// same source and fingerprint.
func (r *SQLiteRepository) SaveSnapshot(ctx context.Context, snap *dataset.Snapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var existing string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM snapshots WHERE source = ? AND fingerprint = ?`,
		snap.Source, snap.Fingerprint).Scan(&existing)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("lookup snapshot: %w", err)
	default:
		if err := deleteSnapshot(ctx, tx, existing); err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO snapshots (id, source, fingerprint, loaded_at, rows_total, bad_start, bad_end, missing_start, missing_end)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		snap.ID, snap.Source, snap.Fingerprint, snap.LoadedAt.UTC().Format(time.RFC3339Nano),
		snap.Stats.Rows, snap.Stats.BadStart, snap.Stats.BadEnd, snap.Stats.MissingStart, snap.Stats.MissingEnd)
	if err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO snapshot_records (snapshot_id, row_number, power, sphere, state, start_date, end_date)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare record insert: %w", err)
	}
	defer stmt.Close()

	for i, rec := range snap.Records {
		row := rec.Row
		if row == 0 {
			row = i + 1
		}
		if _, err := stmt.ExecContext(ctx, snap.ID, row, rec.Power, rec.Sphere, rec.State,
			nullDate(rec.Start), nullDate(rec.End)); err != nil {
			return fmt.Errorf("insert record %d: %w", row, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// FindSnapshot returns the stored snapshot for source and fingerprint, or
// nil when there is none.
func (r *SQLiteRepository) FindSnapshot(ctx context.Context, source, fingerprint string) (*dataset.Snapshot, error) {
	var (
		snap     dataset.Snapshot
		loadedAt string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, source, fingerprint, loaded_at, rows_total, bad_start, bad_end, missing_start, missing_end
		FROM snapshots WHERE source = ? AND fingerprint = ?`, source, fingerprint).
		Scan(&snap.ID, &snap.Source, &snap.Fingerprint, &loadedAt,
			&snap.Stats.Rows, &snap.Stats.BadStart, &snap.Stats.BadEnd, &snap.Stats.MissingStart, &snap.Stats.MissingEnd)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	if snap.LoadedAt, err = time.Parse(time.RFC3339Nano, loadedAt); err != nil {
		return nil, fmt.Errorf("parse loaded_at %q: %w", loadedAt, err)
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT row_number, power, sphere, state, start_date, end_date
		FROM snapshot_records WHERE snapshot_id = ? ORDER BY row_number`, snap.ID)
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()

	snap.Records = []core.Record{}
	for rows.Next() {
		var (
			rec        core.Record
			start, end sql.NullString
		)
		if err := rows.Scan(&rec.Row, &rec.Power, &rec.Sphere, &rec.State, &start, &end); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.Start = scanDate(start)
		rec.End = scanDate(end)
		snap.Records = append(snap.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return &snap, nil
}

// ListSnapshots returns stored snapshots, newest first.
func (r *SQLiteRepository) ListSnapshots(ctx context.Context) ([]SnapshotInfo, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT s.id, s.source, s.fingerprint, s.loaded_at,
		       (SELECT COUNT(*) FROM snapshot_records r WHERE r.snapshot_id = s.id)
		FROM snapshots s ORDER BY s.loaded_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []SnapshotInfo
	for rows.Next() {
		var (
			info     SnapshotInfo
			loadedAt string
		)
		if err := rows.Scan(&info.ID, &info.Source, &info.Fingerprint, &loadedAt, &info.Records); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		info.LoadedAt, _ = time.Parse(time.RFC3339Nano, loadedAt)
		out = append(out, info)
	}
	return out, rows.Err()
}

// PruneSnapshots keeps the newest keep snapshots of source and deletes the
// rest. It returns the number of deleted snapshots.
func (r *SQLiteRepository) PruneSnapshots(ctx context.Context, source string, keep int) (int, error) {
	if keep < 1 {
		keep = 1
	}
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx, `
		SELECT id FROM snapshots WHERE source = ?
		ORDER BY loaded_at DESC LIMIT -1 OFFSET ?`, source, keep)
	if err != nil {
		return 0, fmt.Errorf("select old snapshots: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return 0, fmt.Errorf("scan snapshot id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, err
	}

	for _, id := range ids {
		if err := deleteSnapshot(ctx, tx, id); err != nil {
			return 0, err
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit prune: %w", err)
	}
	return len(ids), nil
}

func deleteSnapshot(ctx context.Context, tx *sql.Tx, id string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshot_records WHERE snapshot_id = ?`, id); err != nil {
		return fmt.Errorf("delete records of %s: %w", id, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM snapshots WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete snapshot %s: %w", id, err)
	}
	return nil
}

func nullDate(d core.Date) sql.NullString {
	if d.IsEmpty() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}

func scanDate(s sql.NullString) core.Date {
	if !s.Valid {
		return core.Date{}
	}
	t, err := time.Parse(time.DateOnly, s.String)
	if err != nil {
		return core.Date{}
	}
	return core.DateOf(t)
}

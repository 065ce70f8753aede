package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"a3p/internal/amqp"
	"a3p/internal/dataset"
	"a3p/internal/log"
)

// SnapshotSource yields the current snapshot of a source, loading it again
// when the source fingerprint changed.
type SnapshotSource interface {
	Get(ctx context.Context) (*dataset.Snapshot, error)
}

// Publisher announces new snapshots.
type Publisher interface {
	PublishSnapshotChanged(ctx context.Context, msg *amqp.SnapshotChangedMessage) error
}

// Pruner drops old stored snapshots of a source.
type Pruner interface {
	PruneSnapshots(ctx context.Context, source string, keep int) (int, error)
}

// SyncWorker keeps the snapshot store in step with the source: every check
// that yields a new snapshot is announced and older snapshots are pruned.
type SyncWorker struct {
	snapshots SnapshotSource
	publisher Publisher
	pruner    Pruner
	keep      int
	logger    *log.Logger

	mu            sync.Mutex
	lastPublished string
}

// NewSyncWorker builds a worker. publisher and pruner are optional.
func NewSyncWorker(snapshots SnapshotSource, publisher Publisher, pruner Pruner, keep int, logger *log.Logger) *SyncWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	if keep < 1 {
		keep = 1
	}
	return &SyncWorker{
		snapshots: snapshots,
		publisher: publisher,
		pruner:    pruner,
		keep:      keep,
		logger:    logger.WithComponent(log.ComponentWorker),
	}
}

// CheckSource refreshes the snapshot and reports whether a new one was
// published.
func (w *SyncWorker) CheckSource(ctx context.Context) (bool, error) {
	snap, err := w.snapshots.Get(ctx)
	if err != nil {
		return false, fmt.Errorf("refresh snapshot: %w", err)
	}

	w.mu.Lock()
	unchanged := snap.ID == w.lastPublished
	w.mu.Unlock()
	if unchanged {
		return false, nil
	}

	fields := log.NewFields().
		WithSnapshot(snap.ID, snap.Source, snap.Fingerprint, len(snap.Records)).
		WithOperation(log.OpWatch)
	w.logger.InfoContext(ctx, "Source snapshot changed", fields.ToSlice()...)

	if w.publisher != nil {
		if err := w.publisher.PublishSnapshotChanged(ctx, amqp.NewSnapshotChangedMessage(snap)); err != nil {
			return false, fmt.Errorf("publish snapshot %s: %w", snap.ID, err)
		}
	}

	w.mu.Lock()
	w.lastPublished = snap.ID
	w.mu.Unlock()

	if w.pruner != nil {
		removed, err := w.pruner.PruneSnapshots(ctx, snap.Source, w.keep)
		if err != nil {
			w.logger.WarnContext(ctx, "Failed to prune snapshots", fields.WithError(err).ToSlice()...)
		} else if removed > 0 {
			w.logger.InfoContext(ctx, "Pruned old snapshots",
				log.FieldSource, snap.Source, log.FieldOperation, log.OpPrune, "removed", removed)
		}
	}
	return true, nil
}

// StartupSyncCheck loads and announces the current snapshot so that servers
// started before the worker pick it up.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	published, err := w.CheckSource(ctx)
	if err != nil {
		return err
	}
	if !published {
		w.logger.InfoContext(ctx, "Snapshot already announced on startup")
	}
	return nil
}

// Run checks the source every interval until ctx is done. Failures are
// logged and retried on the next tick.
func (w *SyncWorker) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.CheckSource(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Periodic source check failed",
					log.FieldError, err, log.FieldOperation, log.OpWatch)
			}
		}
	}
}

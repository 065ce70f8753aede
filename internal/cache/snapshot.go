package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"a3p/internal/dataset"
	"a3p/internal/log"
	"a3p/internal/sheets"
)

// SnapshotLoader parses a source into a snapshot stamped with fingerprint.
type SnapshotLoader interface {
	Load(ctx context.Context, src sheets.TableSource, fingerprint string) (*dataset.Snapshot, error)
}

// SnapshotStore is a second-level cache that survives restarts.
type SnapshotStore interface {
	// FindSnapshot returns nil, nil when nothing is stored for the pair.
	FindSnapshot(ctx context.Context, source, fingerprint string) (*dataset.Snapshot, error)
	SaveSnapshot(ctx context.Context, snap *dataset.Snapshot) error
}

// SnapshotHooks observe cache activity. Every field is optional.
type SnapshotHooks struct {
	OnHit    func()
	OnLoad   func(d time.Duration, err error)
	OnChange func(prev, next *dataset.Snapshot)
}

// SnapshotOptions configures a SnapshotCache.
type SnapshotOptions struct {
	Store           SnapshotStore
	RecheckInterval time.Duration // how long a snapshot is trusted without asking the source
	Now             func() time.Time
	Logger          *log.Logger
	Hooks           SnapshotHooks
}

// SnapshotCache keeps the current parsed snapshot of one source. The source
// fingerprint is checked at most once per RecheckInterval and the table is
// re-parsed only when the fingerprint changes. Concurrent loads collapse
// into one.
type SnapshotCache struct {
	src    sheets.TableSource
	loader SnapshotLoader
	opts   SnapshotOptions
	group  singleflight.Group

	mu        sync.RWMutex
	current   *dataset.Snapshot
	checkedAt time.Time
}

func NewSnapshotCache(src sheets.TableSource, loader SnapshotLoader, opts SnapshotOptions) *SnapshotCache {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &SnapshotCache{src: src, loader: loader, opts: opts}
}

// Source returns the cached source.
func (c *SnapshotCache) Source() sheets.TableSource { return c.src }

// Get returns the current snapshot, reloading it if the source changed.
func (c *SnapshotCache) Get(ctx context.Context) (*dataset.Snapshot, error) {
	c.mu.RLock()
	cur, checked := c.current, c.checkedAt
	c.mu.RUnlock()

	if cur != nil && c.opts.Now().Sub(checked) < c.opts.RecheckInterval {
		if c.opts.Hooks.OnHit != nil {
			c.opts.Hooks.OnHit()
		}
		return cur, nil
	}
	return c.do(ctx, "check", false)
}

// Reload re-reads and re-parses the source regardless of fingerprints.
func (c *SnapshotCache) Reload(ctx context.Context) (*dataset.Snapshot, error) {
	return c.do(ctx, "reload", true)
}

// Invalidate makes the next Get ask the source for its fingerprint.
func (c *SnapshotCache) Invalidate() {
	c.mu.Lock()
	c.checkedAt = time.Time{}
	c.mu.Unlock()
}

// Current returns the snapshot in memory without touching the source.
func (c *SnapshotCache) Current() *dataset.Snapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.current
}

func (c *SnapshotCache) do(ctx context.Context, key string, force bool) (*dataset.Snapshot, error) {
	v, err, _ := c.group.Do(key, func() (any, error) {
		// Callers joining the flight must not fail because the first one left.
		return c.refresh(context.WithoutCancel(ctx), force)
	})
	if err != nil {
		return nil, err
	}
	return v.(*dataset.Snapshot), nil
}

func (c *SnapshotCache) refresh(ctx context.Context, force bool) (*dataset.Snapshot, error) {
	fp, err := c.src.Fingerprint(ctx)
	if err != nil {
		c.warn(ctx, "Source fingerprint failed", log.OpRead, err)
		return nil, fmt.Errorf("fingerprint %s: %w", c.src.Name(), err)
	}

	c.mu.RLock()
	cur := c.current
	c.mu.RUnlock()

	if !force && cur != nil && cur.Fingerprint == fp {
		c.mu.Lock()
		c.checkedAt = c.opts.Now()
		c.mu.Unlock()
		return cur, nil
	}

	started := c.opts.Now()
	snap, err := c.load(ctx, fp, force)
	if c.opts.Hooks.OnLoad != nil {
		c.opts.Hooks.OnLoad(c.opts.Now().Sub(started), err)
	}
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	prev := c.current
	c.current = snap
	c.checkedAt = c.opts.Now()
	c.mu.Unlock()

	if c.opts.Logger != nil {
		log.NewStructuredLogger(c.opts.Logger).LogSnapshotLoaded(ctx,
			snap.ID, snap.Source, snap.Fingerprint, len(snap.Records), c.opts.Now().Sub(started))
	}
	if c.opts.Hooks.OnChange != nil && (prev == nil || prev.ID != snap.ID) {
		c.opts.Hooks.OnChange(prev, snap)
	}
	return snap, nil
}

// load restores the snapshot from the store when possible and parses the
// source otherwise. A forced load skips the store lookup.
func (c *SnapshotCache) load(ctx context.Context, fp string, force bool) (*dataset.Snapshot, error) {
	store := c.opts.Store
	if store != nil && !force {
		snap, err := store.FindSnapshot(ctx, c.src.Name(), fp)
		switch {
		case err != nil:
			c.warn(ctx, "Snapshot store lookup failed", log.OpLoad, err)
		case snap != nil:
			return snap, nil
		}
	}

	snap, err := c.loader.Load(ctx, c.src, fp)
	if err != nil {
		c.warn(ctx, "Source load failed", log.OpParse, err)
		return nil, err
	}
	if store != nil {
		if err := store.SaveSnapshot(ctx, snap); err != nil {
			c.warn(ctx, "Snapshot store save failed", log.OpLoad, err)
		}
	}
	return snap, nil
}

func (c *SnapshotCache) warn(ctx context.Context, msg, op string, err error) {
	if c.opts.Logger != nil {
		c.opts.Logger.WarnContext(ctx, msg,
			log.FieldSource, c.src.Name(), log.FieldOperation, op, log.FieldError, err)
	}
}

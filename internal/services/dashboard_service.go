// Package services glues the record source, the caches and the aggregators
// into the panels shown by the dashboard and the CLI.
package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"a3p/internal/amqp"
	"a3p/internal/cache"
	"a3p/internal/core"
	"a3p/internal/coverage"
	"a3p/internal/dataset"
	"a3p/internal/log"
	"a3p/internal/metrics"
	"a3p/internal/timeutil"
)

// ErrInvalidQuery reports a dashboard query that cannot be answered.
var ErrInvalidQuery = errors.New("invalid query")

// NoDataMessage is shown when a panel has nothing to plot.
const NoDataMessage = "Não há dados históricos disponíveis."

// SnapshotProvider is the snapshot cache as seen by the service.
type SnapshotProvider interface {
	Get(ctx context.Context) (*dataset.Snapshot, error)
	Reload(ctx context.Context) (*dataset.Snapshot, error)
	Invalidate()
	Current() *dataset.Snapshot
}

// DashboardQuery is the user's selection. Empty labels and null dates pick
// the defaults.
type DashboardQuery struct {
	Power       string
	Sphere      string
	State       string
	From        core.Date
	To          core.Date
	Granularity coverage.Granularity
}

// Dashboard holds every panel of the page.
type Dashboard struct {
	SnapshotID string
	Source     string
	LoadedAt   time.Time
	Stats      dataset.Stats
	Today      core.Date

	// Filters
	Powers  []string
	Spheres []string
	Power   string
	Sphere  string
	State   string

	Groups    []core.GroupCount // active records per (power, sphere)
	Selection []core.GroupCount // Groups restricted to Power and Sphere
	SpherePie []core.LabelCount
	PowerBar  []core.LabelCount

	States []core.StateCount

	Daily        []core.DailyCount
	DailyFrom    core.Date // selected range
	DailyTo      core.Date
	DailyMin     core.Date // observed bounds
	DailyMax     core.Date
	DailyWarning string

	Granularity     coverage.Granularity
	Coverage        []core.PeriodPoint
	Summary         coverage.Summary
	CoverageWarning string
}

// DashboardOptions configures a DashboardService.
type DashboardOptions struct {
	Today   timeutil.Today
	Memo    *cache.LRUCache[*coverage.Series]
	Metrics *metrics.Metrics
	Logger  *log.Logger
	// Location and Sheet name the source in load error messages.
	Location string
	Sheet    string
}

// DashboardService computes dashboard panels from the current snapshot.
type DashboardService struct {
	snapshots SnapshotProvider
	opts      DashboardOptions
	logger    *log.Logger
}

func NewDashboardService(snapshots SnapshotProvider, opts DashboardOptions) *DashboardService {
	if opts.Memo == nil {
		opts.Memo = cache.NewLRUCache[*coverage.Series](64, 5*time.Minute)
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &DashboardService{
		snapshots: snapshots,
		opts:      opts,
		logger:    logger.WithComponent(log.ComponentDashboard),
	}
}

// Today returns the current calendar day in the configured time zone.
func (s *DashboardService) Today() core.Date {
	return s.opts.Today.Date()
}

// Snapshot returns the current snapshot. Load failures come back as
// *LoadError.
func (s *DashboardService) Snapshot(ctx context.Context) (*dataset.Snapshot, error) {
	snap, err := s.snapshots.Get(ctx)
	if err != nil {
		return nil, s.loadError(err)
	}
	return snap, nil
}

// Reload re-reads the source and drops memoized series.
func (s *DashboardService) Reload(ctx context.Context) (*dataset.Snapshot, error) {
	snap, err := s.snapshots.Reload(ctx)
	if err != nil {
		return nil, s.loadError(err)
	}
	s.opts.Memo.Purge()
	s.logger.InfoContext(ctx, "Snapshot reloaded",
		log.NewFields().
			WithSnapshot(snap.ID, snap.Source, snap.Fingerprint, len(snap.Records)).
			WithOperation(log.OpReload).ToSlice()...)
	return snap, nil
}

// HandleSnapshotChanged reacts to a change event from the worker. Events
// for other sources, and for the snapshot already in memory, are ignored.
func (s *DashboardService) HandleSnapshotChanged(ctx context.Context, msg *amqp.SnapshotChangedMessage) error {
	cur := s.snapshots.Current()
	if cur != nil && (cur.Source != msg.Source || cur.Fingerprint == msg.Fingerprint) {
		return nil
	}
	s.snapshots.Invalidate()
	s.opts.Memo.Purge()
	if _, err := s.snapshots.Get(ctx); err != nil {
		return fmt.Errorf("refresh after change event: %w", err)
	}
	return nil
}

// Coverage returns the daily coverage series of snap through ceiling,
// optionally restricted to one state. Series are memoized per snapshot.
// core.ErrNoValidRecords comes back with an empty series.
func (s *DashboardService) Coverage(snap *dataset.Snapshot, state string, ceiling core.Date) (*coverage.Series, error) {
	key := cache.CoverageKey(snap.ID, ceiling, state)
	series, hit, err := s.opts.Memo.GetOrCompute(key, func() (*coverage.Series, error) {
		s.logger.Debug("Computing coverage series",
			log.FieldSnapshotID, snap.ID,
			log.FieldState, state,
			log.FieldCeiling, ceiling.String(),
			log.FieldOperation, log.OpCompute)
		return coverage.Compute(core.Intervals(filterState(snap.Records, state)), ceiling)
	})
	if hit {
		s.opts.Metrics.CacheHit("coverage")
	} else {
		s.opts.Metrics.CacheMiss("coverage")
	}
	return series, err
}

// Build computes every panel for q. Panels without data carry a warning
// instead of failing the page.
func (s *DashboardService) Build(ctx context.Context, q DashboardQuery) (*Dashboard, error) {
	state := strings.ToUpper(strings.TrimSpace(q.State))
	if state != "" && !core.IsValidUF(state) {
		return nil, fmt.Errorf("%w: unknown state %q", ErrInvalidQuery, q.State)
	}
	if !q.From.IsEmpty() && !q.To.IsEmpty() && q.From.After(q.To.Time) {
		return nil, fmt.Errorf("%w: range starts after it ends", ErrInvalidQuery)
	}

	snap, err := s.Snapshot(ctx)
	if err != nil {
		return nil, err
	}

	today := s.Today()
	d := &Dashboard{
		SnapshotID:  snap.ID,
		Source:      snap.Source,
		LoadedAt:    snap.LoadedAt,
		Stats:       snap.Stats,
		Today:       today,
		State:       state,
		Granularity: q.Granularity,
	}

	g, _ := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.buildGroups(d, snap.Records, q)
		return nil
	})
	g.Go(func() error {
		d.States = coverage.StateCounts(snap.Records)
		return nil
	})
	g.Go(func() error {
		return s.buildDaily(d, snap.Records, q)
	})
	g.Go(func() error {
		return s.buildCoverage(d, snap)
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	s.logger.DebugContext(ctx, "Dashboard built",
		log.FieldSnapshotID, snap.ID,
		log.FieldState, state,
		log.FieldGranularity, d.Granularity.String(),
		log.FieldOperation, log.OpRender)
	return d, nil
}

func (s *DashboardService) buildGroups(d *Dashboard, records []core.Record, q DashboardQuery) {
	d.Groups = coverage.ActiveGroupedCounts(records, d.Today)
	d.Powers = coverage.Powers(d.Groups)
	d.Spheres = coverage.Spheres(d.Groups)
	d.Power = pick(d.Powers, coverage.NormalizeLabel(q.Power), 1)
	d.Sphere = pick(d.Spheres, coverage.NormalizeLabel(q.Sphere), 0)
	d.Selection = coverage.FilterGroups(d.Groups, d.Power, d.Sphere)
	d.SpherePie = coverage.SphereTotals(d.Groups)
	d.PowerBar = coverage.SpheresOf(d.Groups, d.Power)
}

func (s *DashboardService) buildDaily(d *Dashboard, records []core.Record, q DashboardQuery) error {
	d.DailyMin, d.DailyMax = coverage.StartBounds(filterState(records, d.State), d.Today)
	d.DailyFrom, d.DailyTo = q.From, q.To
	if d.DailyFrom.IsEmpty() {
		d.DailyFrom = d.DailyMin
	}
	if d.DailyTo.IsEmpty() {
		d.DailyTo = d.DailyMax
	}

	daily, err := coverage.DailyStarts(records, coverage.DailyQuery{
		Today: d.Today,
		State: d.State,
		From:  d.DailyFrom,
		To:    d.DailyTo,
	})
	switch {
	case errors.Is(err, core.ErrNoValidRecords):
		d.DailyWarning = NoDataMessage
	case err != nil:
		return fmt.Errorf("daily starts: %w", err)
	}
	d.Daily = daily
	return nil
}

func (s *DashboardService) buildCoverage(d *Dashboard, snap *dataset.Snapshot) error {
	series, err := s.Coverage(snap, d.State, d.Today)
	switch {
	case errors.Is(err, core.ErrNoValidRecords):
		d.CoverageWarning = NoDataMessage
		d.Coverage = []core.PeriodPoint{}
		return nil
	case err != nil:
		return fmt.Errorf("coverage: %w", err)
	}
	d.Coverage = coverage.Rollup(series.All(), d.Granularity)
	d.Summary = coverage.Summarize(series.All())
	return nil
}

// pick returns want when it is one of options, otherwise the option at
// index def (or the first one when there are fewer).
func pick(options []string, want string, def int) string {
	if want != "" && slices.Contains(options, want) {
		return want
	}
	switch {
	case len(options) == 0:
		return ""
	case def < len(options):
		return options[def]
	default:
		return options[0]
	}
}

func filterState(records []core.Record, state string) []core.Record {
	code := core.Record{State: state}.StateCode()
	if code == "" {
		return records
	}
	out := make([]core.Record, 0, len(records))
	for _, r := range records {
		if r.StateCode() == code {
			out = append(out, r)
		}
	}
	return out
}

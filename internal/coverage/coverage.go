// Package coverage counts how many validity intervals are active on each day
// of a reporting window and derives grouped snapshots from the same records.
package coverage

import (
	"iter"
	"slices"
	"sort"

	"a3p/internal/core"
)

// Series is the per-day active count from the earliest start to a ceiling.
// It holds only the sorted event offsets; points are produced on demand.
type Series struct {
	floor   core.Date
	ceiling core.Date
	days    int   // number of points, floor..ceiling inclusive
	starts  []int // day offsets (from floor) where an interval begins
	exits   []int // day offsets where an interval stops counting (end+1)
	records int   // intervals that survived preprocessing
}

// prepared is the shared preprocessing result of Compute and ComputeNaive.
type prepared struct {
	intervals []core.Interval
	floor     core.Date
	ceiling   core.Date
}

// prepare drops intervals with a null bound, clamps ends to the ceiling and
// determines the floor. It returns core.ErrNoValidRecords when nothing is
// left to cover.
func prepare(intervals []core.Interval, ceiling core.Date) (prepared, error) {
	if ceiling.IsEmpty() {
		return prepared{}, core.ErrNoValidRecords
	}
	kept := make([]core.Interval, 0, len(intervals))
	var floor core.Date
	for _, iv := range intervals {
		if iv.Start.IsEmpty() || iv.End.IsEmpty() {
			continue
		}
		iv.End = core.MinDate(iv.End, ceiling)
		kept = append(kept, iv)
		floor = core.MinDate(floor, iv.Start)
	}
	if len(kept) == 0 || floor.After(ceiling.Time) {
		return prepared{}, core.ErrNoValidRecords
	}
	return prepared{intervals: kept, floor: floor, ceiling: ceiling}, nil
}

// Compute builds the coverage series of intervals through ceiling using a
// sweep over sorted start and exit events. On core.ErrNoValidRecords the
// returned series is empty but usable.
func Compute(intervals []core.Interval, ceiling core.Date) (*Series, error) {
	p, err := prepare(intervals, ceiling)
	if err != nil {
		return &Series{}, err
	}

	s := &Series{
		floor:   p.floor,
		ceiling: p.ceiling,
		days:    p.floor.DaysUntil(p.ceiling) + 1,
		starts:  make([]int, 0, len(p.intervals)),
		exits:   make([]int, 0, len(p.intervals)),
		records: len(p.intervals),
	}
	for _, iv := range p.intervals {
		// Inverted intervals are active on no day and emit no events.
		if iv.Start.After(iv.End.Time) {
			continue
		}
		s.starts = append(s.starts, p.floor.DaysUntil(iv.Start))
		s.exits = append(s.exits, p.floor.DaysUntil(iv.End)+1)
	}
	slices.Sort(s.starts)
	slices.Sort(s.exits)
	return s, nil
}

// ComputeNaive evaluates every interval on every day. It is the reference
// the sweep is checked against.
func ComputeNaive(intervals []core.Interval, ceiling core.Date) ([]core.CoveragePoint, error) {
	p, err := prepare(intervals, ceiling)
	if err != nil {
		return []core.CoveragePoint{}, err
	}
	days := p.floor.DaysUntil(p.ceiling) + 1
	points := make([]core.CoveragePoint, 0, days)
	for d := p.floor; !d.After(p.ceiling.Time); d = d.AddDays(1) {
		active := 0
		for _, iv := range p.intervals {
			if iv.Contains(d) {
				active++
			}
		}
		points = append(points, core.CoveragePoint{Date: d, Active: active})
	}
	return points, nil
}

// All yields one point per day from Floor to Ceiling. The sequence can be
// ranged over any number of times.
func (s *Series) All() iter.Seq[core.CoveragePoint] {
	return func(yield func(core.CoveragePoint) bool) {
		si, ei, active := 0, 0, 0
		for off := 0; off < s.days; off++ {
			for si < len(s.starts) && s.starts[si] <= off {
				active++
				si++
			}
			for ei < len(s.exits) && s.exits[ei] <= off {
				active--
				ei++
			}
			if !yield(core.CoveragePoint{Date: s.floor.AddDays(off), Active: active}) {
				return
			}
		}
	}
}

// Points materializes the whole series.
func (s *Series) Points() []core.CoveragePoint {
	out := make([]core.CoveragePoint, 0, s.days)
	for p := range s.All() {
		out = append(out, p)
	}
	return out
}

// Len returns the number of days in the series.
func (s *Series) Len() int { return s.days }

// Floor returns the first day of the series (null when empty).
func (s *Series) Floor() core.Date { return s.floor }

// Ceiling returns the last day of the series (null when empty).
func (s *Series) Ceiling() core.Date { return s.ceiling }

// Records returns how many intervals had both bounds set.
func (s *Series) Records() int { return s.records }

// At returns the active count on day. ok is false outside [Floor, Ceiling].
func (s *Series) At(day core.Date) (active int, ok bool) {
	if s.days == 0 || day.Before(s.floor.Time) || day.After(s.ceiling.Time) {
		return 0, false
	}
	off := s.floor.DaysUntil(day)
	begun := sort.SearchInts(s.starts, off+1)
	ended := sort.SearchInts(s.exits, off+1)
	return begun - ended, true
}

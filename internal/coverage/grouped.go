package coverage

import (
	"cmp"
	"slices"

	"a3p/internal/core"
)

type groupKey struct {
	power, sphere string
}

// ActiveGroupedCounts counts records whose End is on or after asOf, grouped
// by normalized (Power, Sphere). Start is not consulted, so a record that
// begins in the future still counts as active. Records with an empty label
// or a null End are skipped.
func ActiveGroupedCounts(records []core.Record, asOf core.Date) []core.GroupCount {
	totals := make(map[groupKey]int)
	for _, r := range records {
		if r.End.IsEmpty() || r.End.Before(asOf.Time) {
			continue
		}
		k := groupKey{power: NormalizeLabel(r.Power), sphere: NormalizeLabel(r.Sphere)}
		if k.power == "" || k.sphere == "" {
			continue
		}
		totals[k]++
	}

	out := make([]core.GroupCount, 0, len(totals))
	for k, n := range totals {
		out = append(out, core.GroupCount{Power: k.power, Sphere: k.sphere, Total: n})
	}
	slices.SortFunc(out, func(a, b core.GroupCount) int {
		return cmp.Or(cmp.Compare(a.Power, b.Power), cmp.Compare(a.Sphere, b.Sphere))
	})
	return out
}

// Powers lists the distinct powers of counts in order of first appearance.
func Powers(counts []core.GroupCount) []string {
	return distinct(counts, func(g core.GroupCount) string { return g.Power })
}

// Spheres lists the distinct spheres of counts in order of first appearance.
func Spheres(counts []core.GroupCount) []string {
	return distinct(counts, func(g core.GroupCount) string { return g.Sphere })
}

func distinct(counts []core.GroupCount, key func(core.GroupCount) string) []string {
	seen := make(map[string]bool, len(counts))
	out := []string{}
	for _, g := range counts {
		k := key(g)
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, k)
	}
	return out
}

// FilterGroups keeps the rows matching power and sphere. Empty arguments
// match everything.
func FilterGroups(counts []core.GroupCount, power, sphere string) []core.GroupCount {
	out := []core.GroupCount{}
	for _, g := range counts {
		if power != "" && g.Power != power {
			continue
		}
		if sphere != "" && g.Sphere != sphere {
			continue
		}
		out = append(out, g)
	}
	return out
}

// SphereTotals sums counts per sphere across all powers.
func SphereTotals(counts []core.GroupCount) []core.LabelCount {
	return sumBy(counts, func(g core.GroupCount) string { return g.Sphere })
}

// SpheresOf returns the sphere counts of a single power.
func SpheresOf(counts []core.GroupCount, power string) []core.LabelCount {
	return sumBy(FilterGroups(counts, power, ""), func(g core.GroupCount) string { return g.Sphere })
}

func sumBy(counts []core.GroupCount, key func(core.GroupCount) string) []core.LabelCount {
	idx := make(map[string]int)
	out := []core.LabelCount{}
	for _, g := range counts {
		k := key(g)
		i, ok := idx[k]
		if !ok {
			i = len(out)
			idx[k] = i
			out = append(out, core.LabelCount{Label: k})
		}
		out[i].Total += g.Total
	}
	return out
}

// StateCounts counts every record per UF regardless of validity. Codes are
// upper-cased and trimmed; anything outside the 27 UFs is dropped. The
// result follows core.UFCodes order and omits states with no records.
func StateCounts(records []core.Record) []core.StateCount {
	totals := make(map[string]int)
	for _, r := range records {
		code := r.StateCode()
		if !core.IsValidUF(code) {
			continue
		}
		totals[code]++
	}
	out := make([]core.StateCount, 0, len(totals))
	for _, code := range core.UFCodes {
		if n := totals[code]; n > 0 {
			out = append(out, core.StateCount{State: code, Total: n})
		}
	}
	return out
}

// DailyQuery selects the records counted by DailyStarts.
type DailyQuery struct {
	Today core.Date // starts after Today are ignored
	State string    // UF filter, empty for all states
	From  core.Date // inclusive lower bound, null for none
	To    core.Date // inclusive upper bound, null for none
}

// DailyStarts counts records per start date. Records without a start, or
// starting after q.Today, are skipped. The state filter is applied before
// the date range. core.ErrNoValidRecords is returned when no record passes
// the Today and state filters; a date range that excludes everything yields
// an empty slice without error.
func DailyStarts(records []core.Record, q DailyQuery) ([]core.DailyCount, error) {
	state := core.Record{State: q.State}.StateCode()
	totals := make(map[core.Date]int)
	matched := 0
	for _, r := range records {
		if r.Start.IsEmpty() {
			continue
		}
		if !q.Today.IsEmpty() && r.Start.After(q.Today.Time) {
			continue
		}
		if state != "" && r.StateCode() != state {
			continue
		}
		matched++
		if !q.From.IsEmpty() && r.Start.Before(q.From.Time) {
			continue
		}
		if !q.To.IsEmpty() && r.Start.After(q.To.Time) {
			continue
		}
		totals[r.Start]++
	}
	if matched == 0 {
		return []core.DailyCount{}, core.ErrNoValidRecords
	}

	out := make([]core.DailyCount, 0, len(totals))
	for d, n := range totals {
		out = append(out, core.DailyCount{Date: d, Total: n})
	}
	slices.SortFunc(out, func(a, b core.DailyCount) int {
		return a.Date.Compare(b.Date.Time)
	})
	return out, nil
}

// StartBounds returns the earliest and latest start on or before today,
// the default range of the evolution chart.
func StartBounds(records []core.Record, today core.Date) (first, last core.Date) {
	for _, r := range records {
		if r.Start.IsEmpty() || (!today.IsEmpty() && r.Start.After(today.Time)) {
			continue
		}
		if first.IsEmpty() || r.Start.Before(first.Time) {
			first = r.Start
		}
		if last.IsEmpty() || r.Start.After(last.Time) {
			last = r.Start
		}
	}
	return first, last
}

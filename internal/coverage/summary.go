package coverage

import (
	"iter"

	"gonum.org/v1/gonum/stat"

	"a3p/internal/core"
)

// Summary describes a coverage series in a few numbers.
type Summary struct {
	Days     int       `json:"days"`
	Peak     int       `json:"peak"`
	PeakDate core.Date `json:"peak_date"`
	Current  int       `json:"current"` // active count on the last day
	Mean     float64   `json:"mean"`
	StdDev   float64   `json:"std_dev"`
}

// Summarize computes descriptive statistics of the daily active counts.
// The earliest day wins ties for the peak.
func Summarize(points iter.Seq[core.CoveragePoint]) Summary {
	var (
		sum  Summary
		vals []float64
	)
	for p := range points {
		if len(vals) == 0 || p.Active > sum.Peak {
			sum.Peak = p.Active
			sum.PeakDate = p.Date
		}
		sum.Current = p.Active
		vals = append(vals, float64(p.Active))
	}
	sum.Days = len(vals)
	switch len(vals) {
	case 0:
	case 1:
		sum.Mean = vals[0]
	default:
		sum.Mean, sum.StdDev = stat.MeanStdDev(vals, nil)
	}
	return sum
}

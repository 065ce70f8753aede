package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"a3p/internal/core"
	"a3p/internal/coverage"
)

var (
	coverageState   string
	coverageCeiling string
	coverageNaive   bool
)

var coverageCmd = &cobra.Command{
	Use:   "coverage",
	Short: "Print the number of valid adhesions per day",
	Long: `Prints one line per day from the earliest start to the ceiling (today by
default) with the number of adhesions whose validity covers that day.`,
	RunE: runCoverage,
}

func init() {
	coverageCmd.Flags().StringVar(&coverageState, "state", "", "restrict to one UF (e.g. SP)")
	coverageCmd.Flags().StringVar(&coverageCeiling, "ceiling", "", "last day of the series (default today)")
	coverageCmd.Flags().BoolVar(&coverageNaive, "naive", false, "evaluate every interval on every day instead of the sweep")
	rootCmd.AddCommand(coverageCmd)
}

// coveragePoints computes the daily series for the records of state.
func coveragePoints(records []core.Record, state string, ceiling core.Date, naive bool) ([]core.CoveragePoint, error) {
	records, err := byState(records, state)
	if err != nil {
		return nil, err
	}
	intervals := core.Intervals(records)
	if naive {
		return coverage.ComputeNaive(intervals, ceiling)
	}
	series, err := coverage.Compute(intervals, ceiling)
	if err != nil {
		return nil, err
	}
	return series.Points(), nil
}

func runCoverage(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	stack, snap, err := loadSnapshot(ctx)
	if err != nil {
		return err
	}
	defer stack.Close()

	ceiling, err := ceilingOr(coverageCeiling, stack.Today().Date())
	if err != nil {
		return err
	}
	points, err := coveragePoints(snap.Records, coverageState, ceiling, coverageNaive)
	if err != nil {
		return fmt.Errorf("computing coverage: %w", err)
	}

	fmt.Printf("%-12s  %8s\n", "Date", "Active")
	printRule()
	for _, p := range points {
		fmt.Printf("%-12s  %8d\n", p.Date, p.Active)
	}
	printRule()
	printSummary(coverage.Summarize(slices.Values(points)))
	return nil
}

func printSummary(s coverage.Summary) {
	fmt.Printf("Days: %d  Peak: %d on %s  Current: %d\n", s.Days, s.Peak, s.PeakDate, s.Current)
	fmt.Printf("Mean: %.2f  Std dev: %.2f\n", s.Mean, s.StdDev)
}

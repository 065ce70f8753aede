package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"a3p/internal/coverage"
)

var (
	rollupState       string
	rollupCeiling     string
	rollupGranularity string
)

var rollupCmd = &cobra.Command{
	Use:   "rollup",
	Short: "Print the peak number of valid adhesions per period",
	Long:  `Groups the daily coverage by day, week, month, quarter or year and prints the maximum of each period.`,
	RunE:  runRollup,
}

func init() {
	rollupCmd.Flags().StringVar(&rollupState, "state", "", "restrict to one UF (e.g. SP)")
	rollupCmd.Flags().StringVar(&rollupCeiling, "ceiling", "", "last day of the series (default today)")
	rollupCmd.Flags().StringVarP(&rollupGranularity, "granularity", "g", "quarter", "day, week, month, quarter or year")
	rootCmd.AddCommand(rollupCmd)
}

func runRollup(cmd *cobra.Command, args []string) error {
	g, err := coverage.ParseGranularity(rollupGranularity)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	stack, snap, err := loadSnapshot(ctx)
	if err != nil {
		return err
	}
	defer stack.Close()

	ceiling, err := ceilingOr(rollupCeiling, stack.Today().Date())
	if err != nil {
		return err
	}
	points, err := coveragePoints(snap.Records, rollupState, ceiling, false)
	if err != nil {
		return fmt.Errorf("computing coverage: %w", err)
	}

	fmt.Printf("%-10s  %-12s  %-12s  %8s\n", "Period", "Start", "End", "Max")
	printRule()
	for _, p := range coverage.Rollup(slices.Values(points), g) {
		fmt.Printf("%-10s  %-12s  %-12s  %8d\n", p.Label, p.Start, p.End, p.Max)
	}
	printRule()
	printSummary(coverage.Summarize(slices.Values(points)))
	return nil
}

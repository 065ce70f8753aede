package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"a3p/internal/charts"
	"a3p/internal/coverage"
)

var (
	plotOut         string
	plotState       string
	plotCeiling     string
	plotGranularity string
)

var plotCmd = &cobra.Command{
	Use:   "plot",
	Short: "Save the coverage series as a PNG",
	RunE:  runPlot,
}

func init() {
	plotCmd.Flags().StringVarP(&plotOut, "out", "o", "coverage.png", "output file")
	plotCmd.Flags().StringVar(&plotState, "state", "", "restrict to one UF (e.g. SP)")
	plotCmd.Flags().StringVar(&plotCeiling, "ceiling", "", "last day of the series (default today)")
	plotCmd.Flags().StringVarP(&plotGranularity, "granularity", "g", "quarter", "period of the overlaid peak line")
	rootCmd.AddCommand(plotCmd)
}

func runPlot(cmd *cobra.Command, args []string) error {
	g, err := coverage.ParseGranularity(plotGranularity)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	stack, snap, err := loadSnapshot(ctx)
	if err != nil {
		return err
	}
	defer stack.Close()

	ceiling, err := ceilingOr(plotCeiling, stack.Today().Date())
	if err != nil {
		return err
	}
	points, err := coveragePoints(snap.Records, plotState, ceiling, false)
	if err != nil {
		return fmt.Errorf("computing coverage: %w", err)
	}

	title := "Adesões vigentes"
	if plotState != "" {
		title += " - " + plotState
	}
	err = charts.SavePNG(plotOut, points, charts.PlotOptions{
		Title:   title,
		Periods: coverage.Rollup(slices.Values(points), g),
	})
	if err != nil {
		return err
	}
	fmt.Printf("Saved %d days to %s\n", len(points), plotOut)
	return nil
}

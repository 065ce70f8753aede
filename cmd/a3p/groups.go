package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"a3p/internal/coverage"
)

var (
	groupsAsOf   string
	groupsPower  string
	groupsSphere string
)

var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "Count active adhesions per power and sphere",
	RunE:  runGroups,
}

func init() {
	groupsCmd.Flags().StringVar(&groupsAsOf, "as-of", "", "reference day (default today)")
	groupsCmd.Flags().StringVar(&groupsPower, "power", "", "only this power (Poder)")
	groupsCmd.Flags().StringVar(&groupsSphere, "sphere", "", "only this sphere (Esfera)")
	rootCmd.AddCommand(groupsCmd)
}

func runGroups(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	stack, snap, err := loadSnapshot(ctx)
	if err != nil {
		return err
	}
	defer stack.Close()

	asOf, err := parseDateFlag("as-of", groupsAsOf)
	if err != nil {
		return err
	}
	if asOf.IsEmpty() {
		asOf = stack.Today().Date()
	}

	counts := coverage.ActiveGroupedCounts(snap.Records, asOf)
	if groupsPower != "" || groupsSphere != "" {
		counts = coverage.FilterGroups(counts, groupsPower, groupsSphere)
	}
	if len(counts) == 0 {
		fmt.Printf("No active adhesions on %s\n", asOf)
		return nil
	}

	fmt.Printf("%-20s  %-20s  %8s\n", "Poder", "Esfera", "Total")
	printRule()
	total := 0
	for _, c := range counts {
		fmt.Printf("%-20s  %-20s  %8d\n", c.Power, c.Sphere, c.Total)
		total += c.Total
	}
	printRule()
	fmt.Printf("Total: %d active on %s\n", total, asOf)
	return nil
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"a3p/internal/core"
	"a3p/internal/coverage"
)

var statesCmd = &cobra.Command{
	Use:   "states",
	Short: "Count adhesions per state",
	Long:  `Counts every record per UF regardless of validity. Records with an unknown UF are skipped.`,
	RunE:  runStates,
}

func init() {
	rootCmd.AddCommand(statesCmd)
}

func runStates(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	stack, snap, err := loadSnapshot(ctx)
	if err != nil {
		return err
	}
	defer stack.Close()

	counts := coverage.StateCounts(snap.Records)
	if len(counts) == 0 {
		fmt.Println("No records with a valid UF")
		return nil
	}

	fmt.Printf("%-4s  %-20s  %8s\n", "UF", "Estado", "Total")
	printRule()
	total := 0
	for _, c := range counts {
		fmt.Printf("%-4s  %-20s  %8d\n", c.State, core.UFNames[c.State], c.Total)
		total += c.Total
	}
	printRule()
	fmt.Printf("Total: %d records in %d states\n", total, len(counts))
	return nil
}

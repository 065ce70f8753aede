package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"a3p/internal/core"
	"a3p/internal/coverage"
)

var (
	dailyFrom  string
	dailyTo    string
	dailyState string
)

var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "Count new adhesions per start date",
	RunE:  runDaily,
}

func init() {
	dailyCmd.Flags().StringVar(&dailyFrom, "from", "", "first start date (default earliest)")
	dailyCmd.Flags().StringVar(&dailyTo, "to", "", "last start date (default today)")
	dailyCmd.Flags().StringVar(&dailyState, "state", "", "restrict to one UF (e.g. SP)")
	rootCmd.AddCommand(dailyCmd)
}

func runDaily(cmd *cobra.Command, args []string) error {
	from, err := parseDateFlag("from", dailyFrom)
	if err != nil {
		return err
	}
	to, err := parseDateFlag("to", dailyTo)
	if err != nil {
		return err
	}
	if !from.IsEmpty() && !to.IsEmpty() && from.After(to.Time) {
		return fmt.Errorf("--from %s is after --to %s", from, to)
	}
	if dailyState != "" && !core.IsValidUF(core.Record{State: dailyState}.StateCode()) {
		return fmt.Errorf("unknown state %q", dailyState)
	}

	ctx := cmd.Context()
	stack, snap, err := loadSnapshot(ctx)
	if err != nil {
		return err
	}
	defer stack.Close()

	counts, err := coverage.DailyStarts(snap.Records, coverage.DailyQuery{
		Today: stack.Today().Date(),
		State: dailyState,
		From:  from,
		To:    to,
	})
	if errors.Is(err, core.ErrNoValidRecords) {
		fmt.Println("No adhesions started on or before today")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Printf("%-12s  %8s\n", "Date", "New")
	printRule()
	total := 0
	for _, c := range counts {
		fmt.Printf("%-12s  %8d\n", c.Date, c.Total)
		total += c.Total
	}
	printRule()
	fmt.Printf("Total: %d adhesions on %d days\n", total, len(counts))
	return nil
}

package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"a3p/internal/cli"
)

var pruneKeep int

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Manage stored snapshots",
	Long:  `Stored snapshots let a3p-server start without re-reading an unchanged source. They need SNAPSHOT_DB_PATH or --db.`,
}

var snapshotImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Read the source and store it as a snapshot",
	RunE:  runSnapshotImport,
}

var snapshotListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored snapshots",
	RunE:  runSnapshotList,
}

var snapshotPruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Drop all but the newest snapshots of the source",
	RunE:  runSnapshotPrune,
}

func init() {
	snapshotPruneCmd.Flags().IntVar(&pruneKeep, "keep", 0, "snapshots to keep (default is $SNAPSHOT_KEEP)")
	snapshotCmd.AddCommand(snapshotImportCmd, snapshotListCmd, snapshotPruneCmd)
	rootCmd.AddCommand(snapshotCmd)
}

var errNoStore = errors.New("no snapshot database: set SNAPSHOT_DB_PATH or --db")

func openStore(cmd *cobra.Command) (*cli.Stack, error) {
	stack, err := openStack(cmd.Context())
	if err != nil {
		return nil, err
	}
	if stack.Store == nil {
		stack.Close()
		return nil, errNoStore
	}
	return stack, nil
}

func runSnapshotImport(cmd *cobra.Command, args []string) error {
	stack, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer stack.Close()

	snap, err := stack.Snapshots.Reload(cmd.Context())
	if err != nil {
		return fmt.Errorf("reading source: %w", err)
	}
	fmt.Printf("Stored snapshot %s from %s\n", snap.ID, snap.Source)
	fmt.Printf("Records: %d  Bad start: %d  Bad end: %d  Missing start: %d  Missing end: %d\n",
		len(snap.Records), snap.Stats.BadStart, snap.Stats.BadEnd, snap.Stats.MissingStart, snap.Stats.MissingEnd)
	return nil
}

func runSnapshotList(cmd *cobra.Command, args []string) error {
	stack, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer stack.Close()

	infos, err := stack.Store.ListSnapshots(cmd.Context())
	if err != nil {
		return fmt.Errorf("listing snapshots: %w", err)
	}
	if len(infos) == 0 {
		fmt.Println("No snapshots stored")
		return nil
	}

	fmt.Printf("%-36s  %-20s  %8s  %s\n", "ID", "Loaded at", "Records", "Source")
	printRule()
	for _, info := range infos {
		fmt.Printf("%-36s  %-20s  %8d  %s\n", info.ID, info.LoadedAt.Format("2006-01-02 15:04:05"), info.Records, info.Source)
	}
	return nil
}

func runSnapshotPrune(cmd *cobra.Command, args []string) error {
	stack, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer stack.Close()

	keep := pruneKeep
	if keep <= 0 {
		keep = stack.Config.SnapshotKeep
	}
	removed, err := stack.Store.PruneSnapshots(cmd.Context(), stack.Source.Name(), keep)
	if err != nil {
		return fmt.Errorf("pruning snapshots: %w", err)
	}
	fmt.Printf("Removed %d snapshots, kept the newest %d\n", removed, keep)
	return nil
}

package main

import (
	"encoding/json"
	"fmt"

	"github.com/smukkama/growth-index/internal/period"
	"github.com/smukkama/growth-index/internal/report"
	"github.com/smukkama/growth-index/internal/snapshot"
	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List stored snapshots, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runHistory(cmd)
	},
}

func init() {
	historyCmd.Flags().StringVarP(&periodType, "type", "t", "week", "Period type (week|month)")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 12, "Number of snapshots to list")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command) error {
	t, err := period.ParseType(periodType)
	if err != nil {
		return err
	}
	if historyLimit < 1 {
		return fmt.Errorf("--limit must be at least 1")
	}

	_, db, err := openDatabase(newLogger())
	if err != nil {
		return err
	}
	defer db.Close()

	snaps, err := snapshot.NewPersister(db).History(cmd.Context(), storeID, t, historyLimit)
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(snaps)
	}
	return report.History(cmd.OutOrStdout(), snaps)
}

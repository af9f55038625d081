package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/smukkama/growth-index/internal/alignment"
	"github.com/smukkama/growth-index/internal/engine"
	"github.com/smukkama/growth-index/internal/period"
	"github.com/smukkama/growth-index/internal/report"
	"github.com/smukkama/growth-index/internal/snapshot"
	"github.com/smukkama/growth-index/internal/source"
	"github.com/spf13/cobra"
)

var (
	periodType string
	periodEnd  string
)

var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Compute and store the snapshot of one week or month",
	Long: `Computes the health index for a completed week (Monday to Sunday) or
calendar month and upserts it. Without --end the previous completed period
is used. Running it again for the same period replaces the stored values.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSnapshot(cmd)
	},
}

func init() {
	snapshotCmd.Flags().StringVarP(&periodType, "type", "t", "week", "Period type (week|month)")
	snapshotCmd.Flags().StringVar(&periodEnd, "end", "", "Last day of the period (YYYY-MM-DD)")
	rootCmd.AddCommand(snapshotCmd)
}

func resolveWindow(t period.Type, end string, now time.Time) (alignment.Window, error) {
	if end == "" {
		return period.PreviousCompleted(t, now)
	}
	day, err := time.Parse(time.DateOnly, end)
	if err != nil {
		return alignment.Window{}, fmt.Errorf("invalid --end: %w", err)
	}
	return period.ForEnd(t, day)
}

func runSnapshot(cmd *cobra.Command) error {
	t, err := period.ParseType(periodType)
	if err != nil {
		return err
	}
	w, err := resolveWindow(t, periodEnd, time.Now())
	if err != nil {
		return err
	}

	logger := newLogger()
	cfg, db, err := openDatabase(logger)
	if err != nil {
		return err
	}
	defer db.Close()

	eng := engine.New(source.FromConfig(cfg.Upstream, db), logger)
	service := snapshot.NewService(eng, snapshot.NewPersister(db), nil, logger)

	out, err := service.Run(cmd.Context(), storeID, t, w)
	if err != nil {
		return err
	}
	if !out.Persisted {
		return fmt.Errorf("snapshot %s was computed but not stored", period.Label(t, w))
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(out.Snapshot)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Stored snapshot %s (%s)\n\n", period.Label(t, w), out.Snapshot.ID)
	return report.Result(cmd.OutOrStdout(), out.Result)
}

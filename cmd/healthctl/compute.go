package main

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/smukkama/growth-index/internal/engine"
	"github.com/smukkama/growth-index/internal/report"
	"github.com/smukkama/growth-index/internal/source"
	"github.com/spf13/cobra"
)

var (
	startDate  string
	endDate    string
	pointsFile string
)

var computeCmd = &cobra.Command{
	Use:   "compute",
	Short: "Compute the health index for a date range without storing it",
	Example: `  healthctl compute --store store-1 --start 2025-06-02 --end 2025-06-08
  healthctl compute --store store-1 --start 2025-06-02 --end 2025-06-08 --points points.json`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runCompute(cmd)
	},
}

func init() {
	computeCmd.Flags().StringVar(&startDate, "start", "", "First day of the window (YYYY-MM-DD)")
	computeCmd.Flags().StringVar(&endDate, "end", "", "Last day of the window (YYYY-MM-DD)")
	computeCmd.Flags().StringVar(&pointsFile, "points", "", "Read metrics from a JSON file instead of the configured source")
	_ = computeCmd.MarkFlagRequired("start")
	_ = computeCmd.MarkFlagRequired("end")
	rootCmd.AddCommand(computeCmd)
}

func runCompute(cmd *cobra.Command) error {
	start, err := time.Parse(time.DateOnly, startDate)
	if err != nil {
		return fmt.Errorf("invalid --start: %w", err)
	}
	end, err := time.Parse(time.DateOnly, endDate)
	if err != nil {
		return fmt.Errorf("invalid --end: %w", err)
	}

	logger := newLogger()

	var fetcher source.Fetcher
	if pointsFile != "" {
		f, err := os.Open(pointsFile)
		if err != nil {
			return err
		}
		defer f.Close()
		static, err := source.LoadStaticFetcher(f)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", pointsFile, err)
		}
		fetcher = static
	} else {
		cfg, db, err := openDatabase(logger)
		if err != nil {
			return err
		}
		defer db.Close()
		fetcher = source.FromConfig(cfg.Upstream, db)
	}

	res, err := engine.New(fetcher, logger).Compute(cmd.Context(), engine.Request{StoreID: storeID, Start: start, End: end})
	if err != nil {
		return err
	}

	if jsonOutput {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	}
	return report.Result(cmd.OutOrStdout(), res)
}

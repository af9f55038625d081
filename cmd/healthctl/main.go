package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/smukkama/growth-index/internal/database"
	"github.com/smukkama/growth-index/internal/logging"
	"github.com/smukkama/growth-index/pkg/config"
	"github.com/spf13/cobra"
)

var (
	storeID    string
	logLevel   string
	jsonOutput bool
)

var rootCmd = &cobra.Command{
	Use:   "healthctl",
	Short: "Compute and inspect store health indexes",
	Long: `healthctl computes the composite health index of a store for a date range,
writes weekly or monthly snapshots, and lists stored snapshot history.

Metrics are read from Postgres, from the REST backend when UPSTREAM_BASE_URL
is set, or from a local JSON file with --points.`,
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&storeID, "store", "s", "", "Store id")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (trace|debug|info|warn|error)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Print JSON instead of a table")
	_ = rootCmd.MarkPersistentFlagRequired("store")
}

// newLogger logs to stderr so --json output stays parseable.
func newLogger() *logrus.Logger {
	logger := logging.New(config.LogConfig{Level: logLevel, Format: "text"})
	logger.SetOutput(os.Stderr)
	return logger
}

// openDatabase loads the environment config and connects to Postgres.
func openDatabase(logger logrus.FieldLogger) (*config.Config, *database.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	db, err := database.Connect(cfg.Database.ConnectionString(), logger)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}

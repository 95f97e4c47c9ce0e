package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"github.com/otrenterprises/tiltedtrades/config"
	"github.com/otrenterprises/tiltedtrades/journal"
	"github.com/otrenterprises/tiltedtrades/market"
	"github.com/otrenterprises/tiltedtrades/matching"
	"github.com/otrenterprises/tiltedtrades/recompute"
)

var rootCmd = &cobra.Command{
	Use:   "tilted",
	Short: "Trade matching and statistics engine for brokerage execution records",
	Long: `Tilted ingests raw brokerage execution records, matches them into
round-trip trades under FIFO and per-position accounting, applies
commission corrections, and aggregates performance statistics.

It provides tools for:
  - Importing broker execution exports (CSV, gzip, xz)
  - Recomputing derived trades and stats for one user or all users
  - Inspecting matched trades per accounting policy
  - Viewing the published statistics snapshot`,
}

var (
	cfgFile string
	dbPath  string
)

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "path to SQLite journal DB (overrides config)")
}

func newLogger() *slog.Logger {
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      slog.LevelInfo,
		TimeFormat: time.Kitchen,
	}))
}

func loadConfig() (*config.Config, error) {
	if cfgFile == "" {
		return config.Default(), nil
	}
	return config.LoadFromFile(cfgFile)
}

func openStore(cfg *config.Config) (*journal.SQLite, error) {
	path := cfg.Journal.DBPath
	if dbPath != "" {
		path = dbPath
	}
	j, err := journal.NewSQLite(path)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	return j, nil
}

func newOrchestrator(cfg *config.Config, store *journal.SQLite, log *slog.Logger) (*recompute.Orchestrator, error) {
	fees := market.DefaultFeeSchedule()
	if cfg.Matching.FeeScheduleFile != "" {
		var err error
		fees, err = market.LoadFeeSchedule(cfg.Matching.FeeScheduleFile)
		if err != nil {
			return nil, err
		}
	}

	baseDelay, err := cfg.Recompute.ParseBaseDelay()
	if err != nil {
		return nil, err
	}

	return &recompute.Orchestrator{
		Store:       store,
		Engine:      matching.NewEngine(fees, cfg.Matching.CommissionTier),
		Log:         log,
		BatchSize:   cfg.Recompute.BatchSize,
		MaxAttempts: cfg.Recompute.MaxAttempts,
		BaseDelay:   baseDelay,
		PageSize:    cfg.Journal.PageSize,
	}, nil
}

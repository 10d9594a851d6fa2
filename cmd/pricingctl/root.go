package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/codyseavey/vinyl-exchange/internal/app"
	"github.com/codyseavey/vinyl-exchange/internal/config"
	"github.com/codyseavey/vinyl-exchange/internal/database"
	"github.com/codyseavey/vinyl-exchange/internal/logger"
)

var (
	configFile string
	dbPath     string
	outputFmt  string
)

var rootCmd = &cobra.Command{
	Use:   "pricingctl",
	Short: "Admin CLI for the vinyl exchange pricing service",
	Long: `pricingctl runs pricing operations directly against the service database.

It computes quotes, verifies stored audit records, refreshes market snapshots
from the configured market data sources and seeds reference data.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", os.Getenv("CONFIG_FILE"), "Config file path")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Database path (overrides database.path)")
	rootCmd.PersistentFlags().StringVarP(&outputFmt, "output", "o", "table", "Output format: table, json, yaml")

	rootCmd.AddCommand(quoteCmd)
	rootCmd.AddCommand(verifyAuditCmd)
	rootCmd.AddCommand(refreshSnapshotsCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(exportAuditsCmd)
}

// setup loads config, opens the database and builds the services
func setup() (*config.Config, *gorm.DB, *app.App, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, nil, nil, err
	}
	if dbPath != "" {
		cfg.Database.Path = dbPath
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, nil, fmt.Errorf("invalid config: %w", err)
	}

	// Keep the CLI quiet unless something goes wrong
	level := cfg.Logging.Level
	if level == "info" || level == "debug" {
		level = "warn"
	}
	if err := logger.Init(level, "text"); err != nil {
		return nil, nil, nil, err
	}

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, db, app.New(cfg, db), nil
}

func closeDB(db *gorm.DB) {
	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Sync()
}

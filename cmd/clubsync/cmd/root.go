package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/banksodee/clubsync/internal/config"
	"github.com/banksodee/clubsync/internal/logger"
)

// Version information (set via ldflags at build time)
var (
	Version = "0.0.1-dev"
	Commit  = "unknown"
)

// CLI flags that override config file values
var (
	cfgFile    string
	logLevel   string
	logFormat  string
	batchSize  int
	batchDelay time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "clubsync",
	Short: "Cross-store sync between the club database and the content store",
	Long: `clubsync keeps the relational club database (MySQL) and the editorial
content store (MongoDB) linked in both directions.

Features:
  - Batch import of people, sponsors and matches into the content store
  - Webhook receiver applying content changes back to the relational store
  - Cached cross-store reference resolution
  - Audit log of every sync attempt
  - Scheduled imports guarded by MySQL advisory locks`,
	Version:      Version,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "clubsync.yaml",
		"Path to configuration file")

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "",
		"Override log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "",
		"Override log format (json, text)")

	rootCmd.PersistentFlags().IntVar(&batchSize, "batch-size", 0,
		"Override import batch size (records per batch)")
	rootCmd.PersistentFlags().DurationVar(&batchDelay, "batch-delay", 0,
		"Override delay between import batches (e.g. 500ms)")
}

// GetConfigFile returns the config file path
func GetConfigFile() string {
	return cfgFile
}

// CLIOverrides contains flag values that override config file settings
type CLIOverrides struct {
	LogLevel   string
	LogFormat  string
	BatchSize  int
	BatchDelay time.Duration
}

// GetCLIOverrides returns the CLI flag override values
func GetCLIOverrides() CLIOverrides {
	return CLIOverrides{
		LogLevel:   logLevel,
		LogFormat:  logFormat,
		BatchSize:  batchSize,
		BatchDelay: batchDelay,
	}
}

// apply copies the overrides onto cfg.
func (o CLIOverrides) apply(cfg *config.Config) {
	cfg.ApplyOverrides(o.LogLevel, o.LogFormat, o.BatchSize, o.BatchDelay)
}

// loadConfig reads, overrides and validates the config file, then builds the logger.
func loadConfig() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(GetConfigFile())
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load config: %w", err)
	}
	GetCLIOverrides().apply(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, log, nil
}

package cmd

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/gookit/color"
	"github.com/spf13/cobra"

	"github.com/banksodee/clubsync/internal/config"
	"github.com/banksodee/clubsync/internal/content"
	"github.com/banksodee/clubsync/internal/database"
	"github.com/banksodee/clubsync/internal/logger"
	"github.com/banksodee/clubsync/internal/preflight"
)

var validateSkipConnect bool

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration and check store connectivity",
	Long: `Validate checks the configuration file and connects to both stores.

Checks performed:
  - Configuration syntax and required fields
  - Relational database connectivity
  - Schema of the synced tables (existence, InnoDB, sanity_id column)
  - Content store connectivity

Example:
  clubsync validate --config clubsync.yaml`,
	RunE: runValidate,
}

func init() {
	validateCmd.Flags().BoolVar(&validateSkipConnect, "offline", false,
		"Only validate the configuration file")

	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()
	configFile := GetConfigFile()

	fmt.Fprintf(out, "\n=== Configuration Validation ===\n")
	fmt.Fprintf(out, "Config file: %s\n\n", configFile)

	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	GetCLIOverrides().apply(cfg)

	if err := cfg.Validate(); err != nil {
		reportCheck(out, "configuration", err)
		return fmt.Errorf("configuration is invalid")
	}
	reportCheck(out, "configuration", nil)

	if validateSkipConnect {
		return nil
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	failed := false
	warnings, err := checkRelational(ctx, cfg, log)
	if err != nil {
		failed = true
	}
	reportCheck(out, "relational database", err)
	for _, w := range warnings {
		fmt.Fprintf(out, "  %s %s\n", color.Yellow.Sprint("!"), w)
	}

	if err := checkContent(ctx, cfg); err != nil {
		failed = true
		reportCheck(out, "content store", err)
	} else {
		reportCheck(out, "content store", nil)
	}

	if failed {
		return fmt.Errorf("validation failed")
	}
	fmt.Fprintln(out, "\n=== Validation Complete ===")
	return nil
}

func checkRelational(ctx context.Context, cfg *config.Config, log *logger.Logger) ([]string, error) {
	db := database.NewManager(&cfg.Relational, log)
	if err := db.Connect(ctx); err != nil {
		return nil, err
	}
	defer db.Close()
	if err := db.Ping(ctx); err != nil {
		return nil, err
	}

	checker, err := preflight.NewChecker(db.Relational, cfg.Relational.Database, nil, log)
	if err != nil {
		return nil, err
	}
	return checker.RunAllChecks(ctx)
}

func checkContent(ctx context.Context, cfg *config.Config) error {
	cs, err := content.Connect(ctx, &cfg.Content)
	if err != nil {
		return err
	}
	defer cs.Close(context.Background())
	return cs.Ping(ctx)
}

func reportCheck(w io.Writer, name string, err error) {
	if err != nil {
		fmt.Fprintf(w, "%s %s: %v\n", color.Red.Sprint("✗"), name, err)
		return
	}
	fmt.Fprintf(w, "%s %s\n", color.Green.Sprint("✓"), name)
}

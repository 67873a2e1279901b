package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banksodee/clubsync/internal/database"
	"github.com/banksodee/clubsync/internal/importer"
	"github.com/banksodee/clubsync/internal/model"
)

var (
	historyKind  string
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recent import runs",
	Long: `History shows the latest import runs of a kind from the import_runs table,
newest first.

Example:
  clubsync history --kind sponsor --limit 20`,
	RunE: runHistory,
}

func init() {
	historyCmd.Flags().StringVarP(&historyKind, "kind", "k", "person",
		"Entity kind (person, sponsor, match)")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 10,
		"Maximum number of runs to show")

	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	kind, err := model.ParseKind(historyKind)
	if err != nil {
		return err
	}

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx := context.Background()
	db := database.NewManager(&cfg.Relational, log)
	if err := db.Connect(ctx); err != nil {
		return connectError(err)
	}
	defer db.Close()

	runs, err := importer.NewRunLog(db.Relational, log)
	if err != nil {
		return err
	}
	records, err := runs.Recent(ctx, kind, historyLimit)
	if err != nil {
		return fmt.Errorf("failed to list import runs: %w", err)
	}

	writeRunHistory(cmd.OutOrStdout(), records)
	return nil
}

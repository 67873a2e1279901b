package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/banksodee/clubsync/internal/database"
	"github.com/banksodee/clubsync/internal/importer"
	"github.com/banksodee/clubsync/internal/lock"
	"github.com/banksodee/clubsync/internal/model"
)

var (
	importKind         string
	importDryRun       bool
	importTestRecord   string
	importIncludeStaff bool
	importDebug        bool
	importForce        bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import relational records into the content store",
	Long: `Import copies people, sponsors or matches from the relational database
into the content store, creating missing documents and patching existing ones.

The import process follows these steps:
  1. Query candidate records (persons need a first and last name)
  2. Look up each record's twin document, bypassing the cache
  3. Patch the twin, or create it and link its id back onto the row
  4. Record every attempt in the audit log

Records are processed one at a time in batches with a delay between batches.
A failing record is reported and skipped.

Example:
  clubsync import --config clubsync.yaml --kind person --dry-run`,
	RunE: runImport,
}

func init() {
	importCmd.Flags().StringVarP(&importKind, "kind", "k", "person",
		"Entity kind to import (person, sponsor, match)")
	importCmd.Flags().BoolVar(&importDryRun, "dry-run", false,
		"Map and count records without writing anything")
	importCmd.Flags().StringVar(&importTestRecord, "test-record", "",
		"Import only the record with this id")
	importCmd.Flags().BoolVar(&importIncludeStaff, "include-staff", true,
		"Include staff rows when importing persons")
	importCmd.Flags().BoolVar(&importDebug, "debug", false,
		"Log every record at info level")
	importCmd.Flags().BoolVar(&importForce, "force", false,
		"Run even if the import lock cannot be acquired (use with caution)")

	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, args []string) error {
	kind, err := model.ParseKind(importKind)
	if err != nil {
		return err
	}

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := database.ShutdownContext(context.Background(), func(sig os.Signal) {
		log.Warnw("Received shutdown signal - finishing current record...", "signal", sig.String())
	})
	defer stop()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return connectError(err)
	}
	defer a.Close()

	opts := buildImportOptions(cmd)
	opts.OnProgress = func(r importer.ImportResult) {
		fmt.Fprintf(cmd.ErrOrStderr(), "\r%s", progressLine(r))
	}

	if importForce {
		log.Warnw("Skipping advisory lock acquisition (--force flag used)", "kind", kind.String())
	}

	res, err := a.guard(importForce).Run(ctx, kind, opts)
	fmt.Fprintln(cmd.ErrOrStderr())
	if err != nil {
		if errors.Is(err, lock.ErrLockTimeout) {
			return fmt.Errorf("an import of %s is already running on another instance (use --force to override)", kind)
		}
		return fmt.Errorf("import failed: %w", err)
	}

	writeImportReport(cmd.OutOrStdout(), kind, res, opts.DryRun)
	if res.HasRunError() {
		return fmt.Errorf("import of %s did not complete", kind)
	}
	return nil
}

// buildImportOptions maps the command flags onto ImportOptions. The
// include-staff flag only overrides the config when set explicitly.
func buildImportOptions(cmd *cobra.Command) importer.ImportOptions {
	opts := importer.ImportOptions{
		DryRun:           importDryRun,
		TestSinglePlayer: importTestRecord,
		Debug:            importDebug,
	}
	if cmd.Flags().Changed("include-staff") {
		include := importIncludeStaff
		opts.IncludeStaff = &include
	}
	return opts
}

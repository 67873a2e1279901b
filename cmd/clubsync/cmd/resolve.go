package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/banksodee/clubsync/internal/model"
	"github.com/banksodee/clubsync/internal/resolver"
)

var resolveCmd = &cobra.Command{
	Use:   "resolve",
	Short: "Look up cross-store links",
	Long: `Resolve follows the links between relational rows and content documents
and prints what it finds as JSON.

Example:
  clubsync resolve person 42
  clubsync resolve record sponsor 7`,
}

var resolvePersonCmd = &cobra.Command{
	Use:   "person <id>",
	Short: "Show a person row together with its profile document",
	Args:  cobra.ExactArgs(1),
	RunE:  runResolvePerson,
}

var resolveRecordCmd = &cobra.Command{
	Use:   "record <kind> <id>",
	Short: "Show the document linked to a relational record",
	Args:  cobra.ExactArgs(2),
	RunE:  runResolveRecord,
}

func init() {
	resolveCmd.AddCommand(resolvePersonCmd, resolveRecordCmd)
	rootCmd.AddCommand(resolveCmd)
}

func runResolvePerson(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx := context.Background()
	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return connectError(err)
	}
	defer a.Close()

	pair := a.resolver.PersonWithProfile(ctx, args[0], resolver.Options{})
	if pair == nil {
		return fmt.Errorf("person %q not found", args[0])
	}
	return printJSON(cmd.OutOrStdout(), map[string]interface{}{
		"person":  pair.Person,
		"profile": pair.Profile,
	})
}

func runResolveRecord(cmd *cobra.Command, args []string) error {
	kind, err := model.ParseKind(args[0])
	if err != nil {
		return err
	}

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx := context.Background()
	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return connectError(err)
	}
	defer a.Close()

	rows := a.resolver.ResolveRecordsByIDs(ctx, kind, []string{args[1]}, resolver.Options{})
	if len(rows) == 0 {
		return fmt.Errorf("%s %q not found", kind, args[1])
	}
	doc := a.resolver.ResolveDocumentForRecord(ctx, kind, rows[0], resolver.Options{})
	return printJSON(cmd.OutOrStdout(), map[string]interface{}{
		"record":   rows[0],
		"document": doc,
	})
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

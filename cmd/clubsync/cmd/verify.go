package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/banksodee/clubsync/internal/content"
	"github.com/banksodee/clubsync/internal/database"
	"github.com/banksodee/clubsync/internal/model"
	"github.com/banksodee/clubsync/internal/relational"
	"github.com/banksodee/clubsync/internal/verifier"
)

var (
	verifyKind      string
	verifyMethod    string
	verifyChunkSize int
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check that linked rows and documents still agree",
	Long: `Verify walks every row of a kind that carries a document link and checks
that the document exists and links back to the row.

Methods:
  links   existence and back-links only (default)
  sha256  also compares the synced fields on both sides
  skip    do nothing

Example:
  clubsync verify --kind person --method sha256`,
	RunE: runVerify,
}

func init() {
	verifyCmd.Flags().StringVarP(&verifyKind, "kind", "k", "person",
		"Entity kind (person, sponsor, match)")
	verifyCmd.Flags().StringVarP(&verifyMethod, "method", "m", string(verifier.MethodLinks),
		"Verification method (links, sha256, skip)")
	verifyCmd.Flags().IntVar(&verifyChunkSize, "chunk-size", 100,
		"Documents fetched per query")

	rootCmd.AddCommand(verifyCmd)
}

func runVerify(cmd *cobra.Command, args []string) error {
	kind, err := model.ParseKind(verifyKind)
	if err != nil {
		return err
	}

	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := database.ShutdownContext(context.Background(), nil)
	defer cancel()

	db := database.NewManager(&cfg.Relational, log)
	if err := db.Connect(ctx); err != nil {
		return connectError(err)
	}
	defer db.Close()

	cs, err := content.Connect(ctx, &cfg.Content)
	if err != nil {
		return connectError(err)
	}
	defer func() {
		closeCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
		defer done()
		cs.Close(closeCtx)
	}()

	rs, err := relational.NewMySQLStore(db.Relational)
	if err != nil {
		return err
	}

	v, err := verifier.NewVerifier(cs, rs, verifier.VerificationMethod(verifyMethod), log)
	if err != nil {
		return err
	}
	v.SetChunkSize(verifyChunkSize)

	res, err := v.Verify(ctx, kind)
	if err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	writeVerifyReport(cmd.OutOrStdout(), res)
	if !res.Match() {
		return fmt.Errorf("verification found problems for %s", kind)
	}
	return nil
}

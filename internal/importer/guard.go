package importer

import (
	"context"
	"database/sql"

	"github.com/banksodee/clubsync/internal/lock"
	"github.com/banksodee/clubsync/internal/model"
)

// Runner starts an import run. The HTTP API, the scheduler and the CLI all
// go through a Runner so concurrent runs of one kind are serialized.
type Runner interface {
	Run(ctx context.Context, kind model.Kind, opts ImportOptions) (*ImportResult, error)
}

// Guard runs imports under the MySQL advisory lock for the kind.
type Guard struct {
	importer *Importer
	db       *sql.DB
}

var _ Runner = (*Guard)(nil)

// NewGuard wraps imp. A nil db runs imports without locking.
func NewGuard(imp *Importer, db *sql.DB) *Guard {
	return &Guard{importer: imp, db: db}
}

// Importer returns the wrapped importer.
func (g *Guard) Importer() *Importer { return g.importer }

// Run imports kind while holding its import lock. It returns an error
// wrapping lock.ErrLockTimeout when another run of the kind holds the lock.
// Dry runs write nothing and skip the lock. Once the import has run, a
// failure to release the lock is logged and the result is still returned.
func (g *Guard) Run(ctx context.Context, kind model.Kind, opts ImportOptions) (*ImportResult, error) {
	if g.db == nil || opts.DryRun {
		return g.importer.Import(ctx, kind, opts), nil
	}

	var res *ImportResult
	err := lock.WithImportLock(ctx, g.db, kind.String(), func() error {
		res = g.importer.Import(ctx, kind, opts)
		return nil
	})
	if err != nil && res != nil {
		g.importer.logger.WithKind(kind.String()).WithRun(res.RunID).
			Warnw("Failed to release import lock", "error", err)
		return res, nil
	}
	return res, err
}

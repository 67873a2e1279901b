package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/banksodee/clubsync/internal/audit"
	"github.com/banksodee/clubsync/internal/cache"
	"github.com/banksodee/clubsync/internal/config"
	"github.com/banksodee/clubsync/internal/content"
	"github.com/banksodee/clubsync/internal/database"
	"github.com/banksodee/clubsync/internal/importer"
	"github.com/banksodee/clubsync/internal/logger"
	"github.com/banksodee/clubsync/internal/relational"
	"github.com/banksodee/clubsync/internal/resolver"
	"github.com/banksodee/clubsync/internal/webhook"
)

// app holds the connected stores and the components built on them.
type app struct {
	cfg       *config.Config
	log       *logger.Logger
	db        *database.Manager
	content   *content.MongoStore
	resolver  *resolver.Resolver
	audit     *audit.Log
	runs      *importer.RunLog
	importer  *importer.Importer
	processor *webhook.Processor
}

// newApp connects both stores, creates the bookkeeping tables and wires the
// sync components.
func newApp(ctx context.Context, cfg *config.Config, log *logger.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}

	a.db = database.NewManager(&cfg.Relational, log)
	if err := a.db.Connect(ctx); err != nil {
		return nil, err
	}

	cs, err := content.Connect(ctx, &cfg.Content)
	if err != nil {
		a.db.Close()
		return nil, err
	}
	a.content = cs

	if err := a.init(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) init(ctx context.Context) error {
	if err := a.content.EnsureIndexes(ctx); err != nil {
		return err
	}

	rs, err := relational.NewMySQLStore(a.db.Relational)
	if err != nil {
		return err
	}

	if a.audit, err = audit.NewLog(a.db.Relational, a.log); err != nil {
		return err
	}
	if err := a.audit.InitializeTable(ctx); err != nil {
		return err
	}

	if a.runs, err = importer.NewRunLog(a.db.Relational, a.log); err != nil {
		return err
	}
	if err := a.runs.InitializeTable(ctx); err != nil {
		return err
	}

	a.resolver = resolver.New(a.content, rs, cache.New(a.cfg.Cache.TTL), a.log)
	a.importer = importer.New(a.content, rs, a.resolver, a.audit, a.log,
		importer.WithRunLog(a.runs),
		importer.WithDefaults(a.cfg.Import),
	)
	a.processor = webhook.NewProcessor(a.content, rs, a.resolver, a.audit, a.log)
	return nil
}

// guard returns the import runner; force skips the advisory lock.
func (a *app) guard(force bool) *importer.Guard {
	if force {
		return importer.NewGuard(a.importer, nil)
	}
	return importer.NewGuard(a.importer, a.db.Relational)
}

// Close disconnects both stores.
func (a *app) Close() {
	if a.content != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.content.Close(ctx); err != nil {
			a.log.Warnw("Failed to disconnect content store", "error", err)
		}
	}
	if err := a.db.Close(); err != nil {
		a.log.Warnw("Failed to close relational database", "error", err)
	}
}

func connectError(err error) error {
	return fmt.Errorf("failed to connect: %w", err)
}

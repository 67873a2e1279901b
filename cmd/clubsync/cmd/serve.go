package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/banksodee/clubsync/internal/api"
	"github.com/banksodee/clubsync/internal/config"
	"github.com/banksodee/clubsync/internal/database"
	"github.com/banksodee/clubsync/internal/importer"
	"github.com/banksodee/clubsync/internal/logger"
	"github.com/banksodee/clubsync/internal/scheduler"
)

const shutdownTimeout = 15 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook receiver and the import scheduler",
	Long: `Serve listens for content-store change notifications and applies them to
the relational database. When the scheduler is enabled it also runs periodic
imports of the configured kinds.

Endpoints:
  POST <webhook.path>          signed change notifications
  GET  /health                 store connectivity
  POST /api/v1/import/{kind}   run an import (bearer token = webhook.secret)
  GET  /api/v1/imports/{kind}  recent import runs
  GET  /api/v1/people/{id}     person with profile

Import settings and the schedule are reloaded when the config file changes.

Example:
  clubsync serve --config clubsync.yaml`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	reloads := make(chan *config.Config, 1)
	bootLog := logger.NewDefault()

	cfg, err := config.Watch(GetConfigFile(),
		func(next *config.Config) {
			GetCLIOverrides().apply(next)
			select {
			case <-reloads:
			default:
			}
			reloads <- next
		},
		func(err error) { bootLog.Warnw("Ignoring invalid config reload", "error", err) },
	)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	GetCLIOverrides().apply(cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := database.ShutdownContext(context.Background(), func(sig os.Signal) {
		log.Warnw("Received shutdown signal - draining", "signal", sig.String())
	})
	defer stop()

	a, err := newApp(ctx, cfg, log)
	if err != nil {
		return connectError(err)
	}
	defer a.Close()

	guard := a.guard(false)
	var sched *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		if sched, err = scheduler.New(cfg.Scheduler.Spec, cfg.Scheduler.Kinds, guard, log); err != nil {
			return err
		}
	}

	handler := api.NewHandler(a.processor, cfg.Webhook.Path, cfg.Webhook.Secret, log,
		api.WithImports(guard, a.runs),
		api.WithPeople(a.resolver),
		api.WithHealthChecks(
			api.HealthCheck{Name: "relational", Check: a.db.Ping},
			api.HealthCheck{Name: "content", Check: a.content.Ping},
		),
	)
	srv := &http.Server{
		Addr:              cfg.Webhook.Listen,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Infow("Webhook receiver listening", "addr", srv.Addr, "path", cfg.Webhook.Path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if sched != nil {
		g.Go(func() error { return sched.Run(gctx) })
	} else {
		log.Info("Scheduler disabled")
	}

	g.Go(func() error {
		for {
			select {
			case <-gctx.Done():
				return nil
			case next := <-reloads:
				applyReload(next, a.importer, sched, log)
			}
		}
	})

	if err := g.Wait(); err != nil {
		return err
	}
	log.Info("Shutdown complete")
	return nil
}

// applyReload pushes reloadable settings into the running components.
// Store connections, the listen address, the secret and enabling the
// scheduler need a restart.
func applyReload(next *config.Config, imp *importer.Importer, sched *scheduler.Scheduler, log *logger.Logger) {
	imp.SetDefaults(next.Import)
	if sched != nil {
		if err := sched.Reschedule(next.Scheduler.Spec, next.Scheduler.Kinds); err != nil {
			log.Warnw("Keeping previous schedule", "error", err)
		}
	}
	log.Infow("Configuration reloaded",
		"batch_size", next.Import.BatchSize,
		"batch_delay", next.Import.BatchDelay,
		"schedule", next.Scheduler.Spec,
	)
}

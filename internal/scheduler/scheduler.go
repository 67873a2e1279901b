// Package scheduler runs periodic imports on a cron schedule.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/banksodee/clubsync/internal/importer"
	"github.com/banksodee/clubsync/internal/lock"
	"github.com/banksodee/clubsync/internal/logger"
	"github.com/banksodee/clubsync/internal/model"
)

// Scheduler imports the configured kinds, one after another, on every tick.
// A tick that fires while the previous one is still running is skipped.
type Scheduler struct {
	cron   *cron.Cron
	runner importer.Runner
	logger *logger.Logger

	mu      sync.Mutex
	ctx     context.Context
	entryID cron.EntryID
	spec    string
	kinds   []model.Kind
}

// New creates a Scheduler for spec, a standard cron expression or a
// descriptor such as "@every 1h".
func New(spec string, kinds []string, runner importer.Runner, log *logger.Logger) (*Scheduler, error) {
	if log == nil {
		log = logger.NewNop()
	}
	s := &Scheduler{
		runner: runner,
		logger: log,
		ctx:    context.Background(),
	}
	s.cron = cron.New(cron.WithChain(
		cron.Recover(cronLogger{log}),
		cron.SkipIfStillRunning(cronLogger{log}),
	))
	if err := s.Reschedule(spec, kinds); err != nil {
		return nil, err
	}
	return s, nil
}

// Reschedule replaces the schedule and the kinds. It is safe to call while
// the scheduler is running; a tick in progress finishes with the old kinds.
func (s *Scheduler) Reschedule(spec string, kinds []string) error {
	parsed, err := parseKinds(kinds)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if spec == s.spec && s.entryID != 0 {
		s.kinds = parsed
		return nil
	}

	id, err := s.cron.AddFunc(spec, s.tick)
	if err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	if s.entryID != 0 {
		s.cron.Remove(s.entryID)
	}
	s.entryID = id
	s.spec = spec
	s.kinds = parsed
	return nil
}

// Run starts the schedule and blocks until ctx is done, then waits for a
// running tick to finish.
func (s *Scheduler) Run(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	spec, kinds := s.spec, s.kinds
	s.mu.Unlock()

	s.logger.Infow("Scheduler started", "spec", spec, "kinds", kindNames(kinds), "next", s.Next())
	s.cron.Start()

	<-ctx.Done()
	s.logger.Info("Scheduler stopping, waiting for running import")
	<-s.cron.Stop().Done()
	return nil
}

// Next returns the time of the next tick, or the zero time when the
// scheduler is not running.
func (s *Scheduler) Next() time.Time {
	s.mu.Lock()
	id := s.entryID
	s.mu.Unlock()
	return s.cron.Entry(id).Next
}

// RunOnce imports every scheduled kind now. A kind whose import lock is held
// elsewhere is skipped. It returns the results of the kinds that ran.
func (s *Scheduler) RunOnce(ctx context.Context) map[model.Kind]*importer.ImportResult {
	s.mu.Lock()
	kinds := append([]model.Kind(nil), s.kinds...)
	s.mu.Unlock()

	results := make(map[model.Kind]*importer.ImportResult, len(kinds))
	for _, kind := range kinds {
		if ctx.Err() != nil {
			break
		}
		log := s.logger.WithKind(kind.String())

		res, err := s.runner.Run(ctx, kind, importer.ImportOptions{})
		if err != nil {
			if errors.Is(err, lock.ErrLockTimeout) {
				log.Infow("Skipping scheduled import, another run holds the lock")
				continue
			}
			log.Errorw("Scheduled import failed", "error", err)
			continue
		}
		results[kind] = res
		log.Infow("Scheduled import finished",
			"run_id", res.RunID,
			"created", res.Created,
			"updated", res.Updated,
			"failed", res.Failed,
		)
	}
	return results
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	s.RunOnce(ctx)
}

func parseKinds(names []string) ([]model.Kind, error) {
	if len(names) == 0 {
		return nil, errors.New("no kinds to schedule")
	}
	kinds := make([]model.Kind, 0, len(names))
	for _, name := range names {
		k, err := model.ParseKind(name)
		if err != nil {
			return nil, err
		}
		kinds = append(kinds, k)
	}
	return kinds, nil
}

func kindNames(kinds []model.Kind) []string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return names
}

// cronLogger adapts the zap logger to cron.Logger.
type cronLogger struct {
	log *logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Errorw(msg, append(keysAndValues, "error", err)...)
}

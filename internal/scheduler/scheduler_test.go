package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/banksodee/clubsync/internal/importer"
	"github.com/banksodee/clubsync/internal/lock"
	"github.com/banksodee/clubsync/internal/logger"
	"github.com/banksodee/clubsync/internal/model"
)

type fakeRunner struct {
	mu    sync.Mutex
	kinds []model.Kind
	errs  map[model.Kind]error
	ran   chan struct{}
}

func (f *fakeRunner) Run(_ context.Context, kind model.Kind, _ importer.ImportOptions) (*importer.ImportResult, error) {
	f.mu.Lock()
	f.kinds = append(f.kinds, kind)
	err := f.errs[kind]
	f.mu.Unlock()
	if f.ran != nil {
		select {
		case f.ran <- struct{}{}:
		default:
		}
	}
	if err != nil {
		return nil, err
	}
	return &importer.ImportResult{RunID: "run-" + kind.String(), Created: 1, Errors: map[string]string{}}, nil
}

func (f *fakeRunner) calls() []model.Kind {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.Kind(nil), f.kinds...)
}

func TestNew_InvalidSpec(t *testing.T) {
	_, err := New("not a schedule", []string{"person"}, &fakeRunner{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid schedule")
}

func TestNew_InvalidKinds(t *testing.T) {
	_, err := New("@every 1h", []string{"person", "article"}, &fakeRunner{}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, model.ErrUnknownKind)

	_, err = New("@every 1h", nil, &fakeRunner{}, nil)
	require.Error(t, err)
}

func TestRunOnce_ImportsKindsInOrder(t *testing.T) {
	runner := &fakeRunner{}
	s, err := New("@every 1h", []string{"sponsor", "person", "match"}, runner, nil)
	require.NoError(t, err)

	results := s.RunOnce(context.Background())

	assert.Equal(t, []model.Kind{model.KindSponsor, model.KindPerson, model.KindMatch}, runner.calls())
	require.Len(t, results, 3)
	assert.Equal(t, "run-person", results[model.KindPerson].RunID)
}

func TestRunOnce_SkipsLockedKind(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	runner := &fakeRunner{errs: map[model.Kind]error{
		model.KindPerson:  fmt.Errorf("%w: held", lock.ErrLockTimeout),
		model.KindSponsor: errors.New("connection refused"),
	}}
	s, err := New("@every 1h", []string{"person", "sponsor", "match"}, runner, logger.FromZap(zap.New(core)))
	require.NoError(t, err)

	results := s.RunOnce(context.Background())

	assert.Len(t, runner.calls(), 3)
	require.Len(t, results, 1)
	assert.Contains(t, results, model.KindMatch)
	assert.Equal(t, 1, logs.FilterMessage("Skipping scheduled import, another run holds the lock").Len())
	assert.Equal(t, 1, logs.FilterMessage("Scheduled import failed").Len())
}

func TestRunOnce_StopsOnCancelledContext(t *testing.T) {
	runner := &fakeRunner{}
	s, err := New("@every 1h", []string{"person", "sponsor"}, runner, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Empty(t, s.RunOnce(ctx))
	assert.Empty(t, runner.calls())
}

func TestReschedule(t *testing.T) {
	runner := &fakeRunner{}
	s, err := New("@every 1h", []string{"person"}, runner, nil)
	require.NoError(t, err)
	first := s.entryID

	require.NoError(t, s.Reschedule("@every 1h", []string{"match"}))
	assert.Equal(t, first, s.entryID, "same spec keeps the entry")

	require.NoError(t, s.Reschedule("0 3 * * *", []string{"sponsor"}))
	assert.NotEqual(t, first, s.entryID)
	assert.Len(t, s.cron.Entries(), 1)

	require.Error(t, s.Reschedule("bogus", []string{"person"}))
	assert.Equal(t, "0 3 * * *", s.spec, "failed reschedule keeps the old spec")

	s.RunOnce(context.Background())
	assert.Equal(t, []model.Kind{model.KindSponsor}, runner.calls())
}

func TestRun_TicksUntilCancelled(t *testing.T) {
	runner := &fakeRunner{ran: make(chan struct{}, 1)}
	s, err := New("@every 1s", []string{"person"}, runner, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	select {
	case <-runner.ran:
	case <-time.After(3 * time.Second):
		t.Fatal("scheduled import did not run")
	}
	assert.False(t, s.Next().IsZero())

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

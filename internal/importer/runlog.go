package importer

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/banksodee/clubsync/internal/logger"
	"github.com/banksodee/clubsync/internal/model"
)

// RunStatus is the final state of an import run.
type RunStatus string

const (
	RunStatusRunning     RunStatus = "running"
	RunStatusCompleted   RunStatus = "completed"
	RunStatusPartial     RunStatus = "completed_with_errors"
	RunStatusFailed      RunStatus = "failed"
	RunStatusInterrupted RunStatus = "interrupted"
)

const createRunsTableSQL = `
CREATE TABLE IF NOT EXISTS import_runs (
	id CHAR(36) PRIMARY KEY,
	kind VARCHAR(20) NOT NULL,
	started_at TIMESTAMP NOT NULL,
	finished_at TIMESTAMP NULL,
	created INT NOT NULL DEFAULT 0,
	updated INT NOT NULL DEFAULT 0,
	failed INT NOT NULL DEFAULT 0,
	total INT NOT NULL DEFAULT 0,
	status VARCHAR(30) NOT NULL,
	INDEX idx_kind_started (kind, started_at),
	INDEX idx_status (status)
) ENGINE=InnoDB;
`

// RunRecorder keeps the history of import runs.
type RunRecorder interface {
	Start(ctx context.Context, runID string, kind model.Kind) error
	Finish(ctx context.Context, runID string, res *ImportResult, status RunStatus) error
}

// RunRecord is one row of import_runs.
type RunRecord struct {
	ID         string     `json:"id"`
	Kind       string     `json:"kind"`
	StartedAt  time.Time  `json:"startedAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
	Created    int        `json:"created"`
	Updated    int        `json:"updated"`
	Failed     int        `json:"failed"`
	Total      int        `json:"total"`
	Status     RunStatus  `json:"status"`
}

// RunLog stores run history in the import_runs table.
type RunLog struct {
	db     *sql.DB
	logger *logger.Logger
	now    func() time.Time
}

var _ RunRecorder = (*RunLog)(nil)

// NewRunLog creates a run log on db.
func NewRunLog(db *sql.DB, log *logger.Logger) (*RunLog, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is nil")
	}
	if log == nil {
		log = logger.NewDefault()
	}
	return &RunLog{db: db, logger: log, now: func() time.Time { return time.Now().UTC() }}, nil
}

// InitializeTable creates import_runs if it does not exist.
func (r *RunLog) InitializeTable(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, createRunsTableSQL); err != nil {
		return fmt.Errorf("failed to create import_runs table: %w", err)
	}
	r.logger.Debug("Import run table initialized")
	return nil
}

// Start records a new running run.
func (r *RunLog) Start(ctx context.Context, runID string, kind model.Kind) error {
	_, err := r.db.ExecContext(ctx,
		"INSERT INTO import_runs (id, kind, started_at, status) VALUES (?, ?, ?, ?)",
		runID, kind.String(), r.now(), string(RunStatusRunning),
	)
	if err != nil {
		return fmt.Errorf("failed to record run start: %w", err)
	}
	return nil
}

// Finish stores the final counters and status of a run.
func (r *RunLog) Finish(ctx context.Context, runID string, res *ImportResult, status RunStatus) error {
	_, err := r.db.ExecContext(ctx,
		"UPDATE import_runs SET finished_at = ?, created = ?, updated = ?, failed = ?, total = ?, status = ? WHERE id = ?",
		r.now(), res.Created, res.Updated, res.Failed, res.ProcessingStats.Total, string(status), runID,
	)
	if err != nil {
		return fmt.Errorf("failed to record run finish: %w", err)
	}
	return nil
}

// Recent returns the latest runs of a kind, newest first.
func (r *RunLog) Recent(ctx context.Context, kind model.Kind, limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, kind, started_at, finished_at, created, updated, failed, total, status FROM import_runs WHERE kind = ? ORDER BY started_at DESC LIMIT ?",
		kind.String(), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query import runs: %w", err)
	}
	defer rows.Close()

	var out []RunRecord
	for rows.Next() {
		var rec RunRecord
		var finished sql.NullTime
		var status string
		if err := rows.Scan(&rec.ID, &rec.Kind, &rec.StartedAt, &finished, &rec.Created, &rec.Updated, &rec.Failed, &rec.Total, &status); err != nil {
			return nil, fmt.Errorf("failed to scan import run: %w", err)
		}
		if finished.Valid {
			t := finished.Time
			rec.FinishedAt = &t
		}
		rec.Status = RunStatus(status)
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating import runs: %w", err)
	}
	return out, nil
}

func newRunID() string { return uuid.NewString() }

func finalStatus(res *ImportResult) RunStatus {
	switch {
	case res.Errors[ErrorKeyFetch] != "":
		return RunStatusFailed
	case res.Errors[ErrorKeyGeneral] != "":
		return RunStatusInterrupted
	case res.Failed > 0:
		return RunStatusPartial
	default:
		return RunStatusCompleted
	}
}

package importer

import (
	"time"

	"github.com/banksodee/clubsync/internal/config"
)

// Error keys for run-level failures in ImportResult.Errors.
const (
	ErrorKeyFetch   = "fetch"
	ErrorKeyGeneral = "general"
)

// ProgressFunc receives a snapshot of the cumulative result after every record.
type ProgressFunc func(ImportResult)

// ImportOptions controls a single import run. Zero values fall back to the
// importer's configured defaults.
type ImportOptions struct {
	BatchSize  int
	BatchDelay time.Duration
	DryRun     bool
	// TestSinglePlayer restricts the run to the record with this id.
	TestSinglePlayer string
	// IncludeStaff widens the person query to staff rows. Nil means true.
	IncludeStaff *bool
	// Debug logs every record at info level instead of debug.
	Debug      bool
	OnProgress ProgressFunc
}

func (o ImportOptions) withDefaults(d config.ImportConfig) ImportOptions {
	if o.BatchSize <= 0 {
		o.BatchSize = d.BatchSize
	}
	if o.BatchSize <= 0 {
		o.BatchSize = 5
	}
	if o.BatchDelay <= 0 {
		o.BatchDelay = d.BatchDelay
	}
	if o.IncludeStaff == nil {
		include := d.IncludeStaff
		o.IncludeStaff = &include
	}
	return o
}

// ProcessingStats counts candidates and the records handled so far.
type ProcessingStats struct {
	Total     int `json:"total"`
	Processed int `json:"processed"`
}

// ImportResult is the aggregate outcome of a run. Errors is keyed by record
// id, or by ErrorKeyFetch / ErrorKeyGeneral for run-level failures.
type ImportResult struct {
	RunID           string            `json:"runId"`
	Created         int               `json:"created"`
	Updated         int               `json:"updated"`
	Failed          int               `json:"failed"`
	Errors          map[string]string `json:"errors"`
	ProcessingStats ProcessingStats   `json:"processingStats"`
}

func newResult(runID string) *ImportResult {
	return &ImportResult{RunID: runID, Errors: make(map[string]string)}
}

// Snapshot returns a copy that does not share the Errors map.
func (r *ImportResult) Snapshot() ImportResult {
	out := *r
	out.Errors = make(map[string]string, len(r.Errors))
	for k, v := range r.Errors {
		out.Errors[k] = v
	}
	return out
}

// HasRunError reports whether the run was aborted or interrupted.
func (r *ImportResult) HasRunError() bool {
	_, fetch := r.Errors[ErrorKeyFetch]
	_, general := r.Errors[ErrorKeyGeneral]
	return fetch || general
}

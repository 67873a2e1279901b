// Package importer drives one-directional bulk synchronization from the
// relational store into the content store. Records are processed strictly
// sequentially in fixed-size batches with a fixed delay between batches; a
// failing record is recorded and skipped, never aborting the run.
package importer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/banksodee/clubsync/internal/audit"
	"github.com/banksodee/clubsync/internal/config"
	"github.com/banksodee/clubsync/internal/content"
	"github.com/banksodee/clubsync/internal/logger"
	"github.com/banksodee/clubsync/internal/mapper"
	"github.com/banksodee/clubsync/internal/model"
	"github.com/banksodee/clubsync/internal/relational"
	"github.com/banksodee/clubsync/internal/resolver"
)

// Importer runs batch imports. It is safe to reuse across runs but does not
// exclude concurrent runs of the same kind; callers take a lock for that.
type Importer struct {
	content    content.Store
	relational relational.Store
	resolver   *resolver.Resolver
	audit      audit.Recorder
	runs       RunRecorder
	logger     *logger.Logger

	mu       sync.RWMutex
	defaults config.ImportConfig
}

// Option configures an Importer.
type Option func(*Importer)

// WithRunLog records every non-dry run.
func WithRunLog(runs RunRecorder) Option {
	return func(i *Importer) { i.runs = runs }
}

// WithDefaults sets the batch size, delay and staff inclusion used when
// ImportOptions leaves them unset.
func WithDefaults(d config.ImportConfig) Option {
	return func(i *Importer) { i.defaults = d }
}

// New creates an Importer.
func New(cs content.Store, rs relational.Store, res *resolver.Resolver, rec audit.Recorder, log *logger.Logger, opts ...Option) *Importer {
	if log == nil {
		log = logger.NewDefault()
	}
	i := &Importer{
		content:    cs,
		relational: rs,
		resolver:   res,
		audit:      rec,
		defaults:   config.DefaultConfig().Import,
		logger:     log,
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// SetDefaults replaces the import defaults, e.g. after a config reload.
// Runs already in progress keep the defaults they started with.
func (i *Importer) SetDefaults(d config.ImportConfig) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.defaults = d
}

// Defaults returns the current import defaults.
func (i *Importer) Defaults() config.ImportConfig {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.defaults
}

// Import synchronizes every candidate row of kind into the content store.
// It never returns an error: run-level failures are reported in the result
// under ErrorKeyFetch or ErrorKeyGeneral.
func (i *Importer) Import(ctx context.Context, kind model.Kind, opts ImportOptions) *ImportResult {
	opts = opts.withDefaults(i.Defaults())
	runID := newRunID()
	res := newResult(runID)
	log := i.logger.WithKind(kind.String()).WithRun(runID)

	if !kind.Valid() {
		res.Errors[ErrorKeyGeneral] = fmt.Sprintf("%v: %s", model.ErrUnknownKind, kind)
		log.Errorw("Import aborted", "error", res.Errors[ErrorKeyGeneral])
		return res
	}

	log.Infow("Starting import",
		"batch_size", opts.BatchSize,
		"batch_delay", opts.BatchDelay,
		"dry_run", opts.DryRun,
		"include_staff", *opts.IncludeStaff,
		"test_record", opts.TestSinglePlayer,
	)
	startTime := time.Now()

	if !opts.DryRun {
		i.startRun(ctx, runID, kind, log)
		defer i.finishRun(ctx, runID, res, log)
	}

	candidates, err := i.fetchCandidates(ctx, kind, opts)
	if err != nil {
		res.Errors[ErrorKeyFetch] = err.Error()
		log.Errorw("Failed to fetch import candidates", "error", err)
		return res
	}
	res.ProcessingStats.Total = len(candidates)

	if len(candidates) == 0 {
		log.Info("No records to import")
		return res
	}

	batchNum := 0
	for start := 0; start < len(candidates); start += opts.BatchSize {
		if batchNum > 0 && opts.BatchDelay > 0 {
			log.Debugf("Sleeping for %v before next batch", opts.BatchDelay)
			select {
			case <-ctx.Done():
				interrupted(ctx, res, log, "during sleep")
				return res
			case <-time.After(opts.BatchDelay):
			}
		}

		batchNum++
		end := start + opts.BatchSize
		if end > len(candidates) {
			end = len(candidates)
		}
		batchLogger := log.WithBatch(batchNum)
		batchLogger.Infof("Processing batch %d with %d records", batchNum, end-start)

		for _, row := range candidates[start:end] {
			if ctx.Err() != nil {
				interrupted(ctx, res, log, "mid-batch")
				return res
			}
			i.processRecord(ctx, kind, row, opts, res, batchLogger)
			res.ProcessingStats.Processed++
			if opts.OnProgress != nil {
				opts.OnProgress(res.Snapshot())
			}
		}
	}

	log.Infow("Import complete",
		"created", res.Created,
		"updated", res.Updated,
		"failed", res.Failed,
		"total", res.ProcessingStats.Total,
		"duration", time.Since(startTime),
	)
	return res
}

// interrupted records a cancelled run under ErrorKeyGeneral. Records not yet
// attempted are left out of Failed.
func interrupted(ctx context.Context, res *ImportResult, log *logger.Logger, where string) {
	res.Errors[ErrorKeyGeneral] = fmt.Sprintf("import interrupted: %v", ctx.Err())
	log.Warnf("Import interrupted %s: %v (processed %d of %d)",
		where, ctx.Err(), res.ProcessingStats.Processed, res.ProcessingStats.Total)
}

// fetchCandidates queries the rows to import. Persons missing a first or last
// name are dropped here and never counted.
func (i *Importer) fetchCandidates(ctx context.Context, kind model.Kind, opts ImportOptions) ([]model.Row, error) {
	filter := relational.Filter{OrderBy: "id"}
	if opts.TestSinglePlayer != "" {
		filter.All = append(filter.All, relational.Eq("id", opts.TestSinglePlayer))
	}

	switch kind {
	case model.KindPerson:
		filter.Any = append(filter.Any, relational.NotNull("player_position"))
		if *opts.IncludeStaff {
			filter.Any = append(filter.Any, relational.NotNull("staff_role"))
		}
	case model.KindSponsor, model.KindMatch:
	default:
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownKind, kind)
	}

	rows, err := i.relational.Query(ctx, kind.Table(), filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", kind.Table(), err)
	}

	if kind != model.KindPerson {
		return rows, nil
	}
	kept := rows[:0]
	for _, row := range rows {
		if model.PersonFromRow(row).HasIdentity() {
			kept = append(kept, row)
		}
	}
	return kept, nil
}

type outcome struct {
	operation  model.Operation
	documentID string
	payload    model.Document
}

// processRecord runs one record through lookup, mapping and write, and
// folds the outcome into res.
func (i *Importer) processRecord(ctx context.Context, kind model.Kind, row model.Row, opts ImportOptions, res *ImportResult, log *logger.Logger) {
	recordID := row.ID()
	label := mapper.Label(kind, row)
	recLog := log.WithRecord(recordID)
	logf := recLog.Debugw
	if opts.Debug {
		logf = recLog.Infow
	}

	out, err := i.syncRecord(ctx, kind, row, opts.DryRun)
	if err != nil {
		res.Failed++
		res.Errors[errorKey(recordID, label)] = fmt.Sprintf("Error with %s: %v", label, err)
		if model.IsPartialWrite(err) {
			recLog.Errorw("Partial write during import", "partial_write", true, "document_id", out.documentID, "error", err)
		} else {
			recLog.Warnw("Record import failed", "label", label, "error", err)
		}
		i.record(ctx, kind, row, out, opts.DryRun, err)
		return
	}

	switch out.operation {
	case model.OperationCreate:
		res.Created++
	case model.OperationUpdate:
		res.Updated++
	}
	logf("Record imported", "label", label, "operation", string(out.operation), "document_id", out.documentID, "dry_run", opts.DryRun)
	i.record(ctx, kind, row, out, opts.DryRun, nil)
}

// syncRecord patches the twin when one exists and creates it otherwise. New
// documents are linked back onto the row; a failure there is a partial write.
func (i *Importer) syncRecord(ctx context.Context, kind model.Kind, row model.Row, dryRun bool) (outcome, error) {
	out := outcome{operation: model.OperationCreate}

	existing, err := i.resolver.LookupDocumentForRecord(ctx, kind, row, resolver.Options{SkipCache: true})
	if err != nil {
		return out, fmt.Errorf("failed to look up existing document: %w", err)
	}

	if existing != nil {
		out.operation = model.OperationUpdate
		out.documentID = existing.ID()
		patch, err := mapper.ToPatch(kind, row)
		if err != nil {
			return out, err
		}
		out.payload = patch
		if dryRun {
			return out, nil
		}
		if err := i.content.Patch(ctx, existing.ID(), patch); err != nil {
			return out, err
		}
		defer i.resolver.Invalidate(kind, row.ID(), existing.ID())
		if row.LinkedDocumentID() != model.NormalizeDocumentID(existing.ID()) {
			if err := i.linkRow(ctx, kind, row.ID(), existing.ID()); err != nil {
				return out, err
			}
		}
		return out, nil
	}

	doc, err := mapper.ToDocument(kind, row)
	if err != nil {
		return out, err
	}
	out.payload = doc
	if dryRun {
		return out, nil
	}
	created, err := i.content.Create(ctx, doc)
	if err != nil {
		return out, err
	}
	out.documentID = created.ID()
	defer i.resolver.Invalidate(kind, row.ID(), created.ID())
	if err := i.linkRow(ctx, kind, row.ID(), created.ID()); err != nil {
		return out, err
	}
	return out, nil
}

func (i *Importer) linkRow(ctx context.Context, kind model.Kind, recordID, documentID string) error {
	err := i.relational.Update(ctx, kind.Table(), recordID, model.Row{
		model.RowLinkField: model.NormalizeDocumentID(documentID),
	})
	if err != nil {
		return &model.PartialWriteError{Written: "content", Failed: "relational", Err: err}
	}
	return nil
}

func (i *Importer) record(ctx context.Context, kind model.Kind, row model.Row, out outcome, dryRun bool, err error) {
	if dryRun || i.audit == nil {
		return
	}
	entry := audit.Entry{
		EventType:    audit.EventImport,
		DocumentType: kind.DocumentType(),
		DocumentID:   out.documentID,
		Operation:    string(out.operation),
		Status:       audit.StatusSuccess,
		Payload:      out.payload,
	}
	if entry.DocumentID == "" {
		entry.DocumentID = row.ID()
	}
	if err != nil {
		entry.Status = audit.StatusFailed
		if model.IsPartialWrite(err) {
			entry.Status = audit.StatusPartial
		}
		entry.ErrorMessage = err.Error()
	}
	i.audit.Insert(ctx, entry)
}

func (i *Importer) startRun(ctx context.Context, runID string, kind model.Kind, log *logger.Logger) {
	if i.runs == nil {
		return
	}
	if err := i.runs.Start(ctx, runID, kind); err != nil {
		log.Warnw("Failed to record import run", "error", err)
	}
}

func (i *Importer) finishRun(ctx context.Context, runID string, res *ImportResult, log *logger.Logger) {
	if i.runs == nil {
		return
	}
	// The run context may already be cancelled; history is still written.
	ctx = context.WithoutCancel(ctx)
	if err := i.runs.Finish(ctx, runID, res, finalStatus(res)); err != nil {
		log.Warnw("Failed to record import run result", "error", err)
	}
}

func errorKey(recordID, label string) string {
	if recordID != "" {
		return recordID
	}
	return label
}

// Package webhook applies content-store change notifications to the
// relational store. Process never returns an error: every attempt ends in
// a boolean and an audit entry.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/banksodee/clubsync/internal/audit"
	"github.com/banksodee/clubsync/internal/content"
	"github.com/banksodee/clubsync/internal/logger"
	"github.com/banksodee/clubsync/internal/mapper"
	"github.com/banksodee/clubsync/internal/model"
	"github.com/banksodee/clubsync/internal/relational"
	"github.com/banksodee/clubsync/internal/resolver"
)

// DocumentTypeUnknown is audited for payloads that could not be decoded.
const DocumentTypeUnknown = "unknown"

// Processor dispatches webhook payloads to per-kind handlers.
type Processor struct {
	content    content.Store
	relational relational.Store
	resolver   *resolver.Resolver
	audit      audit.Recorder
	logger     *logger.Logger
	now        func() time.Time
}

// Option configures a Processor.
type Option func(*Processor)

// WithClock replaces time.Now, used for date defaults.
func WithClock(now func() time.Time) Option {
	return func(p *Processor) { p.now = now }
}

// NewProcessor creates a Processor.
func NewProcessor(cs content.Store, rs relational.Store, res *resolver.Resolver, rec audit.Recorder, log *logger.Logger, opts ...Option) *Processor {
	if log == nil {
		log = logger.NewDefault()
	}
	p := &Processor{
		content:    cs,
		relational: rs,
		resolver:   res,
		audit:      rec,
		logger:     log,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// result is the outcome of one handler invocation.
type result struct {
	operation model.Operation
	recordID  string
	status    audit.Status
	err       error
}

// Process decodes a raw JSON body and processes it. It returns true only
// when the change was written.
func (p *Processor) Process(ctx context.Context, raw []byte) bool {
	payload, err := model.DecodeWebhookPayload(raw)
	if err != nil {
		p.logger.Warnw("Rejected undecodable webhook payload", "error", err)
		p.record(ctx, audit.Entry{
			DocumentType: DocumentTypeUnknown,
			Operation:    string(model.OperationCreate),
			Status:       audit.StatusFailed,
			ErrorMessage: err.Error(),
			Payload:      raw,
		})
		return false
	}
	return p.ProcessPayload(ctx, payload)
}

// ProcessPayload processes a decoded payload.
func (p *Processor) ProcessPayload(ctx context.Context, payload *model.WebhookPayload) bool {
	log := p.logger.WithDocument(payload.DocumentType, payload.ID)

	kind, ok := model.ParseDocumentType(payload.DocumentType)
	if !ok {
		log.Warnw("Ignoring webhook for unhandled document type", "operation", string(payload.Operation))
		p.record(ctx, audit.Entry{
			DocumentType: payload.DocumentType,
			DocumentID:   payload.ID,
			Operation:    string(payload.Operation),
			Status:       audit.StatusIgnored,
			Payload:      payload.Fields,
		})
		return false
	}
	log = log.WithKind(kind.String())

	var res result
	if payload.Operation == model.OperationDelete {
		res = p.unlink(ctx, kind, payload)
	} else {
		res = p.upsert(ctx, kind, payload, log)
	}

	entry := audit.Entry{
		DocumentType: payload.DocumentType,
		DocumentID:   payload.ID,
		Operation:    string(res.operation),
		Status:       res.status,
		Payload:      payload.Fields,
	}
	if res.err != nil {
		entry.ErrorMessage = res.err.Error()
	}

	switch {
	case res.status == audit.StatusPartial:
		log.Errorw("Partial write: relational row stored but content back-link failed",
			"partial_write", true,
			"record_id", res.recordID,
			"error", res.err,
		)
	case res.err != nil:
		log.Errorw("Webhook sync failed", "operation", string(res.operation), "error", res.err)
	case res.status == audit.StatusIgnored:
		log.Infow("Webhook had nothing to apply", "operation", string(res.operation))
	default:
		log.Infow("Webhook synced", "operation", string(res.operation), "record_id", res.recordID)
	}

	p.record(ctx, entry)
	return res.status == audit.StatusSuccess
}

// toRow validates the payload as the kind's typed schema and maps it to columns.
func (p *Processor) toRow(ctx context.Context, kind model.Kind, payload *model.WebhookPayload, log *logger.Logger) (model.Row, error) {
	switch kind {
	case model.KindPerson:
		profile, err := model.DecodePersonProfile(payload.Fields)
		if err != nil {
			return nil, err
		}
		return mapper.PersonProfileToRow(profile), nil
	case model.KindSponsor:
		sponsor, err := model.DecodeSponsorDocument(payload.Fields)
		if err != nil {
			return nil, err
		}
		return mapper.SponsorDocumentToRow(sponsor), nil
	case model.KindMatch:
		match, err := model.DecodeMatchDocument(payload.Fields)
		if err != nil {
			return nil, err
		}
		match.HomeTeamID = p.teamID(ctx, match.HomeTeamID, match.HomeTeamRef, log)
		match.AwayTeamID = p.teamID(ctx, match.AwayTeamID, match.AwayTeamRef, log)
		match.CompetitionID = p.teamID(ctx, match.CompetitionID, match.CompetitionRef, log)
		return mapper.MatchDocumentToRow(match), nil
	default:
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownKind, kind)
	}
}

// teamID returns the explicit id, or resolves the reference. Unresolvable
// references leave the id empty: an update keeps the stored id and an insert
// gets the sentinel.
func (p *Processor) teamID(ctx context.Context, id, ref string, log *logger.Logger) string {
	if id != "" || ref == "" {
		return id
	}
	resolved, err := p.resolver.ResolveTeamReference(ctx, ref)
	if err != nil {
		if errors.Is(err, model.ErrNotImplemented) {
			log.Debugw("Reference has no relational mapping", "ref", ref)
		} else {
			log.Warnw("Reference resolution failed", "ref", ref, "error", err)
		}
		return ""
	}
	return resolved
}

// upsert updates the linked row or inserts a new one and links it back
// onto the content document.
func (p *Processor) upsert(ctx context.Context, kind model.Kind, payload *model.WebhookPayload, log *logger.Logger) result {
	res := result{operation: payload.Operation, status: audit.StatusFailed}

	row, err := p.toRow(ctx, kind, payload, log)
	if err != nil {
		res.err = err
		return res
	}

	existing, err := p.findRow(ctx, kind, payload)
	if err != nil {
		res.err = err
		return res
	}

	if existing != nil {
		res.operation = model.OperationUpdate
		res.recordID = existing.ID()
		if err := p.relational.Update(ctx, kind.Table(), existing.ID(), row); err != nil {
			res.err = err
			return res
		}
		p.resolver.Invalidate(kind, existing.ID(), payload.ID)
		res.status = audit.StatusSuccess
		return res
	}

	res.operation = model.OperationCreate
	row = mapper.InsertDefaults(kind, row, p.now())
	id, err := p.relational.Insert(ctx, kind.Table(), row)
	if err != nil {
		res.err = err
		return res
	}
	res.recordID = id
	p.resolver.Invalidate(kind, id, payload.ID)

	if err := p.content.Patch(ctx, payload.ID, model.Document{model.DocumentLinkField: id}); err != nil {
		res.status = audit.StatusPartial
		res.err = &model.PartialWriteError{Written: "relational", Failed: "content", Err: err}
		return res
	}
	res.status = audit.StatusSuccess
	return res
}

// findRow looks up the row by the payload's relational id, then by the row's
// link back to the document.
func (p *Processor) findRow(ctx context.Context, kind model.Kind, payload *model.WebhookPayload) (model.Row, error) {
	if payload.SupabaseID != "" {
		row, err := p.relational.Get(ctx, kind.Table(), payload.SupabaseID)
		if err != nil {
			return nil, fmt.Errorf("failed to get %s %s: %w", kind.Table(), payload.SupabaseID, err)
		}
		if row != nil {
			return row, nil
		}
	}
	documentID := model.NormalizeDocumentID(payload.ID)
	row, err := p.relational.FindOne(ctx, kind.Table(), model.RowLinkField, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to find %s by %s: %w", kind.Table(), model.RowLinkField, err)
	}
	return row, nil
}

// unlink clears the row's link to a deleted document. The row itself is kept.
func (p *Processor) unlink(ctx context.Context, kind model.Kind, payload *model.WebhookPayload) result {
	res := result{operation: model.OperationDelete, status: audit.StatusFailed}

	row, err := p.findRow(ctx, kind, payload)
	if err != nil {
		res.err = err
		return res
	}
	if row == nil {
		res.status = audit.StatusIgnored
		return res
	}

	res.recordID = row.ID()
	if err := p.relational.Update(ctx, kind.Table(), row.ID(), model.Row{model.RowLinkField: nil}); err != nil {
		res.err = err
		return res
	}
	p.resolver.Invalidate(kind, row.ID(), payload.ID)
	res.status = audit.StatusSuccess
	return res
}

func (p *Processor) record(ctx context.Context, e audit.Entry) {
	if p.audit == nil {
		return
	}
	e.EventType = audit.EventWebhook
	p.audit.Insert(ctx, e)
}

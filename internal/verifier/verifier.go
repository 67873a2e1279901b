// Package verifier checks that linked rows and documents still agree.
package verifier

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/banksodee/clubsync/internal/content"
	"github.com/banksodee/clubsync/internal/logger"
	"github.com/banksodee/clubsync/internal/mapper"
	"github.com/banksodee/clubsync/internal/model"
	"github.com/banksodee/clubsync/internal/relational"
)

// VerificationMethod defines how deep a verification goes.
type VerificationMethod string

const (
	// MethodLinks checks that every linked row points at a document that links back.
	MethodLinks VerificationMethod = "links"
	// MethodSHA256 also hashes the synced fields on both sides to find drift.
	MethodSHA256 VerificationMethod = "sha256"
	// MethodSkip skips verification entirely.
	MethodSkip VerificationMethod = "skip"
)

const defaultChunkSize = 100

// VerifyResult holds the outcome for one kind.
type VerifyResult struct {
	Kind    model.Kind
	Method  VerificationMethod
	Checked int
	// MissingDocuments lists row ids whose linked document does not exist.
	MissingDocuments []string
	// BrokenBackLinks lists row ids whose document links a different row.
	BrokenBackLinks []string
	// Drifted lists row ids whose synced fields differ from the document.
	Drifted []string
	// Unmappable lists row ids the mapper rejects.
	Unmappable []string
}

// Match reports whether no problem was found.
func (r *VerifyResult) Match() bool {
	return len(r.MissingDocuments) == 0 && len(r.BrokenBackLinks) == 0 &&
		len(r.Drifted) == 0 && len(r.Unmappable) == 0
}

// Verifier compares linked rows with their documents.
type Verifier struct {
	content    content.Store
	relational relational.Store
	method     VerificationMethod
	chunkSize  int
	logger     *logger.Logger
}

// NewVerifier creates a verifier. An empty method defaults to MethodLinks.
func NewVerifier(cs content.Store, rs relational.Store, method VerificationMethod, log *logger.Logger) (*Verifier, error) {
	if cs == nil {
		return nil, fmt.Errorf("content store is nil")
	}
	if rs == nil {
		return nil, fmt.Errorf("relational store is nil")
	}
	if log == nil {
		log = logger.NewDefault()
	}
	if method == "" {
		method = MethodLinks
	}
	switch method {
	case MethodLinks, MethodSHA256, MethodSkip:
	default:
		return nil, fmt.Errorf("unsupported verification method: %s", method)
	}

	return &Verifier{
		content:    cs,
		relational: rs,
		method:     method,
		chunkSize:  defaultChunkSize,
		logger:     log,
	}, nil
}

// SetChunkSize sets how many documents are fetched per query.
func (v *Verifier) SetChunkSize(size int) {
	if size > 0 {
		v.chunkSize = size
	}
}

// Method returns the configured verification method.
func (v *Verifier) Method() VerificationMethod {
	return v.method
}

// Verify checks every row of kind that carries a document link.
func (v *Verifier) Verify(ctx context.Context, kind model.Kind) (*VerifyResult, error) {
	res := &VerifyResult{Kind: kind, Method: v.method}
	if v.method == MethodSkip {
		v.logger.Info("Verification SKIPPED (method=skip)")
		return res, nil
	}
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownKind, kind)
	}

	log := v.logger.WithKind(kind.String())
	rows, err := v.relational.Query(ctx, kind.Table(), relational.Filter{
		All:     []relational.Condition{relational.NotNull(model.RowLinkField)},
		OrderBy: "id",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query linked rows: %w", err)
	}
	log.Infof("Starting verification (method=%s) for %d linked rows", v.method, len(rows))

	for start := 0; start < len(rows); start += v.chunkSize {
		if err := ctx.Err(); err != nil {
			return res, fmt.Errorf("verification interrupted: %w", err)
		}
		end := start + v.chunkSize
		if end > len(rows) {
			end = len(rows)
		}
		if err := v.verifyChunk(ctx, kind, rows[start:end], res); err != nil {
			return res, err
		}
	}

	if res.Match() {
		log.Infof("Verification PASSED (%d rows)", res.Checked)
	} else {
		log.Warnw("Verification found problems",
			"missing_documents", len(res.MissingDocuments),
			"broken_back_links", len(res.BrokenBackLinks),
			"drifted", len(res.Drifted),
			"unmappable", len(res.Unmappable),
		)
	}
	return res, nil
}

func (v *Verifier) verifyChunk(ctx context.Context, kind model.Kind, rows []model.Row, res *VerifyResult) error {
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		if id := row.LinkedDocumentID(); id != "" {
			ids = append(ids, id)
		}
	}

	docs, err := v.content.GetMany(ctx, kind.DocumentType(), ids)
	if err != nil {
		return fmt.Errorf("failed to fetch documents: %w", err)
	}
	byID := make(map[string]model.Document, len(docs))
	for _, d := range docs {
		byID[model.NormalizeDocumentID(d.ID())] = d
	}

	for _, row := range rows {
		linked := row.LinkedDocumentID()
		if linked == "" {
			continue
		}
		res.Checked++

		doc, ok := byID[linked]
		if !ok {
			res.MissingDocuments = append(res.MissingDocuments, row.ID())
			continue
		}
		if back := doc.LinkedRecordID(); back != "" && back != row.ID() {
			res.BrokenBackLinks = append(res.BrokenBackLinks, row.ID())
			continue
		}
		if v.method != MethodSHA256 {
			continue
		}

		patch, err := mapper.ToPatch(kind, row)
		if err != nil {
			res.Unmappable = append(res.Unmappable, row.ID())
			continue
		}
		want, err := hashFields(patch, patch)
		if err != nil {
			return err
		}
		got, err := hashFields(doc, patch)
		if err != nil {
			return err
		}
		if want != got {
			res.Drifted = append(res.Drifted, row.ID())
		}
	}
	return nil
}

// hashFields hashes the values src holds for the keys of fields. Map keys
// are sorted by encoding/json, so equal field sets hash equally.
func hashFields(src model.Document, fields model.Document) (string, error) {
	projected := make(map[string]interface{}, len(fields))
	for k := range fields {
		projected[k] = src[k]
	}
	data, err := json.Marshal(projected)
	if err != nil {
		return "", fmt.Errorf("failed to serialize fields: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

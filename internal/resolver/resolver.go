// Package resolver finds the twin of an entity in the other store. Every
// lookup goes through the resolution cache. The Resolve methods never return
// store errors: a failed lookup is logged and reported as absent, which means
// "no link currently resolvable", not "no counterpart exists".
package resolver

import (
	"context"
	"fmt"

	"github.com/banksodee/clubsync/internal/cache"
	"github.com/banksodee/clubsync/internal/content"
	"github.com/banksodee/clubsync/internal/logger"
	"github.com/banksodee/clubsync/internal/model"
	"github.com/banksodee/clubsync/internal/relational"
)

// Cache key directions.
const (
	DirectionContent    = "content"
	DirectionRelational = "relational"
	DirectionComposite  = "composite"
)

const reverseSegment = "bySupabaseId:"

// Options tunes a single resolution.
type Options struct {
	// SkipCache forces fresh reads and overwrites the cached entries.
	SkipCache bool
}

// PersonProfilePair is a people row together with its playerProfile document.
// Profile is nil when the person has no resolvable profile.
type PersonProfilePair struct {
	Person  model.Row
	Profile model.Document
}

// Resolver resolves cross-store links.
type Resolver struct {
	content    content.Store
	relational relational.Store
	cache      *cache.Cache
	logger     *logger.Logger
}

// New creates a Resolver. The cache is owned by the caller so that tests and
// processes can choose their own lifetime and TTL.
func New(cs content.Store, rs relational.Store, c *cache.Cache, log *logger.Logger) *Resolver {
	if c == nil {
		c = cache.New(cache.DefaultTTL)
	}
	if log == nil {
		log = logger.NewNop()
	}
	return &Resolver{content: cs, relational: rs, cache: c, logger: log}
}

// Cache returns the resolver's cache.
func (r *Resolver) Cache() *cache.Cache { return r.cache }

// ResolveRecordForDocument returns the relational row a content document links
// to through its supabaseId field, or nil.
func (r *Resolver) ResolveRecordForDocument(ctx context.Context, kind model.Kind, doc model.Document, opts Options) model.Row {
	log := r.logger.WithKind(kind.String()).WithDocument(kind.DocumentType(), doc.ID())

	if !kind.Valid() {
		log.Warnw("cannot resolve record for unknown kind")
		return nil
	}

	id := doc.LinkedRecordID()
	if id == "" {
		log.Debugw("document carries no relational link")
		return nil
	}

	row, err := cache.GetOrSet(r.cache, cache.Key(DirectionRelational, kind.DocumentType(), id), func() (model.Row, error) {
		return r.relational.Get(ctx, kind.Table(), id)
	}, opts.SkipCache)
	if err != nil {
		log.Warnw("relational lookup failed", "record_id", id, "error", err)
		return nil
	}
	return row
}

// ResolveDocumentForRecord returns the content document linked to a relational
// row, or nil. The direct sanity_id lookup is tried first; the reverse lookup
// by supabaseId runs only when the direct path finds nothing.
func (r *Resolver) ResolveDocumentForRecord(ctx context.Context, kind model.Kind, row model.Row, opts Options) model.Document {
	doc, err := r.LookupDocumentForRecord(ctx, kind, row, opts)
	if err != nil {
		r.logger.WithKind(kind.String()).WithRecord(row.ID()).Warnw("content lookup failed", "error", err)
		return nil
	}
	return doc
}

// LookupDocumentForRecord is ResolveDocumentForRecord for callers that must
// tell a failed lookup from a miss: store errors are returned, a miss is (nil, nil).
func (r *Resolver) LookupDocumentForRecord(ctx context.Context, kind model.Kind, row model.Row, opts Options) (model.Document, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %s", model.ErrUnknownKind, kind)
	}
	docType := kind.DocumentType()

	if documentID := row.LinkedDocumentID(); documentID != "" {
		doc, err := cache.GetOrSet(r.cache, cache.Key(DirectionContent, docType, documentID), func() (model.Document, error) {
			return r.content.Get(ctx, docType, documentID)
		}, opts.SkipCache)
		if err != nil {
			return nil, fmt.Errorf("get %s %s: %w", docType, documentID, err)
		}
		if doc != nil {
			return doc, nil
		}
	}

	id := row.ID()
	if id == "" {
		return nil, nil
	}
	doc, err := cache.GetOrSet(r.cache, reverseKey(docType, id), func() (model.Document, error) {
		return r.content.FindOne(ctx, docType, model.DocumentLinkField, id)
	}, opts.SkipCache)
	if err != nil {
		return nil, fmt.Errorf("find %s by %s %s: %w", docType, model.DocumentLinkField, id, err)
	}
	return doc, nil
}

// ResolveDocumentsByIDs returns the content documents of the kind with the given ids.
// Draft ids are normalised first.
func (r *Resolver) ResolveDocumentsByIDs(ctx context.Context, kind model.Kind, ids []string, opts Options) []model.Document {
	if len(ids) == 0 || !kind.Valid() {
		return nil
	}
	docType := kind.DocumentType()
	normalized := make([]string, len(ids))
	for i, id := range ids {
		normalized[i] = model.NormalizeDocumentID(id)
	}

	docs, err := cache.GetOrSet(r.cache, cache.BulkKey(DirectionContent, docType, normalized), func() ([]model.Document, error) {
		return r.content.GetMany(ctx, docType, normalized)
	}, opts.SkipCache)
	if err != nil {
		r.logger.WithKind(kind.String()).Warnw("bulk content lookup failed", "ids", len(ids), "error", err)
		return nil
	}
	return docs
}

// ResolveRecordsByIDs returns the relational rows of the kind with the given ids.
func (r *Resolver) ResolveRecordsByIDs(ctx context.Context, kind model.Kind, ids []string, opts Options) []model.Row {
	if len(ids) == 0 || !kind.Valid() {
		return nil
	}
	rows, err := cache.GetOrSet(r.cache, cache.BulkKey(DirectionRelational, kind.DocumentType(), ids), func() ([]model.Row, error) {
		return r.relational.GetMany(ctx, kind.Table(), ids)
	}, opts.SkipCache)
	if err != nil {
		r.logger.WithKind(kind.String()).Warnw("bulk relational lookup failed", "ids", len(ids), "error", err)
		return nil
	}
	return rows
}

// PersonWithProfile returns a person and its profile behind one cache entry,
// so repeated renders issue no store queries. It returns nil when the person
// does not exist or cannot be read.
func (r *Resolver) PersonWithProfile(ctx context.Context, personID string, opts Options) *PersonProfilePair {
	if personID == "" {
		return nil
	}
	key := cache.Key(DirectionComposite, model.DocTypePlayerProfile, personID)

	pair, err := cache.GetOrSet(r.cache, key, func() (*PersonProfilePair, error) {
		person, err := r.relational.Get(ctx, model.TablePeople, personID)
		if err != nil {
			return nil, fmt.Errorf("get person: %w", err)
		}
		if person == nil {
			return nil, nil
		}
		profile, err := r.LookupDocumentForRecord(ctx, model.KindPerson, person, opts)
		if err != nil {
			return nil, err
		}
		return &PersonProfilePair{Person: person, Profile: profile}, nil
	}, opts.SkipCache)
	if err != nil {
		r.logger.WithKind(model.KindPerson.String()).WithRecord(personID).Warnw("person with profile lookup failed", "error", err)
		return nil
	}
	return pair
}

// ResolveTeamReference maps a content-store team reference to a relational
// team id. Teams are not synced, so it always fails with model.ErrNotImplemented
// and callers fall back to model.SentinelID.
func (r *Resolver) ResolveTeamReference(_ context.Context, ref string) (string, error) {
	return "", fmt.Errorf("resolve team reference %q: %w", ref, model.ErrNotImplemented)
}

// Invalidate drops every cached lookup that involves the entity, after a
// write to either store.
func (r *Resolver) Invalidate(kind model.Kind, recordID, documentID string) {
	docType := kind.DocumentType()
	if recordID != "" {
		r.cache.Delete(cache.Key(DirectionRelational, docType, recordID))
		r.cache.Delete(reverseKey(docType, recordID))
		r.cache.Delete(cache.Key(DirectionComposite, docType, recordID))
	}
	if documentID != "" {
		r.cache.Delete(cache.Key(DirectionContent, docType, model.NormalizeDocumentID(documentID)))
	}
	r.cache.DeletePrefix(cache.Key(DirectionContent, docType, "multiple:"))
	r.cache.DeletePrefix(cache.Key(DirectionRelational, docType, "multiple:"))
}

func reverseKey(docType, recordID string) string {
	return cache.Key(DirectionContent, docType, reverseSegment+recordID)
}

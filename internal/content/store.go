// Package content is the point-query/create/patch contract for the document
// store that holds editorial content, with a MongoDB implementation.
package content

import (
	"context"
	"errors"

	"github.com/banksodee/clubsync/internal/model"
)

// ErrDocumentNotFound is returned by Patch when no document has the id.
var ErrDocumentNotFound = errors.New("document not found")

// ErrDuplicateLink is returned by Create when another document of the same
// type already carries the relational id.
var ErrDuplicateLink = errors.New("another document already links this record")

// Store reads and writes content documents.
type Store interface {
	// Get returns the document of docType with id, or nil.
	Get(ctx context.Context, docType, id string) (model.Document, error)
	// FindOne returns the first document of docType where field equals value, or nil.
	FindOne(ctx context.Context, docType, field string, value interface{}) (model.Document, error)
	// GetMany returns the documents of docType whose id is in ids.
	GetMany(ctx context.Context, docType string, ids []string) ([]model.Document, error)
	// Create stores a new document and returns it with _id and _rev set.
	Create(ctx context.Context, doc model.Document) (model.Document, error)
	// Patch sets fields on an existing document.
	Patch(ctx context.Context, id string, fields model.Document) error
}

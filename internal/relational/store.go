// Package relational is the row query/insert/update contract for the
// relational store, with a MySQL implementation.
package relational

import (
	"context"

	"github.com/banksodee/clubsync/internal/model"
)

// Store reads and writes rows by table.
type Store interface {
	// Get returns the row with the given id, or nil when it does not exist.
	Get(ctx context.Context, table, id string) (model.Row, error)
	// FindOne returns the first row where column equals value, or nil.
	FindOne(ctx context.Context, table, column string, value interface{}) (model.Row, error)
	// GetMany returns the rows whose id is in ids.
	GetMany(ctx context.Context, table string, ids []string) ([]model.Row, error)
	// Query returns the rows matching f.
	Query(ctx context.Context, table string, f Filter) ([]model.Row, error)
	// Insert writes a new row and returns its id. A uuid is assigned when row has no id.
	Insert(ctx context.Context, table string, row model.Row) (string, error)
	// Update sets the given columns on the row with id.
	Update(ctx context.Context, table, id string, row model.Row) error
}

// Op is a comparison in a Condition.
type Op int

const (
	OpEq Op = iota
	OpNotNull
	OpIn
)

// Condition is one predicate on a column.
type Condition struct {
	Column string
	Op     Op
	Value  interface{} // []string for OpIn, ignored for OpNotNull
}

// Filter selects rows: every All condition must hold and, when Any is
// non-empty, at least one Any condition must hold.
type Filter struct {
	All     []Condition
	Any     []Condition
	OrderBy string
}

// Eq is shorthand for an equality condition.
func Eq(column string, value interface{}) Condition {
	return Condition{Column: column, Op: OpEq, Value: value}
}

// NotNull is shorthand for an IS NOT NULL condition.
func NotNull(column string) Condition {
	return Condition{Column: column, Op: OpNotNull}
}

// In is shorthand for an IN condition.
func In(column string, values []string) Condition {
	return Condition{Column: column, Op: OpIn, Value: values}
}

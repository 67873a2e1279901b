// Package storetest provides in-memory content and relational stores that
// record every call, for tests of the sync components.
package storetest

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/banksodee/clubsync/internal/content"
	"github.com/banksodee/clubsync/internal/model"
	"github.com/banksodee/clubsync/internal/relational"
)

// Content is an in-memory content.Store.
type Content struct {
	mu     sync.Mutex
	docs   map[string]model.Document
	nextID int

	Calls map[string]int

	// Fail maps a method name to the error it returns.
	Fail map[string]error
	// FailPatchFor makes Patch fail only for these document ids.
	FailPatchFor map[string]error
	// FailCreateWhen makes Create fail for documents matching the predicate.
	FailCreateWhen func(model.Document) error
}

var _ content.Store = (*Content)(nil)

// NewContent returns an empty store.
func NewContent() *Content {
	return &Content{
		docs:         make(map[string]model.Document),
		Calls:        make(map[string]int),
		Fail:         make(map[string]error),
		FailPatchFor: make(map[string]error),
	}
}

// Put seeds a document.
func (c *Content) Put(doc model.Document) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.docs[doc.ID()] = copyDoc(doc)
}

// Doc returns a copy of the stored document, or nil.
func (c *Content) Doc(id string) model.Document {
	c.mu.Lock()
	defer c.mu.Unlock()
	if d, ok := c.docs[id]; ok {
		return copyDoc(d)
	}
	return nil
}

// Len returns the number of stored documents.
func (c *Content) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.docs)
}

// Writes returns the number of Create and Patch calls.
func (c *Content) Writes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.Calls["Create"] + c.Calls["Patch"]
}

func (c *Content) enter(method string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Calls[method]++
	return c.Fail[method]
}

// Get implements content.Store.
func (c *Content) Get(_ context.Context, docType, id string) (model.Document, error) {
	if err := c.enter("Get"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	d, ok := c.docs[id]
	if !ok || d.Type() != docType {
		return nil, nil
	}
	return copyDoc(d), nil
}

// FindOne implements content.Store.
func (c *Content) FindOne(_ context.Context, docType, field string, value interface{}) (model.Document, error) {
	if err := c.enter("FindOne"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, id := range sortedKeys(c.docs) {
		d := c.docs[id]
		if d.Type() == docType && model.ToString(d[field]) == model.ToString(value) {
			return copyDoc(d), nil
		}
	}
	return nil, nil
}

// GetMany implements content.Store.
func (c *Content) GetMany(_ context.Context, docType string, ids []string) ([]model.Document, error) {
	if err := c.enter("GetMany"); err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []model.Document
	for _, id := range ids {
		if d, ok := c.docs[id]; ok && d.Type() == docType {
			out = append(out, copyDoc(d))
		}
	}
	return out, nil
}

// Create implements content.Store.
func (c *Content) Create(_ context.Context, doc model.Document) (model.Document, error) {
	if err := c.enter("Create"); err != nil {
		return nil, &model.WriteError{Store: "content", Op: "create", Err: err}
	}
	if c.FailCreateWhen != nil {
		if err := c.FailCreateWhen(doc); err != nil {
			return nil, &model.WriteError{Store: "content", Op: "create", Err: err}
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	created := copyDoc(doc)
	if created.ID() == "" {
		c.nextID++
		created["_id"] = fmt.Sprintf("doc-%d", c.nextID)
	}
	created["_rev"] = "rev-1"
	c.docs[created.ID()] = created
	return copyDoc(created), nil
}

// Patch implements content.Store.
func (c *Content) Patch(_ context.Context, id string, fields model.Document) error {
	if err := c.enter("Patch"); err != nil {
		return &model.WriteError{Store: "content", Op: "patch", Err: err}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.FailPatchFor[id]; err != nil {
		return &model.WriteError{Store: "content", Op: "patch", Err: err}
	}
	d, ok := c.docs[id]
	if !ok {
		return &model.WriteError{Store: "content", Op: "patch", Err: content.ErrDocumentNotFound}
	}
	for k, v := range fields {
		if k == "_id" || k == "_type" {
			continue
		}
		d[k] = v
	}
	return nil
}

// Relational is an in-memory relational.Store. Filters support the
// operators used by the importer.
type Relational struct {
	mu     sync.Mutex
	tables map[string]map[string]model.Row
	nextID int

	Calls map[string]int
	Fail  map[string]error
	// Inserted and Updated record write targets as "table/id".
	Inserted []string
	Updated  []string
}

var _ relational.Store = (*Relational)(nil)

// NewRelational returns an empty store.
func NewRelational() *Relational {
	return &Relational{
		tables: make(map[string]map[string]model.Row),
		Calls:  make(map[string]int),
		Fail:   make(map[string]error),
	}
}

// Put seeds a row.
func (r *Relational) Put(table string, row model.Row) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.tables[table] == nil {
		r.tables[table] = make(map[string]model.Row)
	}
	r.tables[table][row.ID()] = copyRow(row)
}

// Row returns a copy of a stored row, or nil.
func (r *Relational) Row(table, id string) model.Row {
	r.mu.Lock()
	defer r.mu.Unlock()
	if row, ok := r.tables[table][id]; ok {
		return copyRow(row)
	}
	return nil
}

// Writes returns the number of Insert and Update calls.
func (r *Relational) Writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Calls["Insert"] + r.Calls["Update"]
}

func (r *Relational) enter(method string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Calls[method]++
	return r.Fail[method]
}

// Get implements relational.Store.
func (r *Relational) Get(_ context.Context, table, id string) (model.Row, error) {
	if err := r.enter("Get"); err != nil {
		return nil, err
	}
	return r.Row(table, id), nil
}

// FindOne implements relational.Store.
func (r *Relational) FindOne(_ context.Context, table, column string, value interface{}) (model.Row, error) {
	if err := r.enter("FindOne"); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := r.tables[table]
	for _, id := range sortedKeys(rows) {
		if model.ToString(rows[id][column]) == model.ToString(value) {
			return copyRow(rows[id]), nil
		}
	}
	return nil, nil
}

// GetMany implements relational.Store.
func (r *Relational) GetMany(_ context.Context, table string, ids []string) ([]model.Row, error) {
	if err := r.enter("GetMany"); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Row
	for _, id := range ids {
		if row, ok := r.tables[table][id]; ok {
			out = append(out, copyRow(row))
		}
	}
	return out, nil
}

// Query implements relational.Store. Rows are returned in id order.
func (r *Relational) Query(_ context.Context, table string, f relational.Filter) ([]model.Row, error) {
	if err := r.enter("Query"); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := r.tables[table]
	var out []model.Row
	for _, id := range sortedKeys(rows) {
		if matches(rows[id], f) {
			out = append(out, copyRow(rows[id]))
		}
	}
	return out, nil
}

// Insert implements relational.Store.
func (r *Relational) Insert(_ context.Context, table string, row model.Row) (string, error) {
	if err := r.enter("Insert"); err != nil {
		return "", &model.WriteError{Store: "relational", Op: "insert", Err: err}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored := copyRow(row)
	if stored.ID() == "" {
		r.nextID++
		stored["id"] = fmt.Sprintf("%s-%d", table, r.nextID)
	}
	if r.tables[table] == nil {
		r.tables[table] = make(map[string]model.Row)
	}
	r.tables[table][stored.ID()] = stored
	r.Inserted = append(r.Inserted, table+"/"+stored.ID())
	return stored.ID(), nil
}

// Update implements relational.Store.
func (r *Relational) Update(_ context.Context, table, id string, row model.Row) error {
	if err := r.enter("Update"); err != nil {
		return &model.WriteError{Store: "relational", Op: "update", Err: err}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.tables[table][id]
	if !ok {
		return nil
	}
	for k, v := range row {
		if k != "id" {
			existing[k] = v
		}
	}
	r.Updated = append(r.Updated, table+"/"+id)
	return nil
}

func matches(row model.Row, f relational.Filter) bool {
	for _, c := range f.All {
		if !matchCondition(row, c) {
			return false
		}
	}
	if len(f.Any) == 0 {
		return true
	}
	for _, c := range f.Any {
		if matchCondition(row, c) {
			return true
		}
	}
	return false
}

func matchCondition(row model.Row, c relational.Condition) bool {
	switch c.Op {
	case relational.OpEq:
		return model.ToString(row[c.Column]) == model.ToString(c.Value)
	case relational.OpNotNull:
		return row[c.Column] != nil
	case relational.OpIn:
		for _, v := range c.Value.([]string) {
			if model.ToString(row[c.Column]) == v {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func copyDoc(d model.Document) model.Document {
	out := make(model.Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

func copyRow(r model.Row) model.Row {
	out := make(model.Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

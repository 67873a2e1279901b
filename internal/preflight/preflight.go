// Package preflight checks the relational schema before syncing.
package preflight

import (
	"context"
	"database/sql"
	"fmt"
	"sort"

	"github.com/banksodee/clubsync/internal/logger"
	"github.com/banksodee/clubsync/internal/model"
	"github.com/banksodee/clubsync/internal/sqlutil"
)

// Check names reported in PreflightError.
const (
	CheckTableExistence = "TABLE_EXISTENCE_CHECK"
	CheckStorageEngine  = "STORAGE_ENGINE_CHECK"
	CheckLinkColumn     = "LINK_COLUMN_CHECK"
)

// PreflightError represents a preflight check failure.
type PreflightError struct {
	Check   string
	Message string
	Tables  []string
}

func (e *PreflightError) Error() string {
	if len(e.Tables) > 0 {
		return fmt.Sprintf("%s: %s (tables: %v)", e.Check, e.Message, e.Tables)
	}
	return fmt.Sprintf("%s: %s", e.Check, e.Message)
}

// TriggerCheckResult describes a write trigger on a synced table.
type TriggerCheckResult struct {
	Table   string
	Trigger string
	Event   string
}

// Checker runs schema checks against the synced tables.
type Checker struct {
	db     *sql.DB
	schema string
	tables []string
	logger *logger.Logger
}

// NewChecker creates a checker for the tables of kinds. No kinds means all kinds.
func NewChecker(db *sql.DB, schema string, kinds []model.Kind, log *logger.Logger) (*Checker, error) {
	if db == nil {
		return nil, fmt.Errorf("database is nil")
	}
	if schema == "" {
		return nil, fmt.Errorf("database name is required")
	}
	if log == nil {
		log = logger.NewDefault()
	}
	if len(kinds) == 0 {
		kinds = model.Kinds
	}

	tables := make([]string, 0, len(kinds))
	for _, k := range kinds {
		if !k.Valid() {
			return nil, fmt.Errorf("%w: %s", model.ErrUnknownKind, k)
		}
		tables = append(tables, k.Table())
	}

	return &Checker{db: db, schema: schema, tables: tables, logger: log}, nil
}

// Tables returns the tables the checker inspects.
func (c *Checker) Tables() []string {
	return c.tables
}

// RunAllChecks runs every check. Blocking problems are returned as a
// *PreflightError; the rest come back as warnings.
func (c *Checker) RunAllChecks(ctx context.Context) ([]string, error) {
	c.logger.Info("Running preflight checks...")

	if err := c.ValidateTablesExist(ctx); err != nil {
		return nil, err
	}
	if err := c.ValidateStorageEngine(ctx); err != nil {
		return nil, err
	}
	if err := c.ValidateLinkColumns(ctx); err != nil {
		return nil, err
	}

	var warnings []string

	unindexed, err := c.UnindexedLinkColumns(ctx)
	if err != nil {
		return nil, err
	}
	if len(unindexed) > 0 {
		msg := fmt.Sprintf("%s is not indexed on %v; link lookups will scan", model.RowLinkField, unindexed)
		c.logger.Warn(msg)
		warnings = append(warnings, msg)
	}

	triggers, err := c.CheckWriteTriggers(ctx)
	if err != nil {
		return nil, err
	}
	for _, t := range triggers {
		msg := fmt.Sprintf("%s trigger %s on %s fires on every synced write", t.Event, t.Trigger, t.Table)
		c.logger.Warn(msg)
		warnings = append(warnings, msg)
	}

	c.logger.Info("All preflight checks PASSED")
	return warnings, nil
}

// ValidateTablesExist checks that every synced table exists.
func (c *Checker) ValidateTablesExist(ctx context.Context) error {
	c.logger.Debug("Checking table existence...")

	query := `
		SELECT TABLE_NAME
		FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = ?
		AND TABLE_NAME IN (` + sqlutil.Placeholders(len(c.tables)) + `)`

	existing, err := c.tableSet(ctx, query, c.schema)
	if err != nil {
		return fmt.Errorf("failed to query tables: %w", err)
	}

	if missing := c.missingFrom(existing); len(missing) > 0 {
		return &PreflightError{
			Check:   CheckTableExistence,
			Message: "Tables not found in relational database",
			Tables:  missing,
		}
	}

	c.logger.Debugf("Table existence check PASSED (%d tables)", len(c.tables))
	return nil
}

// ValidateStorageEngine checks that every synced table is InnoDB, which the
// transactional writes and advisory locks rely on.
func (c *Checker) ValidateStorageEngine(ctx context.Context) error {
	c.logger.Debug("Checking storage engines...")

	query := `
		SELECT TABLE_NAME, ENGINE
		FROM information_schema.TABLES
		WHERE TABLE_SCHEMA = ?
		AND TABLE_NAME IN (` + sqlutil.Placeholders(len(c.tables)) + `)`

	rows, err := c.db.QueryContext(ctx, query, c.args(c.schema)...)
	if err != nil {
		return fmt.Errorf("failed to query storage engines: %w", err)
	}
	defer rows.Close()

	var nonInnoDB []string
	for rows.Next() {
		var table string
		var engine sql.NullString
		if err := rows.Scan(&table, &engine); err != nil {
			return err
		}
		if engine.String != "InnoDB" {
			nonInnoDB = append(nonInnoDB, fmt.Sprintf("%s(%s)", table, engine.String))
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	if len(nonInnoDB) > 0 {
		return &PreflightError{
			Check:   CheckStorageEngine,
			Message: "Only InnoDB tables are supported. Use ALTER TABLE to convert",
			Tables:  nonInnoDB,
		}
	}

	c.logger.Debug("Storage engine check PASSED (all tables are InnoDB)")
	return nil
}

// ValidateLinkColumns checks that every synced table has the document link column.
func (c *Checker) ValidateLinkColumns(ctx context.Context) error {
	c.logger.Debug("Checking link columns...")

	query := `
		SELECT TABLE_NAME
		FROM information_schema.COLUMNS
		WHERE TABLE_SCHEMA = ?
		AND COLUMN_NAME = ?
		AND TABLE_NAME IN (` + sqlutil.Placeholders(len(c.tables)) + `)`

	withColumn, err := c.tableSet(ctx, query, c.schema, model.RowLinkField)
	if err != nil {
		return fmt.Errorf("failed to query columns: %w", err)
	}

	if missing := c.missingFrom(withColumn); len(missing) > 0 {
		return &PreflightError{
			Check:   CheckLinkColumn,
			Message: fmt.Sprintf("Tables have no %s column", model.RowLinkField),
			Tables:  missing,
		}
	}

	c.logger.Debug("Link column check PASSED")
	return nil
}

// UnindexedLinkColumns returns the synced tables whose link column has no index.
func (c *Checker) UnindexedLinkColumns(ctx context.Context) ([]string, error) {
	query := `
		SELECT DISTINCT TABLE_NAME
		FROM information_schema.STATISTICS
		WHERE TABLE_SCHEMA = ?
		AND COLUMN_NAME = ?
		AND TABLE_NAME IN (` + sqlutil.Placeholders(len(c.tables)) + `)`

	indexed, err := c.tableSet(ctx, query, c.schema, model.RowLinkField)
	if err != nil {
		return nil, fmt.Errorf("failed to query indexes: %w", err)
	}
	return c.missingFrom(indexed), nil
}

// CheckWriteTriggers lists INSERT and UPDATE triggers on the synced tables.
func (c *Checker) CheckWriteTriggers(ctx context.Context) ([]TriggerCheckResult, error) {
	query := `
		SELECT EVENT_OBJECT_TABLE, TRIGGER_NAME, EVENT_MANIPULATION
		FROM information_schema.TRIGGERS
		WHERE EVENT_OBJECT_SCHEMA = ?
		AND EVENT_OBJECT_TABLE IN (` + sqlutil.Placeholders(len(c.tables)) + `)
		AND EVENT_MANIPULATION IN ('INSERT', 'UPDATE')`

	rows, err := c.db.QueryContext(ctx, query, c.args(c.schema)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query triggers: %w", err)
	}
	defer rows.Close()

	var results []TriggerCheckResult
	for rows.Next() {
		var r TriggerCheckResult
		if err := rows.Scan(&r.Table, &r.Trigger, &r.Event); err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// args appends the table names after the leading arguments.
func (c *Checker) args(leading ...interface{}) []interface{} {
	args := make([]interface{}, 0, len(leading)+len(c.tables))
	args = append(args, leading...)
	for _, t := range c.tables {
		args = append(args, t)
	}
	return args
}

func (c *Checker) tableSet(ctx context.Context, query string, leading ...interface{}) (map[string]bool, error) {
	rows, err := c.db.QueryContext(ctx, query, c.args(leading...)...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	set := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		set[name] = true
	}
	return set, rows.Err()
}

func (c *Checker) missingFrom(set map[string]bool) []string {
	var missing []string
	for _, t := range c.tables {
		if !set[t] {
			missing = append(missing, t)
		}
	}
	sort.Strings(missing)
	return missing
}

package relational

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/banksodee/clubsync/internal/model"
	"github.com/banksodee/clubsync/internal/sqlutil"
)

// MySQLStore implements Store on a *sql.DB opened with go-sql-driver/mysql.
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore wraps db.
func NewMySQLStore(db *sql.DB) (*MySQLStore, error) {
	if db == nil {
		return nil, fmt.Errorf("relational database is nil")
	}
	return &MySQLStore{db: db}, nil
}

// Get implements Store.
func (s *MySQLStore) Get(ctx context.Context, table, id string) (model.Row, error) {
	return s.FindOne(ctx, table, "id", id)
}

// FindOne implements Store.
func (s *MySQLStore) FindOne(ctx context.Context, table, column string, value interface{}) (model.Row, error) {
	rows, err := s.query(ctx, table, Filter{All: []Condition{Eq(column, value)}}, 1)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// GetMany implements Store.
func (s *MySQLStore) GetMany(ctx context.Context, table string, ids []string) ([]model.Row, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return s.query(ctx, table, Filter{All: []Condition{In("id", ids)}, OrderBy: "id"}, 0)
}

// Query implements Store.
func (s *MySQLStore) Query(ctx context.Context, table string, f Filter) ([]model.Row, error) {
	return s.query(ctx, table, f, 0)
}

func (s *MySQLStore) query(ctx context.Context, table string, f Filter, limit int) ([]model.Row, error) {
	quotedTable, err := sqlutil.QuoteIdentifierSafe(table)
	if err != nil {
		return nil, err
	}

	where, args, err := buildWhere(f)
	if err != nil {
		return nil, err
	}

	query := "SELECT * FROM " + quotedTable + where
	if f.OrderBy != "" {
		col, err := sqlutil.QuoteIdentifierSafe(f.OrderBy)
		if err != nil {
			return nil, err
		}
		query += " ORDER BY " + col + " ASC"
	}
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query %s: %w", table, err)
	}
	defer rows.Close()

	result, err := scanRows(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", table, err)
	}
	return result, nil
}

// Insert implements Store.
func (s *MySQLStore) Insert(ctx context.Context, table string, row model.Row) (string, error) {
	quotedTable, err := sqlutil.QuoteIdentifierSafe(table)
	if err != nil {
		return "", err
	}

	values := make(model.Row, len(row)+1)
	for k, v := range row {
		values[k] = v
	}
	id := values.ID()
	if id == "" {
		id = uuid.New().String()
		values["id"] = id
	}

	columns := sortedColumns(values)
	quotedCols, err := sqlutil.QuoteIdentifiers(columns)
	if err != nil {
		return "", err
	}
	args := make([]interface{}, len(columns))
	for i, c := range columns {
		args[i] = values[c]
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", quotedTable, quotedCols, sqlutil.Placeholders(len(columns)))
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return "", &model.WriteError{Store: "relational", Op: "insert into " + table, Err: err}
	}
	return id, nil
}

// Update implements Store. Rows whose values are unchanged are not an error.
func (s *MySQLStore) Update(ctx context.Context, table, id string, row model.Row) error {
	quotedTable, err := sqlutil.QuoteIdentifierSafe(table)
	if err != nil {
		return err
	}

	columns := sortedColumns(row)
	sets := make([]string, 0, len(columns))
	args := make([]interface{}, 0, len(columns)+1)
	for _, c := range columns {
		if c == "id" {
			continue
		}
		q, err := sqlutil.QuoteIdentifierSafe(c)
		if err != nil {
			return err
		}
		sets = append(sets, q+" = ?")
		args = append(args, row[c])
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, id)

	query := fmt.Sprintf("UPDATE %s SET %s WHERE `id` = ?", quotedTable, strings.Join(sets, ", "))
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return &model.WriteError{Store: "relational", Op: "update " + table, Err: err}
	}
	return nil
}

func buildWhere(f Filter) (string, []interface{}, error) {
	var clauses []string
	var args []interface{}

	for _, c := range f.All {
		clause, cargs, err := c.sql()
		if err != nil {
			return "", nil, err
		}
		clauses = append(clauses, clause)
		args = append(args, cargs...)
	}

	if len(f.Any) > 0 {
		var ors []string
		for _, c := range f.Any {
			clause, cargs, err := c.sql()
			if err != nil {
				return "", nil, err
			}
			ors = append(ors, clause)
			args = append(args, cargs...)
		}
		clauses = append(clauses, "("+strings.Join(ors, " OR ")+")")
	}

	if len(clauses) == 0 {
		return "", nil, nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args, nil
}

func (c Condition) sql() (string, []interface{}, error) {
	col, err := sqlutil.QuoteIdentifierSafe(c.Column)
	if err != nil {
		return "", nil, err
	}
	switch c.Op {
	case OpEq:
		return col + " = ?", []interface{}{c.Value}, nil
	case OpNotNull:
		return col + " IS NOT NULL", nil, nil
	case OpIn:
		values, ok := c.Value.([]string)
		if !ok || len(values) == 0 {
			return "", nil, fmt.Errorf("IN condition on %s needs a non-empty []string", c.Column)
		}
		args := make([]interface{}, len(values))
		for i, v := range values {
			args[i] = v
		}
		return col + " IN (" + sqlutil.Placeholders(len(values)) + ")", args, nil
	default:
		return "", nil, fmt.Errorf("unsupported operator %d on %s", c.Op, c.Column)
	}
}

func sortedColumns(row model.Row) []string {
	columns := make([]string, 0, len(row))
	for c := range row {
		columns = append(columns, c)
	}
	sort.Strings(columns)
	return columns
}

// scanRows reads every row into a column map. The MySQL driver returns text
// columns as []byte; they are converted to string.
func scanRows(rows *sql.Rows) ([]model.Row, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var result []model.Row
	for rows.Next() {
		values := make([]interface{}, len(columns))
		ptrs := make([]interface{}, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(model.Row, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

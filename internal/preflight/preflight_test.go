package preflight

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banksodee/clubsync/internal/logger"
	"github.com/banksodee/clubsync/internal/model"
)

const (
	tablesQuery   = `SELECT TABLE_NAME\s+FROM information_schema.TABLES`
	engineQuery   = `SELECT TABLE_NAME, ENGINE\s+FROM information_schema.TABLES`
	columnsQuery  = `FROM information_schema.COLUMNS`
	indexQuery    = `FROM information_schema.STATISTICS`
	triggersQuery = `FROM information_schema.TRIGGERS`
)

func newChecker(t *testing.T, kinds ...model.Kind) (*Checker, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	c, err := NewChecker(db, "club", kinds, logger.NewNop())
	require.NoError(t, err)
	return c, mock
}

func tableRows(names ...string) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"TABLE_NAME"})
	for _, n := range names {
		rows.AddRow(n)
	}
	return rows
}

func TestNewChecker(t *testing.T) {
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	c, err := NewChecker(db, "club", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"people", "sponsors", "match"}, c.Tables())

	c, err = NewChecker(db, "club", []model.Kind{model.KindSponsor}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"sponsors"}, c.Tables())

	_, err = NewChecker(nil, "club", nil, nil)
	assert.Error(t, err)
	_, err = NewChecker(db, "", nil, nil)
	assert.Error(t, err)
	_, err = NewChecker(db, "club", []model.Kind{model.Kind(9)}, nil)
	assert.ErrorIs(t, err, model.ErrUnknownKind)
}

func TestValidateTablesExist(t *testing.T) {
	c, mock := newChecker(t)
	mock.ExpectQuery(tablesQuery).
		WithArgs("club", "people", "sponsors", "match").
		WillReturnRows(tableRows("people", "sponsors", "match"))

	assert.NoError(t, c.ValidateTablesExist(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestValidateTablesExist_Missing(t *testing.T) {
	c, mock := newChecker(t)
	mock.ExpectQuery(tablesQuery).WillReturnRows(tableRows("people"))

	err := c.ValidateTablesExist(context.Background())
	var pe *PreflightError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, CheckTableExistence, pe.Check)
	assert.Equal(t, []string{"match", "sponsors"}, pe.Tables)
}

func TestValidateStorageEngine(t *testing.T) {
	c, mock := newChecker(t, model.KindPerson, model.KindSponsor)
	mock.ExpectQuery(engineQuery).
		WithArgs("club", "people", "sponsors").
		WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME", "ENGINE"}).
			AddRow("people", "InnoDB").
			AddRow("sponsors", "MyISAM"))

	err := c.ValidateStorageEngine(context.Background())
	var pe *PreflightError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, CheckStorageEngine, pe.Check)
	assert.Equal(t, []string{"sponsors(MyISAM)"}, pe.Tables)
}

func TestValidateLinkColumns(t *testing.T) {
	c, mock := newChecker(t, model.KindPerson, model.KindMatch)
	mock.ExpectQuery(columnsQuery).
		WithArgs("club", "sanity_id", "people", "match").
		WillReturnRows(tableRows("people"))

	err := c.ValidateLinkColumns(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LINK_COLUMN_CHECK: Tables have no sanity_id column (tables: [match])")
}

func TestUnindexedLinkColumns(t *testing.T) {
	c, mock := newChecker(t)
	mock.ExpectQuery(indexQuery).
		WithArgs("club", "sanity_id", "people", "sponsors", "match").
		WillReturnRows(tableRows("people", "match"))

	unindexed, err := c.UnindexedLinkColumns(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"sponsors"}, unindexed)
}

func TestCheckWriteTriggers(t *testing.T) {
	c, mock := newChecker(t, model.KindPerson)
	mock.ExpectQuery(triggersQuery).
		WithArgs("club", "people").
		WillReturnRows(sqlmock.NewRows([]string{"EVENT_OBJECT_TABLE", "TRIGGER_NAME", "EVENT_MANIPULATION"}).
			AddRow("people", "people_touch", "UPDATE"))

	triggers, err := c.CheckWriteTriggers(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []TriggerCheckResult{{Table: "people", Trigger: "people_touch", Event: "UPDATE"}}, triggers)
}

func TestRunAllChecks(t *testing.T) {
	c, mock := newChecker(t, model.KindSponsor)
	mock.ExpectQuery(tablesQuery).WillReturnRows(tableRows("sponsors"))
	mock.ExpectQuery(engineQuery).WillReturnRows(sqlmock.NewRows([]string{"TABLE_NAME", "ENGINE"}).AddRow("sponsors", "InnoDB"))
	mock.ExpectQuery(columnsQuery).WillReturnRows(tableRows("sponsors"))
	mock.ExpectQuery(indexQuery).WillReturnRows(tableRows())
	mock.ExpectQuery(triggersQuery).WillReturnRows(sqlmock.NewRows([]string{"EVENT_OBJECT_TABLE", "TRIGGER_NAME", "EVENT_MANIPULATION"}).
		AddRow("sponsors", "sponsors_audit", "INSERT"))

	warnings, err := c.RunAllChecks(context.Background())
	require.NoError(t, err)
	require.Len(t, warnings, 2)
	assert.Contains(t, warnings[0], "sanity_id is not indexed on [sponsors]")
	assert.Contains(t, warnings[1], "INSERT trigger sponsors_audit on sponsors")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunAllChecks_StopsAtFirstFailure(t *testing.T) {
	c, mock := newChecker(t, model.KindSponsor)
	mock.ExpectQuery(tablesQuery).WillReturnRows(tableRows())

	warnings, err := c.RunAllChecks(context.Background())
	assert.Nil(t, warnings)
	var pe *PreflightError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, CheckTableExistence, pe.Check)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunAllChecks_QueryError(t *testing.T) {
	c, mock := newChecker(t, model.KindSponsor)
	mock.ExpectQuery(tablesQuery).WillReturnError(sql.ErrConnDone)

	_, err := c.RunAllChecks(context.Background())
	assert.ErrorIs(t, err, sql.ErrConnDone)
	assert.Contains(t, err.Error(), "failed to query tables")
}

func TestPreflightErrorMessage(t *testing.T) {
	assert.Equal(t, "X: broken", (&PreflightError{Check: "X", Message: "broken"}).Error())
	assert.Equal(t, "X: broken (tables: [a b])",
		(&PreflightError{Check: "X", Message: "broken", Tables: []string{"a", "b"}}).Error())
}

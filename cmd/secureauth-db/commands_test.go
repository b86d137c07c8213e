package main

import (
	"bytes"
	"database/sql"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() { color.NoColor = true }

func run(t *testing.T, db *sql.DB, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd(func() (*sql.DB, error) { return db, nil }, schemaOptions{Attempts: 1, Delay: time.Millisecond})
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestSetup(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS accounts")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectClose()

	out, err := run(t, db, "setup")
	require.NoError(t, err)
	assert.Contains(t, out, "Accounts table created or already exists")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCheck_TableMissing(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectQuery("information_schema.tables").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectClose()

	out, err := run(t, db, "check")
	require.NoError(t, err)
	assert.Contains(t, out, "Successfully connected")
	assert.Contains(t, out, "does not exist")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCheck_PrintsColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectQuery("information_schema.tables").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery("information_schema.columns").WillReturnRows(
		sqlmock.NewRows([]string{"column_name", "data_type", "character_maximum_length"}).
			AddRow("email", "character varying", int64(255)).
			AddRow("otp_expiry", "timestamp with time zone", nil),
	)
	mock.ExpectClose()

	out, err := run(t, db, "check")
	require.NoError(t, err)
	assert.Contains(t, out, "email")
	assert.Contains(t, out, "255")
	assert.Contains(t, out, "Table structure:")
	assert.Contains(t, out, "otp_expiry")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReset_RequiresConfirmation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	out, err := run(t, db, "reset")
	require.Error(t, err)
	assert.Contains(t, out, "--yes")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReset(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	mock.ExpectExec(regexp.QuoteMeta("DROP TABLE IF EXISTS accounts")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS accounts")).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectClose()

	out, err := run(t, db, "reset", "--yes")
	require.NoError(t, err)
	assert.Contains(t, out, "Created new accounts table")
	require.NoError(t, mock.ExpectationsWereMet())
}

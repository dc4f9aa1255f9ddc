package seeder

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/tenantplane/internal/domain"
	domerrors "github.com/yourorg/tenantplane/internal/domain/errors"
)

func setup(t *testing.T) (*sql.DB, sqlmock.Sqlmock, *Seeder) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return db, mock, New(logger)
}

func expectSchemaReady(mock sqlmock.Sqlmock, ready bool) {
	mock.ExpectQuery(`information_schema.tables`).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(ready))
}

func TestSeedAdmin_Created(t *testing.T) {
	db, mock, s := setup(t)
	defer db.Close()

	expectSchemaReady(mock, true)
	mock.ExpectQuery(`SELECT email FROM users WHERE email = \$1`).
		WithArgs("jane.doe@acme.com").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`INSERT INTO users`).
		WithArgs("jane.doe@acme.com", "Jane Doe", "hash", "t-1").
		WillReturnResult(sqlmock.NewResult(1, 1))

	result, err := s.SeedAdmin(context.Background(), db, "jane.doe@acme.com", "hash", "t-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SeedCreated, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedAdmin_AlreadyExistsIsNoOp(t *testing.T) {
	db, mock, s := setup(t)
	defer db.Close()

	expectSchemaReady(mock, true)
	mock.ExpectQuery(`SELECT email FROM users`).
		WithArgs("jane@acme.com").
		WillReturnRows(sqlmock.NewRows([]string{"email"}).AddRow("jane@acme.com"))

	result, err := s.SeedAdmin(context.Background(), db, "jane@acme.com", "hash", "t-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SeedAlreadyExists, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSeedAdmin_SchemaNotReady(t *testing.T) {
	db, mock, s := setup(t)
	defer db.Close()

	expectSchemaReady(mock, false)

	_, err := s.SeedAdmin(context.Background(), db, "jane@acme.com", "hash", "t-1")
	var notReady *domerrors.SchemaNotReadyError
	require.ErrorAs(t, err, &notReady)
	assert.Equal(t, "users", notReady.Table)
}

func TestSeedAdmin_InsertFailure(t *testing.T) {
	db, mock, s := setup(t)
	defer db.Close()

	expectSchemaReady(mock, true)
	mock.ExpectQuery(`SELECT email FROM users`).
		WillReturnError(sql.ErrNoRows)
	mock.ExpectExec(`INSERT INTO users`).
		WillReturnError(errors.New("constraint violated"))

	_, err := s.SeedAdmin(context.Background(), db, "jane@acme.com", "hash", "t-1")
	var serr *domerrors.SeedError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "jane@acme.com", serr.Email)
}

func TestResetAdmin_UpdatesExistingRow(t *testing.T) {
	db, mock, s := setup(t)
	defer db.Close()

	expectSchemaReady(mock, true)
	mock.ExpectExec(`UPDATE users`).
		WithArgs("newhash", "t-1", "jane@acme.com").
		WillReturnResult(sqlmock.NewResult(0, 1))

	result, err := s.ResetAdmin(context.Background(), db, "jane@acme.com", "newhash", "t-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SeedReset, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestResetAdmin_InsertsWhenMissing(t *testing.T) {
	db, mock, s := setup(t)
	defer db.Close()

	expectSchemaReady(mock, true)
	mock.ExpectExec(`UPDATE users`).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO users`).
		WithArgs("jane@acme.com", "Jane", "newhash", "t-1").
		WillReturnResult(sqlmock.NewResult(1, 1))

	result, err := s.ResetAdmin(context.Background(), db, "jane@acme.com", "newhash", "t-1")
	require.NoError(t, err)
	assert.Equal(t, domain.SeedCreated, result)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFullNameFromEmail(t *testing.T) {
	cases := map[string]string{
		"jane.doe@acme.com":   "Jane Doe",
		"jane_doe@acme.com":   "Jane Doe",
		"jane@acme.com":       "Jane",
		"j.r.hartley@x.com":   "J R Hartley",
		"admin@acme.com":      "Admin",
		"@acme.com":           "Admin User",
		"...@acme.com":        "Admin User",
		"jane.van.dyk@x.com":  "Jane Van Dyk",
	}
	for email, want := range cases {
		assert.Equal(t, want, fullNameFromEmail(email), "email %s", email)
	}
}

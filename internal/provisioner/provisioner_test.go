package provisioner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domerrors "github.com/yourorg/tenantplane/internal/domain/errors"
)

func setup(t *testing.T) (sqlmock.Sqlmock, *Postgres, func()) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	p := NewPostgres(db, logger)
	return mock, p, func() { db.Close() }
}

func TestCreateDatabase_Success(t *testing.T) {
	mock, p, cleanup := setup(t)
	defer cleanup()

	mock.ExpectExec(`CREATE DATABASE "tenant_acme_1700000000"`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := p.CreateDatabase(context.Background(), "tenant_acme_1700000000")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateDatabase_RejectsBadNames(t *testing.T) {
	_, p, cleanup := setup(t)
	defer cleanup()

	bad := []string{
		"",
		"Tenant_Acme",
		"1tenant",
		`tenant"; DROP TABLE tenants; --`,
		"tenant name",
	}
	for _, name := range bad {
		err := p.CreateDatabase(context.Background(), name)
		var verr *domerrors.ValidationError
		assert.ErrorAs(t, err, &verr, "name %q should be rejected", name)
	}
}

func TestCreateDatabase_DuplicateName(t *testing.T) {
	mock, p, cleanup := setup(t)
	defer cleanup()

	mock.ExpectExec(`CREATE DATABASE`).
		WillReturnError(&pq.Error{Code: "42P04"})

	err := p.CreateDatabase(context.Background(), "tenant_acme_1700000000")
	var perr *domerrors.ProvisionError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "tenant_acme_1700000000", perr.Database)
	// A collision is not an engine outage, so requests keep flowing.
	assert.True(t, p.breaker.Allow())
}

func TestCreateDatabase_BreakerOpensAfterEngineFailures(t *testing.T) {
	mock, p, cleanup := setup(t)
	defer cleanup()

	for i := 0; i < 5; i++ {
		mock.ExpectExec(`CREATE DATABASE`).
			WillReturnError(errors.New("connection refused"))
	}

	for i := 0; i < 5; i++ {
		err := p.CreateDatabase(context.Background(), "tenant_acme_1700000000")
		require.Error(t, err)
		require.False(t, errors.Is(err, domerrors.ErrEngineUnavailable))
	}

	// Sixth call fast-fails without touching the engine.
	err := p.CreateDatabase(context.Background(), "tenant_acme_1700000000")
	require.ErrorIs(t, err, domerrors.ErrEngineUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// Package provisioner creates physical tenant databases on the engine.
package provisioner

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/lib/pq"

	domerrors "github.com/yourorg/tenantplane/internal/domain/errors"
	"github.com/yourorg/tenantplane/internal/reliability/circuitbreaker"
)

// Database identifiers are generated by the orchestrator and must already
// be sanitized; anything else is rejected before touching the engine.
var dbNamePattern = regexp.MustCompile(`^[a-z][a-z0-9_]{0,62}$`)

// Postgres creates databases over the engine's maintenance connection.
// CREATE DATABASE cannot run inside a transaction, so the server handle is
// only ever used for single autocommit statements.
type Postgres struct {
	server  *sql.DB
	breaker *circuitbreaker.Breaker
	logger  *slog.Logger
}

// NewPostgres creates a provisioner over the given server connection.
func NewPostgres(server *sql.DB, logger *slog.Logger) *Postgres {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Postgres{
		server:  server,
		breaker: circuitbreaker.New(5, 1, 30*time.Second),
		logger:  logger,
	}
	p.breaker.OnStateChange(func(from, to circuitbreaker.State) {
		logger.Warn("engine circuit state changed",
			slog.String("from", from.String()),
			slog.String("to", to.String()),
		)
	})
	return p
}

// CreateDatabase creates a new empty database. Not idempotent: an existing
// name is a failure, never silently reused.
func (p *Postgres) CreateDatabase(ctx context.Context, name string) error {
	if !dbNamePattern.MatchString(name) {
		return domerrors.Validation("invalid database name %q", name)
	}

	if !p.breaker.Allow() {
		return &domerrors.ProvisionError{Database: name, Err: domerrors.ErrEngineUnavailable}
	}

	_, err := p.server.ExecContext(ctx, fmt.Sprintf(`CREATE DATABASE "%s"`, name))
	if err != nil {
		if isDuplicateDatabase(err) {
			// A collision is a request-level failure, not an engine
			// outage; leave the breaker alone.
			p.logger.Error("database name collision", slog.String("db_name", name))
			return &domerrors.ProvisionError{Database: name, Err: err}
		}
		p.breaker.Failure()
		p.logger.Error("failed to create database",
			slog.String("db_name", name),
			slog.String("error", err.Error()),
		)
		return &domerrors.ProvisionError{Database: name, Err: err}
	}

	p.breaker.Success()
	p.logger.Info("database created", slog.String("db_name", name))
	return nil
}

func isDuplicateDatabase(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "42P04"
}

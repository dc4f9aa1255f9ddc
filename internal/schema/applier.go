// Package schema brings freshly created tenant databases up to the
// expected internal schema.
package schema

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	domerrors "github.com/yourorg/tenantplane/internal/domain/errors"
)

// Applier applies the ordered migration set to a tenant database. Safe to
// re-run: applied versions are recorded in a ledger table inside the tenant
// database and individual statements are existence-guarded, because failed
// attempts are never cleaned up automatically.
type Applier struct {
	migrations []Migration
	logger     *slog.Logger
}

// NewApplier creates an applier over the built-in migration set.
func NewApplier(logger *slog.Logger) *Applier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Applier{migrations: Migrations, logger: logger}
}

// NewApplierWith creates an applier over an explicit migration set.
func NewApplierWith(migrations []Migration, logger *slog.Logger) *Applier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Applier{migrations: migrations, logger: logger}
}

// Apply runs every pending migration in order. On failure it returns a
// SchemaError naming the migration that broke; already-applied migrations
// are skipped via the ledger.
func (a *Applier) Apply(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`)
	if err != nil {
		return &domerrors.SchemaError{Migration: "schema_migrations", Err: err}
	}

	applied, err := a.appliedVersions(ctx, db)
	if err != nil {
		return &domerrors.SchemaError{Migration: "schema_migrations", Err: err}
	}

	for _, m := range a.migrations {
		label := m.Version + "_" + m.Name
		if applied[m.Version] {
			a.logger.Debug("migration already applied", slog.String("migration", label))
			continue
		}

		if err := a.applyOne(ctx, db, m); err != nil {
			a.logger.Error("migration failed",
				slog.String("migration", label),
				slog.String("error", err.Error()),
			)
			return &domerrors.SchemaError{Migration: label, Err: err}
		}
		a.logger.Info("migration applied", slog.String("migration", label))
	}
	return nil
}

// applyOne runs a single migration and its ledger record in one
// transaction, so a mid-migration failure leaves the version unrecorded and
// the migration replayable.
func (a *Applier) applyOne(ctx context.Context, db *sql.DB, m Migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for i, stmt := range m.Statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("statement %d: %w", i+1, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO schema_migrations (version, name)
		VALUES ($1, $2)
		ON CONFLICT (version) DO NOTHING
	`, m.Version, m.Name)
	if err != nil {
		return fmt.Errorf("record version: %w", err)
	}

	return tx.Commit()
}

func (a *Applier) appliedVersions(ctx context.Context, db *sql.DB) (map[string]bool, error) {
	rows, err := db.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	applied := make(map[string]bool)
	for rows.Next() {
		var v string
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		applied[v] = true
	}
	return applied, rows.Err()
}

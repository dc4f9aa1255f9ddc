// Package seeder creates the first administrator identity inside a tenant
// database.
package seeder

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"strings"

	"github.com/yourorg/tenantplane/internal/domain"
	domerrors "github.com/yourorg/tenantplane/internal/domain/errors"
)

// Seeder inserts admin rows using plain DML. It never imports or depends
// on the tenant application's own model definitions; the users table shape
// is part of the schema contract.
type Seeder struct {
	logger *slog.Logger
}

// New creates a seeder.
func New(logger *slog.Logger) *Seeder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Seeder{logger: logger}
}

// SeedAdmin inserts the administrator row. If an identity with the email
// already exists the call is a no-op reporting SeedAlreadyExists, which
// makes the step safely re-runnable after a prior failure.
func (s *Seeder) SeedAdmin(ctx context.Context, db *sql.DB, email, passwordHash, tenantID string) (domain.SeedResult, error) {
	if err := s.checkSchemaReady(ctx, db); err != nil {
		return "", err
	}

	var existing string
	err := db.QueryRowContext(ctx, `SELECT email FROM users WHERE email = $1`, email).Scan(&existing)
	switch {
	case err == nil:
		s.logger.Warn("admin user already exists", slog.String("email", email))
		return domain.SeedAlreadyExists, nil
	case !errors.Is(err, sql.ErrNoRows):
		return "", &domerrors.SeedError{Email: email, Err: err}
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO users (email, full_name, hashed_password, role, is_admin, is_active, tenant_id)
		VALUES ($1, $2, $3, 'admin', true, true, $4)
	`, email, fullNameFromEmail(email), passwordHash, tenantID)
	if err != nil {
		s.logger.Error("failed to seed admin user",
			slog.String("email", email),
			slog.String("error", err.Error()),
		)
		return "", &domerrors.SeedError{Email: email, Err: err}
	}

	s.logger.Info("admin user seeded", slog.String("email", email))
	return domain.SeedCreated, nil
}

// ResetAdmin upserts the administrator row, overwriting the password and
// re-flagging admin/active. Operator recovery path.
func (s *Seeder) ResetAdmin(ctx context.Context, db *sql.DB, email, passwordHash, tenantID string) (domain.SeedResult, error) {
	if err := s.checkSchemaReady(ctx, db); err != nil {
		return "", err
	}

	res, err := db.ExecContext(ctx, `
		UPDATE users
		SET hashed_password = $1, role = 'admin', is_admin = true, is_active = true, tenant_id = $2
		WHERE email = $3
	`, passwordHash, tenantID, email)
	if err != nil {
		return "", &domerrors.SeedError{Email: email, Err: err}
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return "", &domerrors.SeedError{Email: email, Err: err}
	}
	if rows > 0 {
		s.logger.Info("admin user reset", slog.String("email", email))
		return domain.SeedReset, nil
	}

	_, err = db.ExecContext(ctx, `
		INSERT INTO users (email, full_name, hashed_password, role, is_admin, is_active, tenant_id)
		VALUES ($1, $2, $3, 'admin', true, true, $4)
	`, email, fullNameFromEmail(email), passwordHash, tenantID)
	if err != nil {
		return "", &domerrors.SeedError{Email: email, Err: err}
	}
	s.logger.Info("admin user created on reset", slog.String("email", email))
	return domain.SeedCreated, nil
}

// checkSchemaReady verifies the users table exists so a missing schema
// surfaces as SchemaNotReadyError instead of a raw SQL error.
func (s *Seeder) checkSchemaReady(ctx context.Context, db *sql.DB) error {
	var exists bool
	err := db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT FROM information_schema.tables
			WHERE table_schema = 'public' AND table_name = 'users'
		)
	`).Scan(&exists)
	if err != nil {
		return &domerrors.SeedError{Err: err}
	}
	if !exists {
		return &domerrors.SchemaNotReadyError{Table: "users"}
	}
	return nil
}

// fullNameFromEmail derives a display name from the email local part.
func fullNameFromEmail(email string) string {
	local := email
	if at := strings.Index(email, "@"); at >= 0 {
		local = email[:at]
	}
	local = strings.NewReplacer(".", " ", "_", " ").Replace(local)

	words := strings.Fields(local)
	if len(words) == 0 {
		return "Admin User"
	}
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

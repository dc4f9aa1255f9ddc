package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yourorg/tenantplane/internal/domain"
	domerrors "github.com/yourorg/tenantplane/internal/domain/errors"
)

// PostgresIdentityRepository implements domain.IdentityRepository against
// the control-plane store
type PostgresIdentityRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresIdentityRepository creates a new identity mapping repository
func NewPostgresIdentityRepository(db *sql.DB, logger *slog.Logger) *PostgresIdentityRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresIdentityRepository{db: db, logger: logger}
}

// Upsert registers email against tenantID. The target tenant must be
// active. An email already mapped to a different tenant is re-pointed
// (last write wins); the outcome plus the losing tenant's id let callers
// audit the routing change.
func (r *PostgresIdentityRepository) Upsert(ctx context.Context, email, tenantID string) (domain.UpsertOutcome, string, error) {
	var status domain.Status
	err := r.db.QueryRowContext(ctx, `SELECT status FROM tenants WHERE id = $1`, tenantID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", "", &domerrors.NotFoundError{Resource: "tenant", Key: tenantID}
		}
		return "", "", fmt.Errorf("failed to check tenant status: %w", err)
	}
	if status != domain.StatusActive {
		return "", "", domerrors.Validation("tenant %s is %s, identities can only target active tenants", tenantID, status)
	}

	var current string
	err = r.db.QueryRowContext(ctx, `SELECT tenant_id FROM tenant_identities WHERE email = $1`, email).Scan(&current)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// ON CONFLICT covers the insert/insert race; last committed
		// write wins, which is the documented behavior.
		_, err = r.db.ExecContext(ctx, `
			INSERT INTO tenant_identities (email, tenant_id)
			VALUES ($1, $2)
			ON CONFLICT (email) DO UPDATE SET tenant_id = EXCLUDED.tenant_id
		`, email, tenantID)
		if err != nil {
			return "", "", fmt.Errorf("failed to register identity: %w", err)
		}
		return domain.OutcomeCreated, "", nil

	case err != nil:
		return "", "", fmt.Errorf("failed to look up identity: %w", err)

	case current == tenantID:
		return domain.OutcomeUnchanged, "", nil

	default:
		_, err = r.db.ExecContext(ctx, `UPDATE tenant_identities SET tenant_id = $1 WHERE email = $2`, tenantID, email)
		if err != nil {
			return "", "", fmt.Errorf("failed to re-point identity: %w", err)
		}
		r.logger.Warn("identity re-pointed to a different tenant",
			slog.String("email", email),
			slog.String("from_tenant", current),
			slog.String("to_tenant", tenantID),
		)
		return domain.OutcomeRepointed, current, nil
	}
}

// ListByTenant returns all identity mappings owned by a tenant.
func (r *PostgresIdentityRepository) ListByTenant(ctx context.Context, tenantID string) ([]*domain.IdentityMapping, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT email, tenant_id, created_at
		FROM tenant_identities
		WHERE tenant_id = $1
		ORDER BY created_at
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list identities: %w", err)
	}
	defer rows.Close()

	var out []*domain.IdentityMapping
	for rows.Next() {
		m := &domain.IdentityMapping{}
		if err := rows.Scan(&m.Email, &m.TenantID, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan identity: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

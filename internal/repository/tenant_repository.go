package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/lib/pq"

	"github.com/yourorg/tenantplane/internal/domain"
	domerrors "github.com/yourorg/tenantplane/internal/domain/errors"
)

const tenantColumns = `id, name, company_name, db_name, db_host, db_port, db_user, db_password, admin_email, status, created_at`

// PostgresTenantRepository implements domain.TenantRepository against the
// control-plane store
type PostgresTenantRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewPostgresTenantRepository creates a new tenant repository
func NewPostgresTenantRepository(db *sql.DB, logger *slog.Logger) *PostgresTenantRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &PostgresTenantRepository{db: db, logger: logger}
}

// Create inserts a new tenant record. Uniqueness violations on company name
// or database name surface as ConflictError.
func (r *PostgresTenantRepository) Create(ctx context.Context, t *domain.Tenant) error {
	query := `
		INSERT INTO tenants (id, name, company_name, db_name, db_host, db_port, db_user, db_password, admin_email, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		t.ID, t.Name, t.CompanyName,
		t.DB.Database, t.DB.Host, t.DB.Port, t.DB.User, t.DB.Password,
		t.AdminEmail, t.Status,
	).Scan(&t.CreatedAt)
	if err != nil {
		if conflict := translateConflict(err); conflict != nil {
			return conflict
		}
		r.logger.Error("failed to create tenant",
			slog.String("company_name", t.CompanyName),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("failed to create tenant: %w", err)
	}
	return nil
}

// GetByID retrieves a tenant by ID
func (r *PostgresTenantRepository) GetByID(ctx context.Context, id string) (*domain.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, query, id), "tenant", id)
}

// GetByCompanyName retrieves a tenant by company name, case-insensitively.
func (r *PostgresTenantRepository) GetByCompanyName(ctx context.Context, name string) (*domain.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE lower(company_name) = lower($1)`
	return r.scanOne(r.db.QueryRowContext(ctx, query, name), "tenant", name)
}

// GetByEmail retrieves a tenant by email: the admin email wins over an
// identity mapping pointing elsewhere.
func (r *PostgresTenantRepository) GetByEmail(ctx context.Context, email string) (*domain.Tenant, error) {
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE lower(admin_email) = lower($1)`
	t, err := r.scanOne(r.db.QueryRowContext(ctx, query, email), "tenant", email)
	if err == nil {
		return t, nil
	}
	var nf *domerrors.NotFoundError
	if !errors.As(err, &nf) {
		return nil, err
	}

	query = `
		SELECT ` + prefixColumns("t", tenantColumns) + `
		FROM tenants t
		JOIN tenant_identities ti ON ti.tenant_id = t.id
		WHERE lower(ti.email) = lower($1)
	`
	return r.scanOne(r.db.QueryRowContext(ctx, query, email), "tenant", email)
}

// List returns tenants ordered by creation time, newest first.
func (r *PostgresTenantRepository) List(ctx context.Context, offset, limit int) ([]*domain.Tenant, error) {
	if limit <= 0 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	query := `SELECT ` + tenantColumns + ` FROM tenants ORDER BY created_at DESC OFFSET $1 LIMIT $2`
	rows, err := r.db.QueryContext(ctx, query, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants: %w", err)
	}
	defer rows.Close()
	return r.scanAll(rows)
}

// ListByStatus returns all tenants currently in any of the given statuses.
func (r *PostgresTenantRepository) ListByStatus(ctx context.Context, statuses ...domain.Status) ([]*domain.Tenant, error) {
	if len(statuses) == 0 {
		return nil, nil
	}
	vals := make([]string, len(statuses))
	for i, s := range statuses {
		vals[i] = string(s)
	}
	query := `SELECT ` + tenantColumns + ` FROM tenants WHERE status = ANY($1) ORDER BY created_at`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(vals))
	if err != nil {
		return nil, fmt.Errorf("failed to list tenants by status: %w", err)
	}
	defer rows.Close()
	return r.scanAll(rows)
}

// SetStatus updates a tenant's lifecycle status. Idempotent.
func (r *PostgresTenantRepository) SetStatus(ctx context.Context, id string, status domain.Status) error {
	res, err := r.db.ExecContext(ctx, `UPDATE tenants SET status = $1 WHERE id = $2`, status, id)
	if err != nil {
		return fmt.Errorf("failed to set tenant status: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return &domerrors.NotFoundError{Resource: "tenant", Key: id}
	}
	return nil
}

// Delete removes the tenant row; identity mappings cascade at the store
// level. The physical tenant database is intentionally left untouched, and
// its name is returned for manual cleanup.
func (r *PostgresTenantRepository) Delete(ctx context.Context, id string) (string, error) {
	var dbName string
	err := r.db.QueryRowContext(ctx, `DELETE FROM tenants WHERE id = $1 RETURNING db_name`, id).Scan(&dbName)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", &domerrors.NotFoundError{Resource: "tenant", Key: id}
		}
		return "", fmt.Errorf("failed to delete tenant: %w", err)
	}
	r.logger.Info("tenant record deleted, physical database left for manual cleanup",
		slog.String("tenant_id", id),
		slog.String("db_name", dbName),
	)
	return dbName, nil
}

func (r *PostgresTenantRepository) scanOne(row *sql.Row, resource, key string) (*domain.Tenant, error) {
	t := &domain.Tenant{}
	err := row.Scan(
		&t.ID, &t.Name, &t.CompanyName,
		&t.DB.Database, &t.DB.Host, &t.DB.Port, &t.DB.User, &t.DB.Password,
		&t.AdminEmail, &t.Status, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, &domerrors.NotFoundError{Resource: resource, Key: key}
		}
		return nil, fmt.Errorf("failed to get %s: %w", resource, err)
	}
	return t, nil
}

func (r *PostgresTenantRepository) scanAll(rows *sql.Rows) ([]*domain.Tenant, error) {
	var out []*domain.Tenant
	for rows.Next() {
		t := &domain.Tenant{}
		err := rows.Scan(
			&t.ID, &t.Name, &t.CompanyName,
			&t.DB.Database, &t.DB.Host, &t.DB.Port, &t.DB.User, &t.DB.Password,
			&t.AdminEmail, &t.Status, &t.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan tenant: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// translateConflict maps unique-violation errors onto the field that
// collided. Returns nil for anything else.
func translateConflict(err error) error {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) || pqErr.Code != "23505" {
		return nil
	}
	switch pqErr.Constraint {
	case "uq_tenants_company_name":
		return &domerrors.ConflictError{Field: "company_name"}
	case "uq_tenants_db_name":
		return &domerrors.ConflictError{Field: "db_name"}
	case "tenant_identities_pkey":
		return &domerrors.ConflictError{Field: "email"}
	default:
		return &domerrors.ConflictError{Field: pqErr.Constraint}
	}
}

func prefixColumns(alias, columns string) string {
	parts := strings.Split(columns, ", ")
	for i, p := range parts {
		parts[i] = alias + "." + p
	}
	return strings.Join(parts, ", ")
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// Control-plane DDL. The uniqueness guarantees the provisioning flow relies
// on (company name case-insensitive, database name, identity email) live
// here as constraints, not as application-level locks.
var controlPlaneDDL = []string{
	`CREATE TABLE IF NOT EXISTS tenants (
		id UUID PRIMARY KEY,
		name TEXT NOT NULL,
		company_name TEXT NOT NULL,
		db_name TEXT NOT NULL,
		db_host TEXT NOT NULL,
		db_port INTEGER NOT NULL,
		db_user TEXT NOT NULL,
		db_password TEXT NOT NULL,
		admin_email TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_tenants_company_name ON tenants (lower(company_name))`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_tenants_db_name ON tenants (db_name)`,
	`CREATE INDEX IF NOT EXISTS ix_tenants_admin_email ON tenants (lower(admin_email))`,
	`CREATE INDEX IF NOT EXISTS ix_tenants_status ON tenants (status)`,
	`CREATE TABLE IF NOT EXISTS tenant_identities (
		email TEXT PRIMARY KEY,
		tenant_id UUID NOT NULL REFERENCES tenants(id) ON DELETE CASCADE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS ix_tenant_identities_tenant_id ON tenant_identities (tenant_id)`,
}

// EnsureControlPlaneSchema creates the control-plane tables if they are
// absent. Called once at startup.
func EnsureControlPlaneSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range controlPlaneDDL {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure control-plane schema: %w", err)
		}
	}
	return nil
}

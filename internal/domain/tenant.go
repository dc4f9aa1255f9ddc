package domain

import (
	"context"
	"database/sql"
	"time"
)

// Status is the lifecycle state of a tenant. Transitions are monotonic
// within a provisioning attempt: pending moves to exactly one of active,
// failed, schema_failed or seed_failed. Only operator actions move a
// tenant between active and inactive.
type Status string

const (
	StatusPending      Status = "pending"
	StatusActive       Status = "active"
	StatusInactive     Status = "inactive"
	StatusFailed       Status = "failed"
	StatusSchemaFailed Status = "schema_failed"
	StatusSeedFailed   Status = "seed_failed"
)

// Terminal reports whether the status is a terminal failure of a
// provisioning attempt.
func (s Status) Terminal() bool {
	return s == StatusFailed || s == StatusSchemaFailed || s == StatusSeedFailed
}

// PreActive reports whether the tenant never completed provisioning.
func (s Status) PreActive() bool {
	return s == StatusPending || s.Terminal()
}

// ConnectionDescriptor holds everything needed to reach one tenant database.
type ConnectionDescriptor struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// Tenant represents one customer's isolated deployment.
type Tenant struct {
	ID          string // UUID
	Name        string // Display name
	CompanyName string // Unique under case-insensitive comparison
	AdminEmail  string
	DB          ConnectionDescriptor // Database name is unique and immutable
	Status      Status
	CreatedAt   time.Time
}

// IdentityMapping associates a login email with exactly one tenant.
type IdentityMapping struct {
	Email     string
	TenantID  string
	CreatedAt time.Time
}

// UpsertOutcome describes what an identity mapping upsert did.
type UpsertOutcome string

const (
	OutcomeCreated   UpsertOutcome = "created"
	OutcomeRepointed UpsertOutcome = "repointed"
	OutcomeUnchanged UpsertOutcome = "unchanged"
)

// ConnectionInfo is what resolution returns to login routers.
type ConnectionInfo struct {
	TenantID    string `json:"tenantId"`
	CompanyName string `json:"companyName"`
	Host        string `json:"host"`
	Port        int    `json:"port"`
	User        string `json:"user"`
	Password    string `json:"password"`
	Database    string `json:"database"`
}

// TenantRepository defines control-plane access to tenant records.
type TenantRepository interface {
	Create(ctx context.Context, tenant *Tenant) error
	GetByID(ctx context.Context, id string) (*Tenant, error)
	GetByCompanyName(ctx context.Context, name string) (*Tenant, error)
	// GetByEmail checks the admin email first, then falls through to the
	// identity mapping table.
	GetByEmail(ctx context.Context, email string) (*Tenant, error)
	List(ctx context.Context, offset, limit int) ([]*Tenant, error)
	ListByStatus(ctx context.Context, statuses ...Status) ([]*Tenant, error)
	SetStatus(ctx context.Context, id string, status Status) error
	// Delete removes the tenant row and cascades identity mappings. It
	// returns the database name so callers can perform manual physical
	// cleanup; the tenant database itself is never touched.
	Delete(ctx context.Context, id string) (string, error)
}

// IdentityRepository defines control-plane access to identity mappings.
type IdentityRepository interface {
	// Upsert inserts the mapping, re-points it if the email already maps
	// to a different tenant, or reports it unchanged. On a re-point the
	// second return carries the tenant id the email previously mapped to.
	Upsert(ctx context.Context, email, tenantID string) (UpsertOutcome, string, error)
	ListByTenant(ctx context.Context, tenantID string) ([]*IdentityMapping, error)
}

// Provisioner creates a new, empty, uniquely named database on the engine.
// CreateDatabase is not idempotent: re-invoking on an existing name fails.
type Provisioner interface {
	CreateDatabase(ctx context.Context, name string) error
}

// SchemaApplier brings a tenant database up to the expected schema. It must
// be safe against databases holding a partial schema from a failed attempt.
type SchemaApplier interface {
	Apply(ctx context.Context, db *sql.DB) error
}

// SeedResult describes the outcome of an admin seeding call.
type SeedResult string

const (
	SeedCreated       SeedResult = "created"
	SeedAlreadyExists SeedResult = "already_exists"
	SeedReset         SeedResult = "reset"
)

// AdminSeeder inserts or resets the administrator identity inside a tenant
// database.
type AdminSeeder interface {
	SeedAdmin(ctx context.Context, db *sql.DB, email, passwordHash, tenantID string) (SeedResult, error)
	ResetAdmin(ctx context.Context, db *sql.DB, email, passwordHash, tenantID string) (SeedResult, error)
}

// TenantConnector opens a connection pool to one tenant database.
type TenantConnector interface {
	Connect(ctx context.Context, desc ConnectionDescriptor) (*sql.DB, error)
}

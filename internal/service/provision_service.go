package service

import (
	"context"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/yourorg/tenantplane/internal/cache"
	"github.com/yourorg/tenantplane/internal/domain"
	domerrors "github.com/yourorg/tenantplane/internal/domain/errors"
	"github.com/yourorg/tenantplane/internal/observability/metrics"
	"github.com/yourorg/tenantplane/internal/observability/tracing"
	"github.com/yourorg/tenantplane/internal/security"
	"github.com/yourorg/tenantplane/internal/security/audit"
	"github.com/yourorg/tenantplane/pkg/config"
)

// ProvisionService drives the tenant lifecycle: create the physical
// database, apply the schema, seed the admin, and record every step's
// outcome on the registry row.
type ProvisionService struct {
	tenants     domain.TenantRepository
	identities  domain.IdentityRepository
	provisioner domain.Provisioner
	applier     domain.SchemaApplier
	seeder      domain.AdminSeeder
	connector   domain.TenantConnector
	cache       cache.ResolutionCache
	audit       *audit.Logger
	logger      *slog.Logger
	config      *config.Config

	// now is swappable for deterministic database names in tests.
	now func() time.Time
}

// CreateTenantInput captures a provisioning request.
type CreateTenantInput struct {
	Name        string
	CompanyName string
	AdminEmail  string
}

// CreateTenantResult is returned once provisioning completes. The initial
// password is shown exactly once and never stored in plaintext.
type CreateTenantResult struct {
	TenantID        string `json:"tenantId"`
	DatabaseName    string `json:"databaseName"`
	AdminEmail      string `json:"adminEmail"`
	InitialPassword string `json:"initialPassword"`
	Status          string `json:"status"`
}

func NewProvisionService(
	tenants domain.TenantRepository,
	identities domain.IdentityRepository,
	provisioner domain.Provisioner,
	applier domain.SchemaApplier,
	seeder domain.AdminSeeder,
	connector domain.TenantConnector,
	resolutionCache cache.ResolutionCache,
	auditLog *audit.Logger,
	logger *slog.Logger,
	cfg *config.Config,
) *ProvisionService {
	return &ProvisionService{
		tenants:     tenants,
		identities:  identities,
		provisioner: provisioner,
		applier:     applier,
		seeder:      seeder,
		connector:   connector,
		cache:       resolutionCache,
		audit:       auditLog,
		logger:      logger,
		config:      cfg,
		now:         time.Now,
	}
}

// CreateTenant provisions a tenant end to end. Each step failure leaves the
// registry row in the status naming the failed step; a failed attempt is
// never rolled back and its database name is never reused.
func (s *ProvisionService) CreateTenant(ctx context.Context, input CreateTenantInput) (*CreateTenantResult, error) {
	if err := validateCreateInput(input); err != nil {
		return nil, err
	}

	start := s.now()
	ctx, span := tracing.Tracer().Start(ctx, "provision.create_tenant")
	defer span.End()

	host, port, user, password := s.config.TenantDescriptorDefaults()
	tenant := &domain.Tenant{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(input.Name),
		CompanyName: strings.TrimSpace(input.CompanyName),
		AdminEmail:  strings.ToLower(strings.TrimSpace(input.AdminEmail)),
		DB: domain.ConnectionDescriptor{
			Host:     host,
			Port:     port,
			User:     user,
			Password: password,
			Database: databaseName(input.Name, start),
		},
		Status: domain.StatusPending,
	}
	span.SetAttributes(
		attribute.String("tenant.id", tenant.ID),
		attribute.String("tenant.database", tenant.DB.Database),
	)

	if err := s.tenants.Create(ctx, tenant); err != nil {
		metrics.ObserveProvision("rejected", time.Since(start))
		return nil, err
	}

	s.logger.Info("provisioning tenant",
		slog.String("tenant_id", tenant.ID),
		slog.String("company", tenant.CompanyName),
		slog.String("database", tenant.DB.Database),
	)

	if err := s.provisioner.CreateDatabase(ctx, tenant.DB.Database); err != nil {
		return nil, s.failStep(ctx, span, tenant, domain.StatusFailed, "create_database", start, err)
	}

	db, err := s.connector.Connect(ctx, tenant.DB)
	if err != nil {
		return nil, s.failStep(ctx, span, tenant, domain.StatusSchemaFailed, "connect", start, err)
	}
	defer db.Close()

	if err := s.applier.Apply(ctx, db); err != nil {
		return nil, s.failStep(ctx, span, tenant, domain.StatusSchemaFailed, "apply_schema", start, err)
	}

	initialPassword, err := security.GeneratePassword(16)
	if err != nil {
		return nil, s.failStep(ctx, span, tenant, domain.StatusSeedFailed, "seed_admin", start, err)
	}
	hash, err := security.HashPassword(initialPassword)
	if err != nil {
		return nil, s.failStep(ctx, span, tenant, domain.StatusSeedFailed, "seed_admin", start, err)
	}

	if _, err := s.seeder.SeedAdmin(ctx, db, tenant.AdminEmail, hash, tenant.ID); err != nil {
		return nil, s.failStep(ctx, span, tenant, domain.StatusSeedFailed, "seed_admin", start, err)
	}

	if err := s.tenants.SetStatus(ctx, tenant.ID, domain.StatusActive); err != nil {
		return nil, s.failStep(ctx, span, tenant, domain.StatusSeedFailed, "activate", start, err)
	}

	// The admin email doubles as a login identity. Losing this write is
	// tolerable because resolution falls back to the admin email column.
	if _, _, err := s.identities.Upsert(ctx, tenant.AdminEmail, tenant.ID); err != nil {
		s.logger.Warn("admin identity mapping not recorded",
			slog.String("tenant_id", tenant.ID),
			slog.String("error", err.Error()),
		)
	}

	s.invalidate(ctx, tenant)
	s.audit.LogProvisioning(ctx, operatorFrom(ctx), tenant.ID, "completed", tenant.DB.Database)
	metrics.ObserveProvision("success", time.Since(start))

	s.logger.Info("tenant provisioned",
		slog.String("tenant_id", tenant.ID),
		slog.Duration("duration", time.Since(start)),
	)

	return &CreateTenantResult{
		TenantID:        tenant.ID,
		DatabaseName:    tenant.DB.Database,
		AdminEmail:      tenant.AdminEmail,
		InitialPassword: initialPassword,
		Status:          string(domain.StatusActive),
	}, nil
}

// failStep marks the registry row with the step's failure status and
// records metrics. The original error is returned with the row left in
// place for later recovery.
func (s *ProvisionService) failStep(ctx context.Context, span trace.Span, tenant *domain.Tenant, status domain.Status, step string, start time.Time, cause error) error {
	span.RecordError(cause)
	span.SetStatus(codes.Error, step)

	s.logger.Error("provisioning step failed",
		slog.String("tenant_id", tenant.ID),
		slog.String("step", step),
		slog.String("status", string(status)),
		slog.String("error", cause.Error()),
	)

	if err := s.tenants.SetStatus(ctx, tenant.ID, status); err != nil {
		s.logger.Error("failed to record failure status",
			slog.String("tenant_id", tenant.ID),
			slog.String("error", err.Error()),
		)
	}

	metrics.ObserveStepFailure(step)
	metrics.ObserveProvision("failure", time.Since(start))
	s.audit.LogProvisioning(ctx, operatorFrom(ctx), tenant.ID, string(status), step)
	return cause
}

// GetTenant returns one registry row.
func (s *ProvisionService) GetTenant(ctx context.Context, id string) (*domain.Tenant, error) {
	return s.tenants.GetByID(ctx, id)
}

// ListTenants pages through the registry.
func (s *ProvisionService) ListTenants(ctx context.Context, offset, limit int) ([]*domain.Tenant, error) {
	return s.tenants.List(ctx, offset, limit)
}

// SetTenantStatus moves a tenant between active and inactive; an empty
// status toggles. Provisioning statuses are owned by the pipeline and
// recovery operations, so any other transition is rejected.
func (s *ProvisionService) SetTenantStatus(ctx context.Context, id string, status domain.Status) (*domain.Tenant, error) {
	if status != "" && status != domain.StatusActive && status != domain.StatusInactive {
		return nil, domerrors.Validation("status must be %q or %q", domain.StatusActive, domain.StatusInactive)
	}

	tenant, err := s.tenants.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tenant.Status != domain.StatusActive && tenant.Status != domain.StatusInactive {
		return nil, domerrors.Validation("tenant in status %q cannot be toggled, use recovery operations", tenant.Status)
	}
	if status == "" {
		// no explicit target toggles between the two operator states
		status = domain.StatusInactive
		if tenant.Status == domain.StatusInactive {
			status = domain.StatusActive
		}
	}
	if tenant.Status == status {
		return tenant, nil
	}

	if err := s.tenants.SetStatus(ctx, id, status); err != nil {
		return nil, err
	}
	s.invalidate(ctx, tenant)
	s.audit.LogStatusChange(ctx, operatorFrom(ctx), id, string(tenant.Status), string(status))

	tenant.Status = status
	return tenant, nil
}

// DeleteTenant removes the registry row and its identity mappings. The
// physical tenant database is intentionally left behind; the returned name
// tells the operator what to drop by hand.
func (s *ProvisionService) DeleteTenant(ctx context.Context, id string) (string, error) {
	tenant, err := s.tenants.GetByID(ctx, id)
	if err != nil {
		return "", err
	}

	// Mappings cascade away with the row, so collect their cache keys first.
	keys := s.resolutionKeys(ctx, tenant)

	dbName, err := s.tenants.Delete(ctx, id)
	if err != nil {
		return "", err
	}

	s.cache.Delete(ctx, keys...)
	s.audit.LogDeletion(ctx, operatorFrom(ctx), id, "deleted", "database "+dbName+" requires manual cleanup")
	s.logger.Info("tenant deregistered",
		slog.String("tenant_id", id),
		slog.String("database", dbName),
	)
	return dbName, nil
}

// RegisterIdentity points a login email at a tenant.
func (s *ProvisionService) RegisterIdentity(ctx context.Context, email, tenantID string) (domain.UpsertOutcome, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if _, err := mail.ParseAddress(email); err != nil {
		return "", domerrors.Validation("invalid email %q", email)
	}

	outcome, previous, err := s.identities.Upsert(ctx, email, tenantID)
	if err != nil {
		return "", err
	}

	s.cache.Delete(ctx, cache.EmailKey(email))
	if outcome == domain.OutcomeRepointed {
		s.audit.LogRepoint(ctx, operatorFrom(ctx), email, previous, tenantID)
	}
	return outcome, nil
}

// resolutionKeys collects every cache key a tenant may be resolvable under:
// company name, admin email, id, and each registered member email.
func (s *ProvisionService) resolutionKeys(ctx context.Context, tenant *domain.Tenant) []string {
	keys := cache.TenantKeys(tenant)
	mappings, err := s.identities.ListByTenant(ctx, tenant.ID)
	if err != nil {
		s.logger.Warn("could not list identities for cache invalidation",
			slog.String("tenant_id", tenant.ID),
			slog.String("error", err.Error()),
		)
		return keys
	}
	for _, m := range mappings {
		keys = append(keys, cache.EmailKey(m.Email))
	}
	return keys
}

func (s *ProvisionService) invalidate(ctx context.Context, tenant *domain.Tenant) {
	s.cache.Delete(ctx, s.resolutionKeys(ctx, tenant)...)
}

func operatorFrom(ctx context.Context) string {
	// The middleware package owns the context key; importing it here would
	// create a cycle with handler tests, so audit records carry the
	// operator only when the caller put a plain string under this key.
	if v, ok := ctx.Value(operatorKey{}).(string); ok {
		return v
	}
	return ""
}

type operatorKey struct{}

// WithOperator stamps the acting operator onto the context for audit trails.
func WithOperator(ctx context.Context, operatorID string) context.Context {
	return context.WithValue(ctx, operatorKey{}, operatorID)
}

func validateCreateInput(input CreateTenantInput) error {
	if strings.TrimSpace(input.Name) == "" {
		return domerrors.Validation("name is required")
	}
	if strings.TrimSpace(input.CompanyName) == "" {
		return domerrors.Validation("company name is required")
	}
	email := strings.TrimSpace(input.AdminEmail)
	if email == "" {
		return domerrors.Validation("admin email is required")
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return domerrors.Validation("invalid admin email %q", email)
	}
	return nil
}

// databaseName derives a unique physical database name from the tenant's
// display name and the attempt time. Names are never reused across attempts.
func databaseName(name string, at time.Time) string {
	slug := strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r >= 'A' && r <= 'Z':
			return r + ('a' - 'A')
		default:
			return '_'
		}
	}, strings.TrimSpace(name))

	// Postgres truncates identifiers at 63 bytes. Trim the slug, never the
	// timestamp, so names stay unique across attempts.
	suffix := fmt.Sprintf("_%d", at.Unix())
	if max := 63 - len("tenant_") - len(suffix); len(slug) > max {
		slug = slug[:max]
	}
	return "tenant_" + slug + suffix
}

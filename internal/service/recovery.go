package service

import (
	"context"
	"database/sql"
	"log/slog"

	"github.com/yourorg/tenantplane/internal/domain"
	domerrors "github.com/yourorg/tenantplane/internal/domain/errors"
	"github.com/yourorg/tenantplane/internal/observability/metrics"
	"github.com/yourorg/tenantplane/internal/security"
)

// ReseedResult reports what a reseed did for one tenant.
type ReseedResult struct {
	TenantID    string `json:"tenantId"`
	AdminEmail  string `json:"adminEmail"`
	Seed        string `json:"seed"`
	Status      string `json:"status"`
	NewPassword string `json:"newPassword,omitempty"`
	Error       string `json:"error,omitempty"`
}

// ReapplySchema re-runs the schema migrations against a tenant database.
// Migrations are guarded, so partial schemas from a failed attempt are
// completed rather than duplicated. The tenant's status is not changed:
// schema alone does not make a tenant servable.
func (s *ProvisionService) ReapplySchema(ctx context.Context, id string) error {
	tenant, err := s.tenants.GetByID(ctx, id)
	if err != nil {
		return err
	}

	db, err := s.connector.Connect(ctx, tenant.DB)
	if err != nil {
		metrics.ObserveRecovery("schema_reapply", "failure")
		return err
	}
	defer db.Close()

	if err := s.applier.Apply(ctx, db); err != nil {
		metrics.ObserveRecovery("schema_reapply", "failure")
		return err
	}

	metrics.ObserveRecovery("schema_reapply", "success")
	s.audit.LogAction(ctx, operatorFrom(ctx), "schema_reapply", "tenant", id, "completed", "")
	s.logger.Info("schema reapplied", slog.String("tenant_id", id))
	return nil
}

// ReseedAdmin resets the admin credential inside the tenant database with a
// freshly generated password. A tenant stuck before activation is promoted
// to active once its admin is in place, completing a recovered attempt.
func (s *ProvisionService) ReseedAdmin(ctx context.Context, id string) (*ReseedResult, error) {
	tenant, err := s.tenants.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	db, err := s.connector.Connect(ctx, tenant.DB)
	if err != nil {
		metrics.ObserveRecovery("admin_reseed", "failure")
		return nil, err
	}
	defer db.Close()

	result, err := s.reseedOne(ctx, tenant, db)
	if err != nil {
		metrics.ObserveRecovery("admin_reseed", "failure")
		return nil, err
	}

	metrics.ObserveRecovery("admin_reseed", "success")
	s.audit.LogAction(ctx, operatorFrom(ctx), "admin_reseed", "tenant", id, result.Seed, "")
	return result, nil
}

// ReseedStuck sweeps every tenant stranded in a pre-active status and tries
// to finish its provisioning: reapply schema, reset the admin, promote to
// active. Per-tenant failures are reported, not fatal.
func (s *ProvisionService) ReseedStuck(ctx context.Context) ([]*ReseedResult, error) {
	stuck, err := s.tenants.ListByStatus(ctx,
		domain.StatusPending,
		domain.StatusFailed,
		domain.StatusSchemaFailed,
		domain.StatusSeedFailed,
	)
	if err != nil {
		return nil, err
	}

	results := make([]*ReseedResult, 0, len(stuck))
	for _, tenant := range stuck {
		result, err := s.recoverOne(ctx, tenant)
		if err != nil {
			s.logger.Warn("stuck tenant not recovered",
				slog.String("tenant_id", tenant.ID),
				slog.String("status", string(tenant.Status)),
				slog.String("error", err.Error()),
			)
			metrics.ObserveRecovery("reseed_stuck", "failure")
			results = append(results, &ReseedResult{
				TenantID:   tenant.ID,
				AdminEmail: tenant.AdminEmail,
				Status:     string(tenant.Status),
				Error:      err.Error(),
			})
			continue
		}
		metrics.ObserveRecovery("reseed_stuck", "success")
		results = append(results, result)
	}

	s.audit.LogAction(ctx, operatorFrom(ctx), "reseed_stuck", "registry", "", "completed", "")
	return results, nil
}

// recoverOne finishes a stranded attempt end to end. A tenant that failed
// before its database existed cannot be recovered this way.
func (s *ProvisionService) recoverOne(ctx context.Context, tenant *domain.Tenant) (*ReseedResult, error) {
	if tenant.Status == domain.StatusFailed {
		return nil, domerrors.Validation("tenant %s has no database, re-provision instead", tenant.ID)
	}

	db, err := s.connector.Connect(ctx, tenant.DB)
	if err != nil {
		return nil, err
	}
	defer db.Close()

	if err := s.applier.Apply(ctx, db); err != nil {
		return nil, err
	}
	return s.reseedOne(ctx, tenant, db)
}

func (s *ProvisionService) reseedOne(ctx context.Context, tenant *domain.Tenant, db *sql.DB) (*ReseedResult, error) {
	password, err := security.GeneratePassword(16)
	if err != nil {
		return nil, err
	}
	hash, err := security.HashPassword(password)
	if err != nil {
		return nil, err
	}

	seed, err := s.seeder.ResetAdmin(ctx, db, tenant.AdminEmail, hash, tenant.ID)
	if err != nil {
		return nil, err
	}

	status := tenant.Status
	if status.PreActive() {
		if err := s.tenants.SetStatus(ctx, tenant.ID, domain.StatusActive); err != nil {
			return nil, err
		}
		status = domain.StatusActive
		s.invalidate(ctx, tenant)
	}

	s.logger.Info("admin reseeded",
		slog.String("tenant_id", tenant.ID),
		slog.String("seed", string(seed)),
		slog.String("status", string(status)),
	)

	return &ReseedResult{
		TenantID:    tenant.ID,
		AdminEmail:  tenant.AdminEmail,
		Seed:        string(seed),
		Status:      string(status),
		NewPassword: password,
	}, nil
}

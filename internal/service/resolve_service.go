package service

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/yourorg/tenantplane/internal/cache"
	"github.com/yourorg/tenantplane/internal/domain"
	domerrors "github.com/yourorg/tenantplane/internal/domain/errors"
	"github.com/yourorg/tenantplane/internal/observability/metrics"
	"github.com/yourorg/tenantplane/pkg/config"
)

const resolutionTTL = 5 * time.Minute

// ResolveService answers the login router's question: given an identity,
// which tenant database does it live in. Lookups by company and email serve
// login flows and only ever return active tenants; lookups by id serve
// operators and return any status.
type ResolveService struct {
	tenants domain.TenantRepository
	cache   cache.ResolutionCache
	logger  *slog.Logger

	// Local-development overrides; see config.ResolveHostOverride.
	hostOverride string
	portOverride int
}

func NewResolveService(tenants domain.TenantRepository, resolutionCache cache.ResolutionCache, logger *slog.Logger, cfg *config.Config) *ResolveService {
	return &ResolveService{
		tenants:      tenants,
		cache:        resolutionCache,
		logger:       logger,
		hostOverride: cfg.ResolveHostOverride,
		portOverride: cfg.ResolvePortOverride,
	}
}

// ByCompanyName resolves a company name to its tenant's connection info.
func (s *ResolveService) ByCompanyName(ctx context.Context, name string) (*domain.ConnectionInfo, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domerrors.Validation("company name is required")
	}

	return s.resolve(ctx, "company", cache.CompanyKey(name), true, func(ctx context.Context) (*domain.Tenant, error) {
		return s.tenants.GetByCompanyName(ctx, name)
	})
}

// ByEmail resolves a login email to its tenant's connection info. The
// tenant's admin email wins over an identity mapping when both exist.
func (s *ResolveService) ByEmail(ctx context.Context, email string) (*domain.ConnectionInfo, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, domerrors.Validation("email is required")
	}

	return s.resolve(ctx, "email", cache.EmailKey(email), true, func(ctx context.Context) (*domain.Tenant, error) {
		return s.tenants.GetByEmail(ctx, email)
	})
}

// ByID resolves a tenant id regardless of status, for operator tooling.
func (s *ResolveService) ByID(ctx context.Context, id string) (*domain.ConnectionInfo, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domerrors.Validation("tenant id is required")
	}

	return s.resolve(ctx, "id", cache.IDKey(id), false, func(ctx context.Context) (*domain.Tenant, error) {
		return s.tenants.GetByID(ctx, id)
	})
}

func (s *ResolveService) resolve(ctx context.Context, kind, key string, activeOnly bool, lookup func(context.Context) (*domain.Tenant, error)) (*domain.ConnectionInfo, error) {
	if info, ok := s.cache.Get(ctx, key); ok {
		metrics.ObserveCacheHit()
		metrics.ObserveResolution(kind, "hit")
		return info, nil
	}
	metrics.ObserveCacheMiss()

	tenant, err := lookup(ctx)
	if err != nil {
		metrics.ObserveResolution(kind, "miss")
		return nil, err
	}

	if activeOnly && tenant.Status != domain.StatusActive {
		metrics.ObserveResolution(kind, "not_active")
		s.logger.Debug("resolution refused, tenant not active",
			slog.String("tenant_id", tenant.ID),
			slog.String("status", string(tenant.Status)),
		)
		return nil, &domerrors.NotFoundError{Resource: "tenant", Key: tenant.CompanyName}
	}

	info := s.connectionInfo(tenant)
	s.cache.Set(ctx, key, info, resolutionTTL)
	metrics.ObserveResolution(kind, "resolved")
	return info, nil
}

// connectionInfo applies the local-development host and port overrides at
// resolution time. Stored descriptors are never rewritten, so the same
// registry serves in-cluster and host-machine clients.
func (s *ResolveService) connectionInfo(tenant *domain.Tenant) *domain.ConnectionInfo {
	host := tenant.DB.Host
	port := tenant.DB.Port
	if s.hostOverride != "" {
		host = s.hostOverride
	}
	if s.portOverride > 0 {
		port = s.portOverride
	}
	return &domain.ConnectionInfo{
		TenantID:    tenant.ID,
		CompanyName: tenant.CompanyName,
		Host:        host,
		Port:        port,
		User:        tenant.DB.User,
		Password:    tenant.DB.Password,
		Database:    tenant.DB.Database,
	}
}

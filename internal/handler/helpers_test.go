package handler

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/yourorg/tenantplane/internal/cache"
	"github.com/yourorg/tenantplane/internal/domain"
	domerrors "github.com/yourorg/tenantplane/internal/domain/errors"
	"github.com/yourorg/tenantplane/internal/security/audit"
	"github.com/yourorg/tenantplane/internal/service"
	"github.com/yourorg/tenantplane/pkg/config"
)

type stubTenantRepo struct {
	tenants map[string]*domain.Tenant
}

func (s *stubTenantRepo) Create(_ context.Context, t *domain.Tenant) error {
	for _, existing := range s.tenants {
		if strings.EqualFold(existing.CompanyName, t.CompanyName) {
			return &domerrors.ConflictError{Field: "company_name", Value: t.CompanyName}
		}
	}
	t.CreatedAt = time.Now()
	s.tenants[t.ID] = t
	return nil
}

func (s *stubTenantRepo) GetByID(_ context.Context, id string) (*domain.Tenant, error) {
	if t, ok := s.tenants[id]; ok {
		copied := *t
		return &copied, nil
	}
	return nil, &domerrors.NotFoundError{Resource: "tenant", Key: id}
}

func (s *stubTenantRepo) GetByCompanyName(_ context.Context, name string) (*domain.Tenant, error) {
	for _, t := range s.tenants {
		if strings.EqualFold(t.CompanyName, name) {
			copied := *t
			return &copied, nil
		}
	}
	return nil, &domerrors.NotFoundError{Resource: "tenant", Key: name}
}

func (s *stubTenantRepo) GetByEmail(_ context.Context, email string) (*domain.Tenant, error) {
	for _, t := range s.tenants {
		if strings.EqualFold(t.AdminEmail, email) {
			copied := *t
			return &copied, nil
		}
	}
	return nil, &domerrors.NotFoundError{Resource: "tenant", Key: email}
}

func (s *stubTenantRepo) List(_ context.Context, _, _ int) ([]*domain.Tenant, error) {
	out := []*domain.Tenant{}
	for _, t := range s.tenants {
		copied := *t
		out = append(out, &copied)
	}
	return out, nil
}

func (s *stubTenantRepo) ListByStatus(_ context.Context, statuses ...domain.Status) ([]*domain.Tenant, error) {
	out := []*domain.Tenant{}
	for _, t := range s.tenants {
		for _, st := range statuses {
			if t.Status == st {
				copied := *t
				out = append(out, &copied)
				break
			}
		}
	}
	return out, nil
}

func (s *stubTenantRepo) SetStatus(_ context.Context, id string, status domain.Status) error {
	t, ok := s.tenants[id]
	if !ok {
		return &domerrors.NotFoundError{Resource: "tenant", Key: id}
	}
	t.Status = status
	return nil
}

func (s *stubTenantRepo) Delete(_ context.Context, id string) (string, error) {
	t, ok := s.tenants[id]
	if !ok {
		return "", &domerrors.NotFoundError{Resource: "tenant", Key: id}
	}
	delete(s.tenants, id)
	return t.DB.Database, nil
}

type stubIdentityRepo struct {
	byEmail map[string]string
}

func (s *stubIdentityRepo) Upsert(_ context.Context, email, tenantID string) (domain.UpsertOutcome, string, error) {
	current, ok := s.byEmail[email]
	switch {
	case !ok:
		s.byEmail[email] = tenantID
		return domain.OutcomeCreated, "", nil
	case current == tenantID:
		return domain.OutcomeUnchanged, "", nil
	default:
		s.byEmail[email] = tenantID
		return domain.OutcomeRepointed, current, nil
	}
}

func (s *stubIdentityRepo) ListByTenant(_ context.Context, tenantID string) ([]*domain.IdentityMapping, error) {
	out := []*domain.IdentityMapping{}
	for email, id := range s.byEmail {
		if id == tenantID {
			out = append(out, &domain.IdentityMapping{Email: email, TenantID: id})
		}
	}
	return out, nil
}

type stubProvisioner struct{ fail error }

func (s *stubProvisioner) CreateDatabase(context.Context, string) error { return s.fail }

type stubApplier struct{ fail error }

func (s *stubApplier) Apply(context.Context, *sql.DB) error { return s.fail }

type stubSeeder struct{ fail error }

func (s *stubSeeder) SeedAdmin(context.Context, *sql.DB, string, string, string) (domain.SeedResult, error) {
	if s.fail != nil {
		return "", s.fail
	}
	return domain.SeedCreated, nil
}

func (s *stubSeeder) ResetAdmin(context.Context, *sql.DB, string, string, string) (domain.SeedResult, error) {
	if s.fail != nil {
		return "", s.fail
	}
	return domain.SeedReset, nil
}

type stubConnector struct{}

func (stubConnector) Connect(context.Context, domain.ConnectionDescriptor) (*sql.DB, error) {
	return sql.Open("postgres", "host=localhost dbname=unused sslmode=disable")
}

type testEnv struct {
	repo *stubTenantRepo
	mux  *http.ServeMux
}

// newTestEnv wires the full API surface the way cmd/server does, over
// in-memory fakes.
func newTestEnv() *testEnv {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	repo := &stubTenantRepo{tenants: map[string]*domain.Tenant{}}
	identities := &stubIdentityRepo{byEmail: map[string]string{}}
	resolutionCache := cache.NewMemory()
	cfg := &config.Config{DBHost: "db.internal", DBPort: 5432, DBUser: "postgres", DBPassword: "pw"}

	provision := service.NewProvisionService(
		repo, identities, &stubProvisioner{}, &stubApplier{}, &stubSeeder{}, stubConnector{},
		resolutionCache, audit.NewLogger(logger), logger, cfg,
	)
	resolve := service.NewResolveService(repo, resolutionCache, logger, cfg)

	mux := http.NewServeMux()
	mux.Handle("POST /api/tenants", NewCreateTenantHandler(provision, logger))
	mux.Handle("GET /api/tenants", NewListTenantsHandler(provision, logger))
	mux.Handle("GET /api/tenants/{id}", NewGetTenantHandler(provision, logger))
	mux.Handle("PUT /api/tenants/{id}/status", NewStatusHandler(provision, logger))
	mux.Handle("DELETE /api/tenants/{id}", NewDeleteHandler(provision, logger))
	mux.Handle("POST /api/tenants/{id}/schema/reapply", NewReapplySchemaHandler(provision, logger))
	mux.Handle("POST /api/tenants/{id}/admin/reseed", NewReseedAdminHandler(provision, logger))
	mux.Handle("POST /api/recovery/reseed-stuck", NewReseedStuckHandler(provision, logger))
	mux.Handle("POST /api/identities", NewIdentityHandler(provision, logger))
	mux.Handle("GET /api/resolve/company/{name}", NewResolveCompanyHandler(resolve, logger))
	mux.Handle("GET /api/resolve/email/{email}", NewResolveEmailHandler(resolve, logger))
	mux.Handle("GET /api/resolve/id/{id}", NewResolveIDHandler(resolve, logger))
	mux.Handle("GET /healthz", HealthzHandler{})

	return &testEnv{repo: repo, mux: mux}
}

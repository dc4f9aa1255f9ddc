package service

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/yourorg/tenantplane/internal/cache"
	"github.com/yourorg/tenantplane/internal/domain"
	domerrors "github.com/yourorg/tenantplane/internal/domain/errors"
	"github.com/yourorg/tenantplane/internal/security/audit"
	"github.com/yourorg/tenantplane/pkg/config"
)

type memTenantRepo struct {
	tenants map[string]*domain.Tenant

	// identities backs the member-email fallback of GetByEmail, matching
	// the join the real repository performs.
	identities *memIdentityRepo
}

func newMemTenantRepo() *memTenantRepo {
	return &memTenantRepo{tenants: map[string]*domain.Tenant{}}
}

func (m *memTenantRepo) Create(_ context.Context, t *domain.Tenant) error {
	for _, existing := range m.tenants {
		if strings.EqualFold(existing.CompanyName, t.CompanyName) {
			return &domerrors.ConflictError{Field: "company_name", Value: t.CompanyName}
		}
	}
	t.CreatedAt = time.Now()
	m.tenants[t.ID] = t
	return nil
}

func (m *memTenantRepo) GetByID(_ context.Context, id string) (*domain.Tenant, error) {
	if t, ok := m.tenants[id]; ok {
		copied := *t
		return &copied, nil
	}
	return nil, &domerrors.NotFoundError{Resource: "tenant", Key: id}
}

func (m *memTenantRepo) GetByCompanyName(_ context.Context, name string) (*domain.Tenant, error) {
	for _, t := range m.tenants {
		if strings.EqualFold(t.CompanyName, strings.TrimSpace(name)) {
			copied := *t
			return &copied, nil
		}
	}
	return nil, &domerrors.NotFoundError{Resource: "tenant", Key: name}
}

func (m *memTenantRepo) GetByEmail(_ context.Context, email string) (*domain.Tenant, error) {
	for _, t := range m.tenants {
		if strings.EqualFold(t.AdminEmail, email) {
			copied := *t
			return &copied, nil
		}
	}
	if m.identities != nil {
		if id, ok := m.identities.byEmail[strings.ToLower(email)]; ok {
			if t, ok := m.tenants[id]; ok {
				copied := *t
				return &copied, nil
			}
		}
	}
	return nil, &domerrors.NotFoundError{Resource: "tenant", Key: email}
}

func (m *memTenantRepo) List(_ context.Context, _, _ int) ([]*domain.Tenant, error) {
	out := []*domain.Tenant{}
	for _, t := range m.tenants {
		copied := *t
		out = append(out, &copied)
	}
	return out, nil
}

func (m *memTenantRepo) ListByStatus(_ context.Context, statuses ...domain.Status) ([]*domain.Tenant, error) {
	out := []*domain.Tenant{}
	for _, t := range m.tenants {
		for _, s := range statuses {
			if t.Status == s {
				copied := *t
				out = append(out, &copied)
				break
			}
		}
	}
	return out, nil
}

func (m *memTenantRepo) SetStatus(_ context.Context, id string, status domain.Status) error {
	t, ok := m.tenants[id]
	if !ok {
		return &domerrors.NotFoundError{Resource: "tenant", Key: id}
	}
	t.Status = status
	return nil
}

func (m *memTenantRepo) Delete(_ context.Context, id string) (string, error) {
	t, ok := m.tenants[id]
	if !ok {
		return "", &domerrors.NotFoundError{Resource: "tenant", Key: id}
	}
	delete(m.tenants, id)
	return t.DB.Database, nil
}

type memIdentityRepo struct {
	byEmail map[string]string
}

func newMemIdentityRepo() *memIdentityRepo {
	return &memIdentityRepo{byEmail: map[string]string{}}
}

func (m *memIdentityRepo) Upsert(_ context.Context, email, tenantID string) (domain.UpsertOutcome, string, error) {
	current, ok := m.byEmail[email]
	switch {
	case !ok:
		m.byEmail[email] = tenantID
		return domain.OutcomeCreated, "", nil
	case current == tenantID:
		return domain.OutcomeUnchanged, "", nil
	default:
		m.byEmail[email] = tenantID
		return domain.OutcomeRepointed, current, nil
	}
}

func (m *memIdentityRepo) ListByTenant(_ context.Context, tenantID string) ([]*domain.IdentityMapping, error) {
	out := []*domain.IdentityMapping{}
	for email, id := range m.byEmail {
		if id == tenantID {
			out = append(out, &domain.IdentityMapping{Email: email, TenantID: id})
		}
	}
	return out, nil
}

type fakeProvisioner struct {
	created []string
	fail    error
}

func (f *fakeProvisioner) CreateDatabase(_ context.Context, name string) error {
	if f.fail != nil {
		return f.fail
	}
	f.created = append(f.created, name)
	return nil
}

type fakeApplier struct {
	applied int
	fail    error
}

func (f *fakeApplier) Apply(_ context.Context, _ *sql.DB) error {
	if f.fail != nil {
		return f.fail
	}
	f.applied++
	return nil
}

type fakeSeeder struct {
	seeded   int
	reset    int
	failSeed error
}

func (f *fakeSeeder) SeedAdmin(_ context.Context, _ *sql.DB, _, _, _ string) (domain.SeedResult, error) {
	if f.failSeed != nil {
		return "", f.failSeed
	}
	f.seeded++
	return domain.SeedCreated, nil
}

func (f *fakeSeeder) ResetAdmin(_ context.Context, _ *sql.DB, _, _, _ string) (domain.SeedResult, error) {
	if f.failSeed != nil {
		return "", f.failSeed
	}
	f.reset++
	return domain.SeedReset, nil
}

type fakeConnector struct {
	fail error
}

// Connect hands back an unconnected handle. lib/pq dials lazily, so fakes
// downstream never touch the network.
func (f *fakeConnector) Connect(_ context.Context, _ domain.ConnectionDescriptor) (*sql.DB, error) {
	if f.fail != nil {
		return nil, f.fail
	}
	return sql.Open("postgres", "host=localhost dbname=unused sslmode=disable")
}

type fixture struct {
	repo        *memTenantRepo
	identities  *memIdentityRepo
	provisioner *fakeProvisioner
	applier     *fakeApplier
	seeder      *fakeSeeder
	connector   *fakeConnector
	cache       *cache.Memory
	svc         *ProvisionService
}

func newFixture() *fixture {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	f := &fixture{
		repo:        newMemTenantRepo(),
		identities:  newMemIdentityRepo(),
		provisioner: &fakeProvisioner{},
		applier:     &fakeApplier{},
		seeder:      &fakeSeeder{},
		connector:   &fakeConnector{},
		cache:       cache.NewMemory(),
	}
	f.repo.identities = f.identities
	cfg := &config.Config{
		DBHost:     "db.internal",
		DBPort:     5432,
		DBUser:     "postgres",
		DBPassword: "pw",
	}
	f.svc = NewProvisionService(
		f.repo, f.identities, f.provisioner, f.applier, f.seeder, f.connector,
		f.cache, audit.NewLogger(logger), logger, cfg,
	)
	return f
}

var errBoom = errors.New("boom")

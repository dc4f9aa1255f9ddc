package service

import (
	"context"
	"testing"

	"github.com/yourorg/tenantplane/internal/domain"
)

func provisionStuck(t *testing.T, f *fixture, company string, status domain.Status) string {
	t.Helper()
	f.seeder.failSeed = errBoom
	_, err := f.svc.CreateTenant(context.Background(), CreateTenantInput{
		Name: company, CompanyName: company, AdminEmail: "admin@" + company + ".com",
	})
	if err == nil {
		t.Fatal("expected provisioning to fail")
	}
	f.seeder.failSeed = nil

	tenant, err := f.repo.GetByCompanyName(context.Background(), company)
	if err != nil {
		t.Fatalf("stuck tenant missing: %v", err)
	}
	if tenant.Status != domain.StatusSeedFailed {
		t.Fatalf("expected seed_failed fixture, got %s", tenant.Status)
	}
	if status != domain.StatusSeedFailed {
		_ = f.repo.SetStatus(context.Background(), tenant.ID, status)
	}
	return tenant.ID
}

func TestReseedAdminPromotesStuckTenant(t *testing.T) {
	f := newFixture()
	id := provisionStuck(t, f, "acme", domain.StatusSeedFailed)

	result, err := f.svc.ReseedAdmin(context.Background(), id)
	if err != nil {
		t.Fatalf("ReseedAdmin failed: %v", err)
	}
	if result.Status != string(domain.StatusActive) {
		t.Errorf("expected promotion to active, got %s", result.Status)
	}
	if result.NewPassword == "" {
		t.Error("expected a fresh one-time password")
	}
	if f.seeder.reset != 1 {
		t.Errorf("expected one reset, got %d", f.seeder.reset)
	}

	stored, _ := f.repo.GetByID(context.Background(), id)
	if stored.Status != domain.StatusActive {
		t.Errorf("registry not promoted: %s", stored.Status)
	}
}

func TestReseedAdminKeepsActiveStatus(t *testing.T) {
	f := newFixture()
	result, err := f.svc.CreateTenant(context.Background(), CreateTenantInput{
		Name: "Acme", CompanyName: "Acme Corp", AdminEmail: "a@acme.com",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	reseed, err := f.svc.ReseedAdmin(context.Background(), result.TenantID)
	if err != nil {
		t.Fatalf("ReseedAdmin failed: %v", err)
	}
	if reseed.Status != string(domain.StatusActive) {
		t.Errorf("active tenant should stay active, got %s", reseed.Status)
	}
	if reseed.NewPassword == result.InitialPassword {
		t.Error("reseed must rotate the password")
	}
}

func TestReapplySchemaDoesNotChangeStatus(t *testing.T) {
	f := newFixture()
	id := provisionStuck(t, f, "acme", domain.StatusSchemaFailed)

	if err := f.svc.ReapplySchema(context.Background(), id); err != nil {
		t.Fatalf("ReapplySchema failed: %v", err)
	}

	stored, _ := f.repo.GetByID(context.Background(), id)
	if stored.Status != domain.StatusSchemaFailed {
		t.Errorf("reapply must not change status, got %s", stored.Status)
	}
	if f.applier.applied < 2 {
		t.Errorf("expected a second apply, got %d", f.applier.applied)
	}
}

func TestReseedStuckSweepsPreActiveTenants(t *testing.T) {
	f := newFixture()
	seedFailedID := provisionStuck(t, f, "alpha", domain.StatusSeedFailed)
	noDatabaseID := provisionStuck(t, f, "beta", domain.StatusFailed)

	// An active tenant must not be touched by the sweep.
	active, err := f.svc.CreateTenant(context.Background(), CreateTenantInput{
		Name: "Gamma", CompanyName: "Gamma", AdminEmail: "admin@gamma.com",
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	resetsBefore := f.seeder.reset

	results, err := f.svc.ReseedStuck(context.Background())
	if err != nil {
		t.Fatalf("ReseedStuck failed: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}

	byID := map[string]*ReseedResult{}
	for _, r := range results {
		byID[r.TenantID] = r
	}

	recovered := byID[seedFailedID]
	if recovered == nil || recovered.Error != "" {
		t.Fatalf("seed_failed tenant should recover: %+v", recovered)
	}
	if recovered.Status != string(domain.StatusActive) {
		t.Errorf("expected promotion, got %s", recovered.Status)
	}

	unrecoverable := byID[noDatabaseID]
	if unrecoverable == nil || unrecoverable.Error == "" {
		t.Fatalf("tenant without a database should report an error: %+v", unrecoverable)
	}

	stored, _ := f.repo.GetByID(context.Background(), active.TenantID)
	if stored.Status != domain.StatusActive {
		t.Errorf("active tenant disturbed: %s", stored.Status)
	}
	if f.seeder.reset != resetsBefore+1 {
		t.Errorf("expected exactly one reset during sweep, got %d", f.seeder.reset-resetsBefore)
	}
}

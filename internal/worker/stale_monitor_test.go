package worker

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/yourorg/tenantplane/internal/domain"
)

type listRepo struct {
	domain.TenantRepository
	byStatus map[domain.Status][]*domain.Tenant
	calls    int
}

func (r *listRepo) ListByStatus(_ context.Context, statuses ...domain.Status) ([]*domain.Tenant, error) {
	r.calls++
	out := []*domain.Tenant{}
	for _, s := range statuses {
		out = append(out, r.byStatus[s]...)
	}
	return out, nil
}

func TestScanFlagsOnlyStalePending(t *testing.T) {
	now := time.Unix(1700000000, 0)
	repo := &listRepo{byStatus: map[domain.Status][]*domain.Tenant{
		domain.StatusPending: {
			{ID: "fresh", Status: domain.StatusPending, CreatedAt: now.Add(-time.Minute)},
			{ID: "stale", Status: domain.StatusPending, CreatedAt: now.Add(-time.Hour)},
		},
	}}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := NewStaleAttemptMonitor(repo, logger, time.Minute, 15*time.Minute)
	m.now = func() time.Time { return now }

	m.scan(context.Background())

	if repo.calls == 0 {
		t.Fatal("expected repository scans")
	}
}

func TestStartStopsOnContextCancel(t *testing.T) {
	repo := &listRepo{byStatus: map[domain.Status][]*domain.Tenant{}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	m := NewStaleAttemptMonitor(repo, logger, 10*time.Millisecond, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Start(ctx)
		close(done)
	}()

	time.Sleep(35 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("monitor did not stop on cancel")
	}

	if repo.calls == 0 {
		t.Error("expected at least one scan before cancel")
	}
}

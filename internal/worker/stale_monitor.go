// Package worker hosts background loops run by the server process.
package worker

import (
	"context"
	"log/slog"
	"time"

	"github.com/yourorg/tenantplane/internal/domain"
	"github.com/yourorg/tenantplane/internal/observability/metrics"
)

// StaleAttemptMonitor periodically scans the registry for tenants stuck in
// pending longer than the configured threshold. It only observes: flagged
// tenants are logged and gauged for operators, never mutated, because a
// slow provisioning attempt may still be in flight.
type StaleAttemptMonitor struct {
	tenants   domain.TenantRepository
	logger    *slog.Logger
	interval  time.Duration
	threshold time.Duration

	now func() time.Time
}

func NewStaleAttemptMonitor(tenants domain.TenantRepository, logger *slog.Logger, interval, threshold time.Duration) *StaleAttemptMonitor {
	return &StaleAttemptMonitor{
		tenants:   tenants,
		logger:    logger,
		interval:  interval,
		threshold: threshold,
		now:       time.Now,
	}
}

// Start runs the scan loop until the context is cancelled.
func (m *StaleAttemptMonitor) Start(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	m.logger.Info("stale attempt monitor started",
		slog.Duration("interval", m.interval),
		slog.Duration("threshold", m.threshold),
	)

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("stale attempt monitor stopped")
			return
		case <-ticker.C:
			m.scan(ctx)
		}
	}
}

func (m *StaleAttemptMonitor) scan(ctx context.Context) {
	pending, err := m.tenants.ListByStatus(ctx, domain.StatusPending)
	if err != nil {
		m.logger.Error("stale scan failed", slog.String("error", err.Error()))
		return
	}

	cutoff := m.now().Add(-m.threshold)
	stuck := 0
	for _, tenant := range pending {
		if tenant.CreatedAt.After(cutoff) {
			continue
		}
		stuck++
		m.logger.Warn("tenant stuck in pending",
			slog.String("tenant_id", tenant.ID),
			slog.String("company", tenant.CompanyName),
			slog.Time("created_at", tenant.CreatedAt),
			slog.Duration("age", m.now().Sub(tenant.CreatedAt)),
		)
	}
	metrics.SetStuckAttempts(stuck)

	// Refresh the per-status gauges while we are here.
	for _, status := range []domain.Status{
		domain.StatusPending,
		domain.StatusActive,
		domain.StatusInactive,
		domain.StatusFailed,
		domain.StatusSchemaFailed,
		domain.StatusSeedFailed,
	} {
		tenants, err := m.tenants.ListByStatus(ctx, status)
		if err != nil {
			continue
		}
		metrics.SetTenantCount(string(status), len(tenants))
	}
}

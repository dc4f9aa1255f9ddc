package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tenantplane_http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tenantplane_http_request_duration_seconds",
		Help:    "Duration of HTTP requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	provisionDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tenantplane_provision_duration_seconds",
		Help:    "Duration of tenant provisioning attempts",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
	}, []string{"result"})

	provisionStepFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tenantplane_provision_step_failures_total",
		Help: "Count of provisioning step failures by step",
	}, []string{"step"})

	resolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tenantplane_resolutions_total",
		Help: "Count of identity resolution lookups by kind and result",
	}, []string{"kind", "result"})

	resolutionCache = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tenantplane_resolution_cache_total",
		Help: "Resolution cache hits and misses",
	}, []string{"result"})

	tenantsByStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "tenantplane_tenants",
		Help: "Number of tenants per lifecycle status",
	}, []string{"status"})

	stuckAttempts = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "tenantplane_stuck_provisioning_attempts",
		Help: "Tenants sitting in pending beyond the stale threshold",
	})

	recoveryOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "tenantplane_recovery_operations_total",
		Help: "Count of recovery operations by kind and result",
	}, []string{"kind", "result"})
)

// ObserveHTTPRequest records an HTTP request metric
func ObserveHTTPRequest(method, path, status string, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, path, status).Inc()
	httpRequestDuration.WithLabelValues(method, path, status).Observe(duration.Seconds())
}

// ObserveProvision records the duration of a provisioning attempt with a result label.
func ObserveProvision(result string, duration time.Duration) {
	provisionDuration.WithLabelValues(result).Observe(duration.Seconds())
}

// ObserveStepFailure increments the failure counter for a provisioning step.
func ObserveStepFailure(step string) {
	provisionStepFailures.WithLabelValues(step).Inc()
}

// ObserveResolution records a resolution lookup by kind (company, email, id).
func ObserveResolution(kind, result string) {
	resolutions.WithLabelValues(kind, result).Inc()
}

// ObserveCacheHit and ObserveCacheMiss track resolution cache effectiveness.
func ObserveCacheHit()  { resolutionCache.WithLabelValues("hit").Inc() }
func ObserveCacheMiss() { resolutionCache.WithLabelValues("miss").Inc() }

// SetTenantCount sets the gauge for one lifecycle status.
func SetTenantCount(status string, count int) {
	if count < 0 {
		count = 0
	}
	tenantsByStatus.WithLabelValues(status).Set(float64(count))
}

// SetStuckAttempts sets the stale pending gauge.
func SetStuckAttempts(count int) {
	if count < 0 {
		count = 0
	}
	stuckAttempts.Set(float64(count))
}

// ObserveRecovery records a recovery operation (schema_reapply, admin_reseed,
// reseed_stuck).
func ObserveRecovery(kind, result string) {
	recoveryOperations.WithLabelValues(kind, result).Inc()
}

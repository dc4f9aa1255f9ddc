// Package cache caches resolution results so login routers do not hit the
// control-plane database on every request.
package cache

import (
	"context"
	"strings"
	"time"

	"github.com/yourorg/tenantplane/internal/domain"
)

// ResolutionCache stores connection info keyed by the lookup that produced
// it. Implementations are best-effort: a miss or a Set failure never blocks
// resolution, it just costs a database round trip.
type ResolutionCache interface {
	Get(ctx context.Context, key string) (*domain.ConnectionInfo, bool)
	Set(ctx context.Context, key string, info *domain.ConnectionInfo, ttl time.Duration)
	Delete(ctx context.Context, keys ...string)
}

func CompanyKey(name string) string { return "resolve:company:" + normalize(name) }
func EmailKey(email string) string  { return "resolve:email:" + normalize(email) }
func IDKey(id string) string        { return "resolve:id:" + id }

// TenantKeys returns every cache key a tenant's resolution can live under.
// Used for invalidation when a tenant changes status or is deleted.
func TenantKeys(t *domain.Tenant) []string {
	return []string{
		CompanyKey(t.CompanyName),
		EmailKey(t.AdminEmail),
		IDKey(t.ID),
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

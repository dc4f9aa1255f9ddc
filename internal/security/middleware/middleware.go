package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/yourorg/tenantplane/internal/security/audit"
	"github.com/yourorg/tenantplane/internal/security/auth"
	"github.com/yourorg/tenantplane/internal/security/ratelimit"
)

type OperatorContextKey struct{}
type ClaimsContextKey struct{}

// isPublic reports whether a path is readable without operator credentials.
// Resolution lookups serve tenant login flows and stay open; every mutating
// endpoint requires a token.
func isPublic(path string) bool {
	return path == "/healthz" || path == "/readyz" || path == "/metrics" ||
		strings.HasPrefix(path, "/api/resolve/")
}

func JWTMiddleware(tm *auth.TokenManager, auditLog *audit.Logger, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isPublic(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				auditLog.LogDenied(r.Context(), "", "missing auth header")
				http.Error(w, `{"error":"missing auth"}`, http.StatusUnauthorized)
				return
			}

			tokenString, err := auth.ExtractToken(authHeader)
			if err != nil {
				auditLog.LogDenied(r.Context(), "", "malformed auth header")
				http.Error(w, `{"error":"invalid auth"}`, http.StatusUnauthorized)
				return
			}

			claims, err := tm.ValidateToken(tokenString)
			if err != nil {
				log.Debug("token rejected", slog.String("error", err.Error()))
				auditLog.LogDenied(r.Context(), "", "invalid token")
				http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsContextKey{}, claims)
			ctx = context.WithValue(ctx, OperatorContextKey{}, claims.OperatorID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RateLimitMiddleware(limiter *ratelimit.Limiter, log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/healthz" || r.URL.Path == "/readyz" || r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			key := GetOperatorFromContext(r.Context())
			if key == "" {
				key = clientAddr(r)
			}

			if !limiter.Allow(key) {
				log.Warn("rate limit exceeded", slog.String("key", key), slog.String("path", r.URL.Path))
				http.Error(w, `{"error":"rate limit exceeded"}`, http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func AuditMiddleware(auditLog *audit.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			operatorID := GetOperatorFromContext(r.Context())

			switch {
			case r.Method == http.MethodPost && r.URL.Path == "/api/tenants":
				auditLog.LogAction(r.Context(), operatorID, "provision", "tenant", "", "initiated", "")
			case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/api/tenants/"):
				auditLog.LogAction(r.Context(), operatorID, "delete", "tenant", tenantPathID(r.URL.Path), "initiated", "")
			case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/schema/reapply"):
				auditLog.LogAction(r.Context(), operatorID, "schema_reapply", "tenant", tenantPathID(r.URL.Path), "initiated", "")
			case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/admin/reseed"):
				auditLog.LogAction(r.Context(), operatorID, "admin_reseed", "tenant", tenantPathID(r.URL.Path), "initiated", "")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// tenantPathID extracts the tenant id segment from a /api/tenants/... path.
// The middleware runs before the mux, so r.PathValue is not populated yet.
func tenantPathID(path string) string {
	rest := strings.TrimPrefix(path, "/api/tenants/")
	if rest == path {
		return ""
	}
	if i := strings.IndexByte(rest, '/'); i >= 0 {
		rest = rest[:i]
	}
	return rest
}

func GetOperatorFromContext(ctx context.Context) string {
	if v, ok := ctx.Value(OperatorContextKey{}).(string); ok {
		return v
	}
	return ""
}

func GetClaimsFromContext(ctx context.Context) *auth.Claims {
	if c, ok := ctx.Value(ClaimsContextKey{}).(*auth.Claims); ok {
		return c
	}
	return nil
}

func clientAddr(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		if i := strings.IndexByte(fwd, ','); i >= 0 {
			return strings.TrimSpace(fwd[:i])
		}
		return strings.TrimSpace(fwd)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

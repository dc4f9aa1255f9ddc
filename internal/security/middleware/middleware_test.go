package middleware

import (
	"bytes"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/yourorg/tenantplane/internal/security/audit"
)

func TestTenantPathID(t *testing.T) {
	cases := []struct {
		path string
		want string
	}{
		{"/api/tenants/t-123", "t-123"},
		{"/api/tenants/t-123/schema/reapply", "t-123"},
		{"/api/tenants/t-123/admin/reseed", "t-123"},
		{"/api/tenants", ""},
		{"/api/resolve/id/t-123", ""},
	}
	for _, tc := range cases {
		if got := tenantPathID(tc.path); got != tc.want {
			t.Errorf("tenantPathID(%q) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

func TestAuditMiddlewareRecordsTenantID(t *testing.T) {
	var buf bytes.Buffer
	auditLog := audit.NewLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	next := http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	handler := AuditMiddleware(auditLog)(next)

	req := httptest.NewRequest(http.MethodDelete, "/api/tenants/t-123", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !strings.Contains(buf.String(), `"resource_id":"t-123"`) {
		t.Errorf("initiated audit record missing tenant id: %s", buf.String())
	}

	buf.Reset()
	req = httptest.NewRequest(http.MethodPost, "/api/tenants/t-456/schema/reapply", nil)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !strings.Contains(buf.String(), `"resource_id":"t-456"`) {
		t.Errorf("reapply audit record missing tenant id: %s", buf.String())
	}
}

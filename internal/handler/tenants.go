package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/yourorg/tenantplane/internal/domain"
	"github.com/yourorg/tenantplane/internal/security/middleware"
	"github.com/yourorg/tenantplane/internal/service"
)

// CreateTenantRequest is the provisioning request body.
type CreateTenantRequest struct {
	Name        string `json:"name"`
	CompanyName string `json:"companyName"`
	AdminEmail  string `json:"adminEmail"`
}

// TenantResponse is the registry view of a tenant. Descriptor credentials
// are only exposed through resolution, never through listing.
type TenantResponse struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	CompanyName  string    `json:"companyName"`
	AdminEmail   string    `json:"adminEmail"`
	DatabaseName string    `json:"databaseName"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"createdAt"`
}

func tenantResponse(t *domain.Tenant) TenantResponse {
	return TenantResponse{
		ID:           t.ID,
		Name:         t.Name,
		CompanyName:  t.CompanyName,
		AdminEmail:   t.AdminEmail,
		DatabaseName: t.DB.Database,
		Status:       string(t.Status),
		CreatedAt:    t.CreatedAt,
	}
}

// operatorContext copies the authenticated operator into the service
// context so mutations are attributable in the audit trail.
func operatorContext(r *http.Request) *http.Request {
	if op := middleware.GetOperatorFromContext(r.Context()); op != "" {
		return r.WithContext(service.WithOperator(r.Context(), op))
	}
	return r
}

// CreateTenantHandler handles POST /api/tenants.
type CreateTenantHandler struct {
	provision *service.ProvisionService
	logger    *slog.Logger
}

func NewCreateTenantHandler(provision *service.ProvisionService, logger *slog.Logger) *CreateTenantHandler {
	return &CreateTenantHandler{provision: provision, logger: logger}
}

func (h *CreateTenantHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r = operatorContext(r)

	var req CreateTenantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("failed to decode request", slog.String("error", err.Error()))
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	result, err := h.provision.CreateTenant(r.Context(), service.CreateTenantInput{
		Name:        req.Name,
		CompanyName: req.CompanyName,
		AdminEmail:  req.AdminEmail,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// ListTenantsHandler handles GET /api/tenants.
type ListTenantsHandler struct {
	provision *service.ProvisionService
	logger    *slog.Logger
}

func NewListTenantsHandler(provision *service.ProvisionService, logger *slog.Logger) *ListTenantsHandler {
	return &ListTenantsHandler{provision: provision, logger: logger}
}

func (h *ListTenantsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	offset := queryInt(r, "offset", 0)
	limit := queryInt(r, "limit", 100)

	tenants, err := h.provision.ListTenants(r.Context(), offset, limit)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	out := make([]TenantResponse, 0, len(tenants))
	for _, t := range tenants {
		out = append(out, tenantResponse(t))
	}
	writeJSON(w, http.StatusOK, out)
}

// GetTenantHandler handles GET /api/tenants/{id}.
type GetTenantHandler struct {
	provision *service.ProvisionService
	logger    *slog.Logger
}

func NewGetTenantHandler(provision *service.ProvisionService, logger *slog.Logger) *GetTenantHandler {
	return &GetTenantHandler{provision: provision, logger: logger}
}

func (h *GetTenantHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "tenant id required"})
		return
	}

	tenant, err := h.provision.GetTenant(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tenantResponse(tenant))
}

func queryInt(r *http.Request, key string, fallback int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}

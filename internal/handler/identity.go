package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/yourorg/tenantplane/internal/service"
)

// IdentityRequest points a login email at a tenant.
type IdentityRequest struct {
	Email    string `json:"email"`
	TenantID string `json:"tenantId"`
}

// IdentityHandler handles POST /api/identities.
type IdentityHandler struct {
	provision *service.ProvisionService
	logger    *slog.Logger
}

func NewIdentityHandler(provision *service.ProvisionService, logger *slog.Logger) *IdentityHandler {
	return &IdentityHandler{provision: provision, logger: logger}
}

func (h *IdentityHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r = operatorContext(r)

	var req IdentityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}
	if req.Email == "" || req.TenantID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "email and tenantId are required"})
		return
	}

	outcome, err := h.provision.RegisterIdentity(r.Context(), req.Email, req.TenantID)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	status := http.StatusOK
	if outcome == "created" {
		status = http.StatusCreated
	}
	writeJSON(w, status, map[string]string{
		"email":    req.Email,
		"tenantId": req.TenantID,
		"outcome":  string(outcome),
	})
}

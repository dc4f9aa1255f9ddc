package handler

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	"github.com/yourorg/tenantplane/internal/domain"
	"github.com/yourorg/tenantplane/internal/service"
)

// StatusRequest asks for an operator status change.
type StatusRequest struct {
	Status string `json:"status"`
}

// StatusHandler handles PUT /api/tenants/{id}/status. Only the operator
// toggle between active and inactive is accepted here; provisioning
// statuses belong to the pipeline.
type StatusHandler struct {
	provision *service.ProvisionService
	logger    *slog.Logger
}

func NewStatusHandler(provision *service.ProvisionService, logger *slog.Logger) *StatusHandler {
	return &StatusHandler{provision: provision, logger: logger}
}

func (h *StatusHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r = operatorContext(r)

	id := r.PathValue("id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "tenant id required"})
		return
	}

	// an empty body toggles between active and inactive
	var req StatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body"})
		return
	}

	tenant, err := h.provision.SetTenantStatus(r.Context(), id, domain.Status(req.Status))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tenantResponse(tenant))
}

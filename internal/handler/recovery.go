package handler

import (
	"log/slog"
	"net/http"

	"github.com/yourorg/tenantplane/internal/service"
)

// ReapplySchemaHandler handles POST /api/tenants/{id}/schema/reapply.
type ReapplySchemaHandler struct {
	provision *service.ProvisionService
	logger    *slog.Logger
}

func NewReapplySchemaHandler(provision *service.ProvisionService, logger *slog.Logger) *ReapplySchemaHandler {
	return &ReapplySchemaHandler{provision: provision, logger: logger}
}

func (h *ReapplySchemaHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r = operatorContext(r)

	id := r.PathValue("id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "tenant id required"})
		return
	}

	if err := h.provision.ReapplySchema(r.Context(), id); err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"tenantId": id, "schema": "applied"})
}

// ReseedAdminHandler handles POST /api/tenants/{id}/admin/reseed.
type ReseedAdminHandler struct {
	provision *service.ProvisionService
	logger    *slog.Logger
}

func NewReseedAdminHandler(provision *service.ProvisionService, logger *slog.Logger) *ReseedAdminHandler {
	return &ReseedAdminHandler{provision: provision, logger: logger}
}

func (h *ReseedAdminHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r = operatorContext(r)

	id := r.PathValue("id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "tenant id required"})
		return
	}

	result, err := h.provision.ReseedAdmin(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// ReseedStuckHandler handles POST /api/recovery/reseed-stuck, sweeping every
// tenant stranded mid-provisioning.
type ReseedStuckHandler struct {
	provision *service.ProvisionService
	logger    *slog.Logger
}

func NewReseedStuckHandler(provision *service.ProvisionService, logger *slog.Logger) *ReseedStuckHandler {
	return &ReseedStuckHandler{provision: provision, logger: logger}
}

func (h *ReseedStuckHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r = operatorContext(r)

	results, err := h.provision.ReseedStuck(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, results)
}

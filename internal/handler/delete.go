package handler

import (
	"log/slog"
	"net/http"

	"github.com/yourorg/tenantplane/internal/service"
)

// DeleteHandler handles DELETE /api/tenants/{id}. Deregistration removes
// the registry row only; the response names the orphaned database so the
// operator can drop it by hand.
type DeleteHandler struct {
	provision *service.ProvisionService
	logger    *slog.Logger
}

func NewDeleteHandler(provision *service.ProvisionService, logger *slog.Logger) *DeleteHandler {
	return &DeleteHandler{provision: provision, logger: logger}
}

func (h *DeleteHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	r = operatorContext(r)

	id := r.PathValue("id")
	if id == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "tenant id required"})
		return
	}

	dbName, err := h.provision.DeleteTenant(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"deleted":        id,
		"orphanDatabase": dbName,
	})
}

package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	domerrors "github.com/yourorg/tenantplane/internal/domain/errors"
)

type errorResponse struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// writeError maps the typed error taxonomy onto HTTP statuses. Provisioning
// step failures carry a stage so callers know which part to recover.
func writeError(w http.ResponseWriter, log *slog.Logger, err error) {
	var (
		validation *domerrors.ValidationError
		notFound   *domerrors.NotFoundError
		conflict   *domerrors.ConflictError
		provision  *domerrors.ProvisionError
		schema     *domerrors.SchemaError
		seed       *domerrors.SeedError
		notReady   *domerrors.SchemaNotReadyError
	)

	switch {
	case errors.As(err, &validation):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: validation.Error()})
	case errors.As(err, &notFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: notFound.Error()})
	case errors.As(err, &conflict):
		writeJSON(w, http.StatusConflict, errorResponse{Error: conflict.Error()})
	case errors.Is(err, domerrors.ErrEngineUnavailable):
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "database engine unavailable", Stage: "create_database"})
	case errors.As(err, &provision):
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: provision.Error(), Stage: "create_database"})
	case errors.As(err, &schema):
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: schema.Error(), Stage: "apply_schema"})
	case errors.As(err, &notReady):
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: notReady.Error(), Stage: "seed_admin"})
	case errors.As(err, &seed):
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: seed.Error(), Stage: "seed_admin"})
	default:
		log.Error("unhandled error", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/yourorg/tenantplane/internal/domain"
	"github.com/yourorg/tenantplane/internal/service"
)

// ResolveHandler answers login-router lookups. The mux routes three
// patterns to one handler; the path parameter names the lookup kind.
//
//	GET /api/resolve/company/{name}
//	GET /api/resolve/email/{email}
//	GET /api/resolve/id/{id}
type ResolveHandler struct {
	resolve *service.ResolveService
	logger  *slog.Logger
	lookup  func(ctx context.Context, svc *service.ResolveService, key string) (*domain.ConnectionInfo, error)
	param   string
}

func NewResolveCompanyHandler(resolve *service.ResolveService, logger *slog.Logger) *ResolveHandler {
	return &ResolveHandler{
		resolve: resolve,
		logger:  logger,
		param:   "name",
		lookup: func(ctx context.Context, svc *service.ResolveService, key string) (*domain.ConnectionInfo, error) {
			return svc.ByCompanyName(ctx, key)
		},
	}
}

func NewResolveEmailHandler(resolve *service.ResolveService, logger *slog.Logger) *ResolveHandler {
	return &ResolveHandler{
		resolve: resolve,
		logger:  logger,
		param:   "email",
		lookup: func(ctx context.Context, svc *service.ResolveService, key string) (*domain.ConnectionInfo, error) {
			return svc.ByEmail(ctx, key)
		},
	}
}

func NewResolveIDHandler(resolve *service.ResolveService, logger *slog.Logger) *ResolveHandler {
	return &ResolveHandler{
		resolve: resolve,
		logger:  logger,
		param:   "id",
		lookup: func(ctx context.Context, svc *service.ResolveService, key string) (*domain.ConnectionInfo, error) {
			return svc.ByID(ctx, key)
		},
	}
}

func (h *ResolveHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue(h.param)
	if key == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: h.param + " required"})
		return
	}

	info, err := h.lookup(r.Context(), h.resolve, key)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, info)
}

package handler

import (
	"context"
	"net/http"
	"time"
)

// Pinger is anything whose liveness gates readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingerFunc adapts a plain function to Pinger.
type PingerFunc func(ctx context.Context) error

func (f PingerFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthzHandler reports process liveness.
type HealthzHandler struct{}

func (HealthzHandler) ServeHTTP(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// ReadyzHandler reports readiness: the control-plane store must answer, and
// any optional dependency (such as the redis cache) registered here too.
type ReadyzHandler struct {
	deps map[string]Pinger
}

func NewReadyzHandler() *ReadyzHandler {
	return &ReadyzHandler{deps: map[string]Pinger{}}
}

// Register adds a named dependency to the readiness check.
func (h *ReadyzHandler) Register(name string, dep Pinger) {
	h.deps[name] = dep
}

func (h *ReadyzHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	for name, dep := range h.deps {
		if err := dep.Ping(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte(name + " not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}

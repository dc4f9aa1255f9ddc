// Package audit emits structured audit records for control-plane mutations.
package audit

import (
	"context"
	"log/slog"
	"time"
)

// RequestIDKey carries the request id assigned by the HTTP middleware.
type RequestIDKey struct{}

type Logger struct {
	logger *slog.Logger
}

func NewLogger(logger *slog.Logger) *Logger {
	return &Logger{logger: logger}
}

func (al *Logger) LogAction(ctx context.Context, operatorID, action, resource, resourceID, status, details string) {
	requestID := ""
	if reqID, ok := ctx.Value(RequestIDKey{}).(string); ok {
		requestID = reqID
	}

	al.logger.Info("audit",
		slog.String("action", action),
		slog.String("resource", resource),
		slog.String("resource_id", resourceID),
		slog.String("operator_id", operatorID),
		slog.String("status", status),
		slog.String("details", details),
		slog.String("request_id", requestID),
		slog.Time("timestamp", time.Now()),
	)
}

func (al *Logger) LogProvisioning(ctx context.Context, operatorID, tenantID, status, details string) {
	al.LogAction(ctx, operatorID, "provision", "tenant", tenantID, status, details)
}

func (al *Logger) LogStatusChange(ctx context.Context, operatorID, tenantID, from, to string) {
	al.LogAction(ctx, operatorID, "status_change", "tenant", tenantID, to, "from="+from)
}

func (al *Logger) LogRepoint(ctx context.Context, operatorID, email, fromTenant, toTenant string) {
	al.LogAction(ctx, operatorID, "identity_repoint", "identity", email, "repointed", "from="+fromTenant+" to="+toTenant)
}

func (al *Logger) LogDeletion(ctx context.Context, operatorID, tenantID, status, details string) {
	al.LogAction(ctx, operatorID, "delete", "tenant", tenantID, status, details)
}

func (al *Logger) LogDenied(ctx context.Context, operatorID, reason string) {
	al.LogAction(ctx, operatorID, "access_denied", "api", "", "denied", reason)
}

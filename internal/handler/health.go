package handler

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

const healthCheckTimeout = 2 * time.Second

// Pinger reports whether a dependency is reachable. *sql.DB satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler reports service liveness and database reachability
type HealthHandler struct {
	DB     Pinger
	Logger *zap.Logger

	ErrorHandler   *ErrorHandler
	ResponseHelper *ResponseHelper
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db Pinger, serviceName string, logger *zap.Logger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{
		DB:             db,
		Logger:         logger,
		ErrorHandler:   NewErrorHandler(logger),
		ResponseHelper: NewResponseHelper(serviceName),
	}
}

// HealthHandler answers 200 when the database responds and 503 otherwise
func (h *HealthHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ResponseHelper.CreateRequestContext(r, healthCheckTimeout)
	defer cancel()

	status, code := "healthy", http.StatusOK
	checks := map[string]string{"database": "ok"}

	if err := h.DB.PingContext(ctx); err != nil {
		h.Logger.Warn("Health check failed", zap.Error(err))
		status, code = "unhealthy", http.StatusServiceUnavailable
		checks["database"] = "unreachable"
	}

	h.ErrorHandler.SendJSONResponse(w, code, h.ResponseHelper.CreateHealthCheckData(status, checks))
}

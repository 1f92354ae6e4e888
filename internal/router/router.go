package router

import (
	"net/http"

	"device-fleet-api/internal/config"
	"device-fleet-api/internal/handler"
	"device-fleet-api/internal/metrics"
	"device-fleet-api/internal/middleware"
	apperrors "device-fleet-api/pkg/errors"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Handlers groups the endpoint implementations the router dispatches to
type Handlers struct {
	Telemetry handler.TelemetryHandlerInterface
	Admin     handler.AdminHandlerInterface
	Health    handler.HealthHandlerInterface
}

// NewRouter builds the HTTP surface. The returned handler assigns request IDs
// and writes access logs before any routing happens, so unmatched requests
// are logged too.
func NewRouter(h Handlers, cfg *config.Config, m *metrics.Metrics, logger *zap.Logger) http.Handler {
	r := mux.NewRouter()

	securityMW := middleware.NewSecurityMiddleware(&cfg.Security)
	loggingMW := middleware.NewLoggingMiddleware(logger)
	errorHandler := handler.NewErrorHandler(logger)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		errorHandler.HandleError(w, req, apperrors.NotFoundError("route"))
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		errorHandler.SendErrorResponse(w, http.StatusMethodNotAllowed, "Method not allowed", string(apperrors.ErrorCodeBadRequest), nil)
	})

	r.Use(m.Middleware)
	r.Use(securityMW.SecurityHeaders)
	r.Use(securityMW.CORS)
	r.Use(securityMW.RequestTimeout)
	r.Use(middleware.MaxBody(cfg.Server.MaxBodyBytes))

	// Device-facing endpoints
	r.HandleFunc("/", h.Telemetry.IndexHandler).Methods(http.MethodGet)
	r.HandleFunc("/stateReport/", h.Telemetry.StateReportHandler).Methods(http.MethodPost, http.MethodOptions)
	r.HandleFunc("/deviceState/{serial_number}/", h.Telemetry.DeviceStateHandler).Methods(http.MethodGet)
	r.HandleFunc("/visualize/{serial_number}/", h.Telemetry.VisualizeHandler).Methods(http.MethodGet)

	// Administrative surface, rate limited per client
	adm := r.PathPrefix("/admin").Subrouter()
	adm.Use(securityMW.RateLimit)
	adm.HandleFunc("/", h.Admin.IndexHandler).Methods(http.MethodGet)
	adm.HandleFunc("/{entity}/", h.Admin.ListHandler).Methods(http.MethodGet)
	adm.HandleFunc("/{entity}/", h.Admin.CreateHandler).Methods(http.MethodPost)
	adm.HandleFunc("/{entity}/{id:[0-9]+}/", h.Admin.GetHandler).Methods(http.MethodGet)
	adm.HandleFunc("/{entity}/{id:[0-9]+}/", h.Admin.UpdateHandler).Methods(http.MethodPut)
	adm.HandleFunc("/{entity}/{id:[0-9]+}/", h.Admin.DeleteHandler).Methods(http.MethodDelete)

	// Monitoring
	r.HandleFunc("/health", h.Health.HealthHandler).Methods(http.MethodGet)
	if cfg.Metrics.Enabled {
		r.Handle(cfg.Metrics.Path, m.Handler()).Methods(http.MethodGet)
	}

	return middleware.RequestID(logger)(securityMW.TrustedProxy(loggingMW.LogRequests(r)))
}

package handler

import (
	"net/http"
)

// TelemetryHandlerInterface defines the device-facing endpoints
type TelemetryHandlerInterface interface {
	IndexHandler(w http.ResponseWriter, r *http.Request)
	StateReportHandler(w http.ResponseWriter, r *http.Request)
	DeviceStateHandler(w http.ResponseWriter, r *http.Request)
	VisualizeHandler(w http.ResponseWriter, r *http.Request)
}

// AdminHandlerInterface defines the administrative CRUD endpoints
type AdminHandlerInterface interface {
	IndexHandler(w http.ResponseWriter, r *http.Request)
	ListHandler(w http.ResponseWriter, r *http.Request)
	GetHandler(w http.ResponseWriter, r *http.Request)
	CreateHandler(w http.ResponseWriter, r *http.Request)
	UpdateHandler(w http.ResponseWriter, r *http.Request)
	DeleteHandler(w http.ResponseWriter, r *http.Request)
}

// HealthHandlerInterface defines the monitoring endpoint
type HealthHandlerInterface interface {
	HealthHandler(w http.ResponseWriter, r *http.Request)
}

// Ensure the handlers implement their interfaces at compile time
var (
	_ TelemetryHandlerInterface = (*TelemetryHandler)(nil)
	_ AdminHandlerInterface     = (*AdminHandler)(nil)
	_ HealthHandlerInterface    = (*HealthHandler)(nil)
)

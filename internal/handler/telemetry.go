package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"net/http"
	"strings"
	"time"

	"device-fleet-api/internal/model"
	"device-fleet-api/internal/service"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// Timeouts for the device-facing endpoints
const (
	DefaultTimeout     = 10 * time.Second
	LongRunningTimeout = 15 * time.Second
)

// WelcomeMessage is the body of GET /
const WelcomeMessage = "Hello, world. Welcome to the device fleet service!"

// TelemetryService is the part of the service layer the device-facing
// endpoints depend on.
type TelemetryService interface {
	Ingest(ctx context.Context, serial string, cpu, memory int) (*model.DeviceData, error)
	LatestBySerial(ctx context.Context, serial string) (*service.DeviceState, error)
}

// StateReportRequest is the body of POST /stateReport/. Pointer fields tell
// a missing value apart from zero.
type StateReportRequest struct {
	SerialNumber *string `json:"serial_number"`
	CPU          *int    `json:"cpu"`
	Memory       *int    `json:"memory"`
}

// Validate reports missing fields keyed by JSON name
func (req *StateReportRequest) Validate() map[string]string {
	errs := make(map[string]string)
	if req.SerialNumber == nil || strings.TrimSpace(*req.SerialNumber) == "" {
		errs["serial_number"] = "serial_number is required"
	}
	if req.CPU == nil {
		errs["cpu"] = "cpu is required"
	}
	if req.Memory == nil {
		errs["memory"] = "memory is required"
	}
	return errs
}

// TelemetryHandler serves the endpoints devices and dashboards talk to
type TelemetryHandler struct {
	Service TelemetryService
	Logger  *zap.Logger

	ErrorHandler   *ErrorHandler
	ResponseHelper *ResponseHelper
}

// NewTelemetryHandler creates a new TelemetryHandler
func NewTelemetryHandler(svc TelemetryService, serviceName string, logger *zap.Logger) *TelemetryHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TelemetryHandler{
		Service:        svc,
		Logger:         logger,
		ErrorHandler:   NewErrorHandler(logger),
		ResponseHelper: NewResponseHelper(serviceName),
	}
}

// IndexHandler answers GET / with a plain-text greeting
func (h *TelemetryHandler) IndexHandler(w http.ResponseWriter, r *http.Request) {
	h.ErrorHandler.SendTextResponse(w, http.StatusOK, WelcomeMessage)
}

// StateReportHandler records one telemetry sample and answers 201 "Accepted"
func (h *TelemetryHandler) StateReportHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ResponseHelper.CreateRequestContext(r, DefaultTimeout)
	defer cancel()

	var req StateReportRequest
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(&req); err != nil {
		h.ErrorHandler.HandleJSONDecodeError(w, r, err)
		return
	}

	if h.ErrorHandler.HandleValidationErrors(w, r, req.Validate()) {
		return
	}

	if _, err := h.Service.Ingest(ctx, *req.SerialNumber, *req.CPU, *req.Memory); err != nil {
		h.ErrorHandler.HandleError(w, r, err)
		return
	}

	h.ErrorHandler.SendTextResponse(w, http.StatusCreated, "Accepted")
}

// DeviceStateHandler returns the latest sample of a device as plain text.
// The path segment is the device's serial number.
func (h *TelemetryHandler) DeviceStateHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ResponseHelper.CreateRequestContext(r, DefaultTimeout)
	defer cancel()

	serial := mux.Vars(r)["serial_number"]
	state, err := h.Service.LatestBySerial(ctx, serial)
	if err != nil {
		h.ErrorHandler.HandleError(w, r, err)
		return
	}

	h.ErrorHandler.SendTextResponse(w, http.StatusOK,
		fmt.Sprintf("Latest state for device %s: %s", state.Device.SerialNumber, state.Sample))
}

var visualizeTemplate = template.Must(template.New("visualize").Parse(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Device.SerialNumber}}</title>
<style>
body { font-family: sans-serif; margin: 2rem; }
.bar { background: #ddd; width: 20rem; height: 1.2rem; margin-bottom: 1rem; }
.fill { background: #3b7dd8; height: 100%; }
</style>
</head>
<body>
<h1>Device {{.Device.SerialNumber}}</h1>
<p>Reported at {{.Sample.RecordedAt.Format "2006-01-02 15:04:05 MST"}}</p>
<h2>CPU {{.Sample.CPU}}%</h2>
<div class="bar"><div class="fill" style="width: {{.Sample.CPU}}%"></div></div>
<h2>Memory {{.Sample.Memory}}%</h2>
<div class="bar"><div class="fill" style="width: {{.Sample.Memory}}%"></div></div>
</body>
</html>
`))

// VisualizeHandler renders the latest sample of a device as an HTML page
func (h *TelemetryHandler) VisualizeHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.ResponseHelper.CreateRequestContext(r, DefaultTimeout)
	defer cancel()

	state, err := h.Service.LatestBySerial(ctx, mux.Vars(r)["serial_number"])
	if err != nil {
		h.ErrorHandler.HandleError(w, r, err)
		return
	}

	var buf bytes.Buffer
	if err := visualizeTemplate.Execute(&buf, state); err != nil {
		h.ErrorHandler.HandleError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	buf.WriteTo(w)
}

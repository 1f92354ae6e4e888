package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"device-fleet-api/internal/model"
	"device-fleet-api/internal/service"
	apperrors "device-fleet-api/pkg/errors"

	"github.com/gorilla/mux"
)

// MockTelemetryService is a mock implementation of TelemetryService
type MockTelemetryService struct {
	IngestFunc         func(ctx context.Context, serial string, cpu, memory int) (*model.DeviceData, error)
	LatestBySerialFunc func(ctx context.Context, serial string) (*service.DeviceState, error)
}

func (m *MockTelemetryService) Ingest(ctx context.Context, serial string, cpu, memory int) (*model.DeviceData, error) {
	if m.IngestFunc != nil {
		return m.IngestFunc(ctx, serial, cpu, memory)
	}
	return &model.DeviceData{CPU: cpu, Memory: memory}, nil
}

func (m *MockTelemetryService) LatestBySerial(ctx context.Context, serial string) (*service.DeviceState, error) {
	if m.LatestBySerialFunc != nil {
		return m.LatestBySerialFunc(ctx, serial)
	}
	return nil, apperrors.NotFoundError("device")
}

func createTestTelemetryHandler() (*TelemetryHandler, *MockTelemetryService) {
	mockService := &MockTelemetryService{}
	return NewTelemetryHandler(mockService, "device-fleet-api", nil), mockService
}

func createTestState() *service.DeviceState {
	return &service.DeviceState{
		Device: &model.Device{ID: 7, SerialNumber: "SN-001"},
		Sample: &model.DeviceData{
			ID:         3,
			DeviceID:   7,
			RecordedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
			CPU:        42,
			Memory:     77,
		},
	}
}

func serialRequest(method, url, serial string) *http.Request {
	req, _ := http.NewRequest(method, url, nil)
	return mux.SetURLVars(req, map[string]string{"serial_number": serial})
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var response ErrorResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
		t.Fatalf("Failed to unmarshal error response: %v", err)
	}
	return response
}

func TestIndexHandler(t *testing.T) {
	handler, _ := createTestTelemetryHandler()

	req, _ := http.NewRequest("GET", "/", nil)
	rr := httptest.NewRecorder()
	handler.IndexHandler(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, rr.Code)
	}
	if rr.Body.String() != WelcomeMessage {
		t.Errorf("Expected welcome message, got %q", rr.Body.String())
	}
	if !strings.HasPrefix(rr.Header().Get("Content-Type"), "text/plain") {
		t.Errorf("Expected plain text, got %s", rr.Header().Get("Content-Type"))
	}
}

func TestStateReportHandler_Success(t *testing.T) {
	handler, mockService := createTestTelemetryHandler()

	var gotSerial string
	var gotCPU, gotMemory int
	mockService.IngestFunc = func(ctx context.Context, serial string, cpu, memory int) (*model.DeviceData, error) {
		gotSerial, gotCPU, gotMemory = serial, cpu, memory
		return &model.DeviceData{ID: 1, CPU: cpu, Memory: memory}, nil
	}

	req, _ := http.NewRequest("POST", "/stateReport/",
		strings.NewReader(`{"serial_number": "SN-001", "cpu": 42, "memory": 77}`))
	rr := httptest.NewRecorder()
	handler.StateReportHandler(rr, req)

	if rr.Code != http.StatusCreated {
		t.Errorf("Expected status code %d, got %d", http.StatusCreated, rr.Code)
	}
	if rr.Body.String() != "Accepted" {
		t.Errorf("Expected body Accepted, got %q", rr.Body.String())
	}
	if gotSerial != "SN-001" || gotCPU != 42 || gotMemory != 77 {
		t.Errorf("Unexpected ingest arguments: %s %d %d", gotSerial, gotCPU, gotMemory)
	}
}

func TestStateReportHandler_InvalidJSON(t *testing.T) {
	handler, _ := createTestTelemetryHandler()

	req, _ := http.NewRequest("POST", "/stateReport/", strings.NewReader("invalid json"))
	rr := httptest.NewRecorder()
	handler.StateReportHandler(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status code %d, got %d", http.StatusBadRequest, rr.Code)
	}
	if response := decodeError(t, rr); response.Code != "INVALID_JSON" {
		t.Errorf("Expected INVALID_JSON, got %s", response.Code)
	}
}

func TestStateReportHandler_BodyTooLarge(t *testing.T) {
	handler, mockService := createTestTelemetryHandler()
	mockService.IngestFunc = func(ctx context.Context, serial string, cpu, memory int) (*model.DeviceData, error) {
		t.Error("Ingest must not be called for an oversized report")
		return nil, nil
	}

	body := `{"serial_number":"` + strings.Repeat("A", 2048) + `","cpu":50,"memory":50}`
	req, _ := http.NewRequest("POST", "/stateReport/", strings.NewReader(body))
	rr := httptest.NewRecorder()
	req.Body = http.MaxBytesReader(rr, req.Body, 1024)
	handler.StateReportHandler(rr, req)

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected status code %d, got %d", http.StatusRequestEntityTooLarge, rr.Code)
	}
	if response := decodeError(t, rr); response.Code != "PAYLOAD_TOO_LARGE" {
		t.Errorf("Expected PAYLOAD_TOO_LARGE, got %s", response.Code)
	}
}

func TestStateReportHandler_EmptyBody(t *testing.T) {
	handler, _ := createTestTelemetryHandler()

	req, _ := http.NewRequest("POST", "/stateReport/", strings.NewReader(""))
	rr := httptest.NewRecorder()
	handler.StateReportHandler(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status code %d, got %d", http.StatusBadRequest, rr.Code)
	}
	if response := decodeError(t, rr); response.Code != "BAD_REQUEST" {
		t.Errorf("Expected BAD_REQUEST, got %s", response.Code)
	}
}

func TestStateReportHandler_MissingFields(t *testing.T) {
	handler, mockService := createTestTelemetryHandler()
	mockService.IngestFunc = func(ctx context.Context, serial string, cpu, memory int) (*model.DeviceData, error) {
		t.Error("Ingest must not be called for an incomplete report")
		return nil, nil
	}

	req, _ := http.NewRequest("POST", "/stateReport/", strings.NewReader(`{"serial_number": "SN-001", "cpu": 0}`))
	rr := httptest.NewRecorder()
	handler.StateReportHandler(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status code %d, got %d", http.StatusBadRequest, rr.Code)
	}
	response := decodeError(t, rr)
	if response.Code != "VALIDATION_ERROR" {
		t.Errorf("Expected VALIDATION_ERROR, got %s", response.Code)
	}
	if _, ok := response.Details["memory"]; !ok {
		t.Errorf("Expected memory detail, got %v", response.Details)
	}
	if _, ok := response.Details["cpu"]; ok {
		t.Error("cpu was present and must not be reported missing")
	}
}

func TestStateReportHandler_ServiceErrors(t *testing.T) {
	tests := []struct {
		name         string
		err          error
		expectedCode int
		expectedErr  string
	}{
		{
			name:         "Unknown device",
			err:          apperrors.NotFoundError("device").WithDetail("serial_number", "SN-404"),
			expectedCode: http.StatusNotFound,
			expectedErr:  "NOT_FOUND",
		},
		{
			name:         "Out of range",
			err:          apperrors.ValidationErrorWithDetails("Validation failed", map[string]string{"cpu": "must be between 1 and 100"}),
			expectedCode: http.StatusBadRequest,
			expectedErr:  "VALIDATION_ERROR",
		},
		{
			name:         "Unexpected failure",
			err:          errors.New("connection reset"),
			expectedCode: http.StatusInternalServerError,
			expectedErr:  "INTERNAL_ERROR",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler, mockService := createTestTelemetryHandler()
			mockService.IngestFunc = func(ctx context.Context, serial string, cpu, memory int) (*model.DeviceData, error) {
				return nil, tt.err
			}

			body, _ := json.Marshal(map[string]interface{}{"serial_number": "SN-404", "cpu": 500, "memory": 1})
			req, _ := http.NewRequest("POST", "/stateReport/", bytes.NewReader(body))
			rr := httptest.NewRecorder()
			handler.StateReportHandler(rr, req)

			if rr.Code != tt.expectedCode {
				t.Errorf("Expected status code %d, got %d", tt.expectedCode, rr.Code)
			}
			if response := decodeError(t, rr); response.Code != tt.expectedErr {
				t.Errorf("Expected %s, got %s", tt.expectedErr, response.Code)
			}
		})
	}
}

func TestStateReportHandler_InternalErrorHidesCause(t *testing.T) {
	handler, mockService := createTestTelemetryHandler()
	mockService.IngestFunc = func(ctx context.Context, serial string, cpu, memory int) (*model.DeviceData, error) {
		return nil, apperrors.DatabaseError("Failed to create device data", errors.New("pq: password authentication failed"))
	}

	req, _ := http.NewRequest("POST", "/stateReport/", strings.NewReader(`{"serial_number": "SN-001", "cpu": 1, "memory": 1}`))
	rr := httptest.NewRecorder()
	handler.StateReportHandler(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("Expected status code %d, got %d", http.StatusInternalServerError, rr.Code)
	}
	if strings.Contains(rr.Body.String(), "password") {
		t.Errorf("Response leaks the cause: %s", rr.Body.String())
	}
}

func TestDeviceStateHandler_Success(t *testing.T) {
	handler, mockService := createTestTelemetryHandler()
	mockService.LatestBySerialFunc = func(ctx context.Context, serial string) (*service.DeviceState, error) {
		if serial != "SN-001" {
			t.Errorf("Expected serial SN-001, got %s", serial)
		}
		return createTestState(), nil
	}

	rr := httptest.NewRecorder()
	handler.DeviceStateHandler(rr, serialRequest("GET", "/deviceState/SN-001/", "SN-001"))

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, rr.Code)
	}
	expected := "Latest state for device SN-001: CPU: 42, Mem: 77"
	if rr.Body.String() != expected {
		t.Errorf("Expected %q, got %q", expected, rr.Body.String())
	}
}

func TestDeviceStateHandler_NotFound(t *testing.T) {
	handler, _ := createTestTelemetryHandler()

	rr := httptest.NewRecorder()
	handler.DeviceStateHandler(rr, serialRequest("GET", "/deviceState/SN-404/", "SN-404"))

	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status code %d, got %d", http.StatusNotFound, rr.Code)
	}
	if response := decodeError(t, rr); response.Code != "NOT_FOUND" {
		t.Errorf("Expected NOT_FOUND, got %s", response.Code)
	}
}

func TestVisualizeHandler_Success(t *testing.T) {
	handler, mockService := createTestTelemetryHandler()
	mockService.LatestBySerialFunc = func(ctx context.Context, serial string) (*service.DeviceState, error) {
		return createTestState(), nil
	}

	rr := httptest.NewRecorder()
	handler.VisualizeHandler(rr, serialRequest("GET", "/visualize/SN-001/", "SN-001"))

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status code %d, got %d", http.StatusOK, rr.Code)
	}
	if !strings.HasPrefix(rr.Header().Get("Content-Type"), "text/html") {
		t.Errorf("Expected HTML, got %s", rr.Header().Get("Content-Type"))
	}
	body := rr.Body.String()
	for _, want := range []string{"Device SN-001", "CPU 42%", "Memory 77%", "2024-03-01 12:00:00 UTC"} {
		if !strings.Contains(body, want) {
			t.Errorf("Expected page to contain %q", want)
		}
	}
}

func TestVisualizeHandler_EscapesSerial(t *testing.T) {
	handler, mockService := createTestTelemetryHandler()
	mockService.LatestBySerialFunc = func(ctx context.Context, serial string) (*service.DeviceState, error) {
		state := createTestState()
		state.Device.SerialNumber = "<script>"
		return state, nil
	}

	rr := httptest.NewRecorder()
	handler.VisualizeHandler(rr, serialRequest("GET", "/visualize/x/", "x"))

	if strings.Contains(rr.Body.String(), "<script>") {
		t.Error("Serial number was not escaped")
	}
}

func TestVisualizeHandler_NotFound(t *testing.T) {
	handler, mockService := createTestTelemetryHandler()
	mockService.LatestBySerialFunc = func(ctx context.Context, serial string) (*service.DeviceState, error) {
		return nil, apperrors.NotFoundError("device data")
	}

	rr := httptest.NewRecorder()
	handler.VisualizeHandler(rr, serialRequest("GET", "/visualize/SN-001/", "SN-001"))

	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status code %d, got %d", http.StatusNotFound, rr.Code)
	}
}

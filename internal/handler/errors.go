package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"device-fleet-api/internal/logger"
	"device-fleet-api/internal/middleware"
	apperrors "device-fleet-api/pkg/errors"

	"go.uber.org/zap"
)

// ErrorResponse is the JSON envelope of every failed request
type ErrorResponse struct {
	Error     string            `json:"error"`
	Code      string            `json:"code,omitempty"`
	Details   map[string]string `json:"details,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// SuccessResponse is the JSON envelope of successful writes
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorHandler provides centralized error handling functionality for handlers
type ErrorHandler struct {
	Logger *zap.Logger
}

// NewErrorHandler creates a new ErrorHandler instance
func NewErrorHandler(log *zap.Logger) *ErrorHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ErrorHandler{Logger: log}
}

// SendErrorResponse sends a structured error response
func (e *ErrorHandler) SendErrorResponse(w http.ResponseWriter, statusCode int, message, code string, details map[string]string) {
	e.writeError(w, statusCode, ErrorResponse{Error: message, Code: code, Details: details})
}

func (e *ErrorHandler) writeError(w http.ResponseWriter, statusCode int, response ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(response); err != nil {
		e.Logger.Error("Failed to encode error response", zap.Error(err))
	}
}

// SendSuccessResponse sends a structured success response
func (e *ErrorHandler) SendSuccessResponse(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	e.SendJSONResponse(w, statusCode, SuccessResponse{Message: message, Data: data})
}

// SendJSONResponse sends a generic JSON response. The body is encoded before
// the status is written so an encoding failure can still become a 500.
func (e *ErrorHandler) SendJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	body, err := json.Marshal(data)
	if err != nil {
		e.Logger.Error("Failed to encode JSON response", zap.Error(err))
		e.SendErrorResponse(w, http.StatusInternalServerError, "Failed to encode response", "ENCODING_ERROR", nil)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	w.Write(append(body, '\n'))
}

// SendTextResponse sends a plain-text body
func (e *ErrorHandler) SendTextResponse(w http.ResponseWriter, statusCode int, text string) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(statusCode)
	if _, err := w.Write([]byte(text)); err != nil {
		e.Logger.Debug("Failed to write text response", zap.Error(err))
	}
}

// HandleError writes err as a JSON error envelope. AppErrors keep their code
// and status; a deadline becomes 408; anything else is a 500 whose cause is
// logged but not exposed.
func (e *ErrorHandler) HandleError(w http.ResponseWriter, r *http.Request, err error) {
	log := logger.FromContext(r.Context(), e.Logger)

	appErr, ok := apperrors.AsAppError(err)
	if !ok {
		switch {
		case errors.Is(err, context.DeadlineExceeded):
			appErr = apperrors.TimeoutErrorWithCause(r.Method+" "+r.URL.Path, err)
		default:
			appErr = apperrors.WrapError(err, "Internal server error")
		}
	}

	status := appErr.GetHTTPStatus()
	message := appErr.Message
	if status >= http.StatusInternalServerError {
		log.Error("Request failed",
			zap.String("code", string(appErr.Code)),
			zap.Error(appErr),
		)
		message = "Internal server error"
	} else {
		log.Debug("Request rejected",
			zap.String("code", string(appErr.Code)),
			zap.Error(appErr),
		)
	}

	appErr.WithRequestID(requestIDFrom(r))

	e.writeError(w, status, ErrorResponse{
		Error:     message,
		Code:      string(appErr.Code),
		Details:   appErr.StringDetails(),
		RequestID: appErr.RequestID,
	})
}

// HandleJSONDecodeError handles request body decoding errors. Bodies over
// the size limit answer 413.
func (e *ErrorHandler) HandleJSONDecodeError(w http.ResponseWriter, r *http.Request, err error) {
	e.HandleError(w, r, apperrors.DecodeError(err))
}

// HandleValidationErrors sends a 400 when validationErrors is not empty.
// It reports whether a response was written.
func (e *ErrorHandler) HandleValidationErrors(w http.ResponseWriter, r *http.Request, validationErrors map[string]string) bool {
	if len(validationErrors) == 0 {
		return false
	}
	e.HandleError(w, r, apperrors.ValidationErrorWithDetails("Validation failed", validationErrors))
	return true
}

func requestIDFrom(r *http.Request) string {
	if id := middleware.RequestIDFromContext(r.Context()); id != "" {
		return id
	}
	return r.Header.Get(middleware.RequestIDHeader)
}

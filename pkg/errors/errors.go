package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"time"
)

// ErrorCode represents a specific error type
type ErrorCode string

const (
	// Business logic errors
	ErrorCodeValidation       ErrorCode = "VALIDATION_ERROR"
	ErrorCodeNotFound         ErrorCode = "NOT_FOUND"
	ErrorCodeAlreadyExists    ErrorCode = "ALREADY_EXISTS"
	ErrorCodeInvalidReference ErrorCode = "INVALID_REFERENCE"

	// Technical errors
	ErrorCodeInternal        ErrorCode = "INTERNAL_ERROR"
	ErrorCodeDatabase        ErrorCode = "DATABASE_ERROR"
	ErrorCodeExternalService ErrorCode = "EXTERNAL_SERVICE_ERROR"
	ErrorCodeTimeout         ErrorCode = "TIMEOUT_ERROR"
	ErrorCodeRateLimit       ErrorCode = "RATE_LIMIT_ERROR"

	// Request errors
	ErrorCodeBadRequest       ErrorCode = "BAD_REQUEST"
	ErrorCodeInvalidJSON      ErrorCode = "INVALID_JSON"
	ErrorCodeInvalidParameter ErrorCode = "INVALID_PARAMETER"
	ErrorCodePayloadTooLarge  ErrorCode = "PAYLOAD_TOO_LARGE"
)

// AppError represents a structured application error
type AppError struct {
	Code       ErrorCode              `json:"code"`
	Message    string                 `json:"message"`
	Details    map[string]interface{} `json:"details,omitempty"`
	Cause      error                  `json:"-"`
	Timestamp  time.Time              `json:"timestamp"`
	RequestID  string                 `json:"request_id,omitempty"`
	StackTrace string                 `json:"-"`
}

// Error implements the error interface
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for error wrapping
func (e *AppError) Unwrap() error {
	return e.Cause
}

// GetHTTPStatus returns the appropriate HTTP status code for the error
func (e *AppError) GetHTTPStatus() int {
	switch e.Code {
	case ErrorCodeValidation, ErrorCodeBadRequest, ErrorCodeInvalidJSON, ErrorCodeInvalidParameter:
		return http.StatusBadRequest
	case ErrorCodeNotFound:
		return http.StatusNotFound
	case ErrorCodeAlreadyExists, ErrorCodeInvalidReference:
		return http.StatusConflict
	case ErrorCodeTimeout:
		return http.StatusRequestTimeout
	case ErrorCodeRateLimit:
		return http.StatusTooManyRequests
	case ErrorCodePayloadTooLarge:
		return http.StatusRequestEntityTooLarge
	case ErrorCodeExternalService:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// StringDetails returns the details as strings, the shape of the JSON
// error envelope.
func (e *AppError) StringDetails() map[string]string {
	if len(e.Details) == 0 {
		return nil
	}
	out := make(map[string]string, len(e.Details))
	for k, v := range e.Details {
		out[k] = fmt.Sprint(v)
	}
	return out
}

// NewAppError creates a new application error
func NewAppError(code ErrorCode, message string) *AppError {
	return NewAppErrorWithCause(code, message, nil)
}

// NewAppErrorWithCause creates a new application error with an underlying cause
func NewAppErrorWithCause(code ErrorCode, message string, cause error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		Details:    make(map[string]interface{}),
		Cause:      cause,
		Timestamp:  time.Now(),
		StackTrace: getStackTrace(),
	}
}

// WithDetail adds a detail to the error
func (e *AppError) WithDetail(key string, value interface{}) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]interface{})
	}
	e.Details[key] = value
	return e
}

// WithFieldDetails adds one detail per field
func (e *AppError) WithFieldDetails(fields map[string]string) *AppError {
	for field, msg := range fields {
		e.WithDetail(field, msg)
	}
	return e
}

// WithRequestID adds a request ID to the error
func (e *AppError) WithRequestID(requestID string) *AppError {
	e.RequestID = requestID
	return e
}

func getStackTrace() string {
	buf := make([]byte, 2048)
	n := runtime.Stack(buf, false)
	return string(buf[:n])
}

// ValidationError creates a validation error
func ValidationError(message string) *AppError {
	return NewAppError(ErrorCodeValidation, message)
}

// ValidationErrorWithDetails creates a validation error with field details
func ValidationErrorWithDetails(message string, fields map[string]string) *AppError {
	return NewAppError(ErrorCodeValidation, message).WithFieldDetails(fields)
}

// NotFoundError creates a not found error
func NotFoundError(resource string) *AppError {
	return NotFoundErrorWithCause(resource, nil)
}

// NotFoundErrorWithCause creates a not found error that keeps the lookup failure
func NotFoundErrorWithCause(resource string, cause error) *AppError {
	return NewAppErrorWithCause(ErrorCodeNotFound, fmt.Sprintf("%s not found", resource), cause)
}

// UniquenessError reports a duplicate value on a unique field
func UniquenessError(resource, field string, cause error) *AppError {
	err := NewAppErrorWithCause(ErrorCodeAlreadyExists,
		fmt.Sprintf("%s with this %s already exists", resource, field), cause)
	return err.WithDetail(field, "must be unique")
}

// InvalidReferenceError reports a foreign key that matches no record
func InvalidReferenceError(message string, cause error) *AppError {
	return NewAppErrorWithCause(ErrorCodeInvalidReference, message, cause)
}

// DatabaseError creates a database error
func DatabaseError(message string, cause error) *AppError {
	return NewAppErrorWithCause(ErrorCodeDatabase, message, cause)
}

// ExternalServiceError creates an external service error
func ExternalServiceError(service string, cause error) *AppError {
	return NewAppErrorWithCause(ErrorCodeExternalService,
		fmt.Sprintf("external service '%s' error", service), cause)
}

// InternalError creates an internal server error
func InternalError(message string, cause error) *AppError {
	return NewAppErrorWithCause(ErrorCodeInternal, message, cause)
}

// TimeoutErrorWithCause creates a timeout error
func TimeoutErrorWithCause(operation string, cause error) *AppError {
	return NewAppErrorWithCause(ErrorCodeTimeout, fmt.Sprintf("timeout during %s", operation), cause)
}

// RateLimitError reports a client over its request budget
func RateLimitError() *AppError {
	return NewAppError(ErrorCodeRateLimit, "Rate limit exceeded")
}

// BadRequestError creates a bad request error
func BadRequestError(message string) *AppError {
	return NewAppError(ErrorCodeBadRequest, message)
}

// InvalidParameterError reports a malformed path or query parameter
func InvalidParameterError(name, message string) *AppError {
	return NewAppError(ErrorCodeInvalidParameter, fmt.Sprintf("invalid %s", name)).WithDetail(name, message)
}

// InvalidJSONError creates an invalid JSON error
func InvalidJSONError(cause error) *AppError {
	return NewAppErrorWithCause(ErrorCodeInvalidJSON, "Invalid JSON format", cause)
}

// PayloadTooLargeError reports a request body over limit bytes
func PayloadTooLargeError(limit int64, cause error) *AppError {
	return NewAppErrorWithCause(ErrorCodePayloadTooLarge, "Request body too large", cause).
		WithDetail("limit_bytes", limit)
}

// DecodeError classifies a failure to decode a JSON request body: an empty
// body is a bad request, a body cut off by http.MaxBytesReader is too large,
// anything else is malformed JSON.
func DecodeError(err error) *AppError {
	var tooLarge *http.MaxBytesError
	switch {
	case stderrors.As(err, &tooLarge):
		return PayloadTooLargeError(tooLarge.Limit, err)
	case stderrors.Is(err, io.EOF):
		appErr := BadRequestError("Request body is required")
		appErr.Cause = err
		return appErr
	default:
		return InvalidJSONError(err)
	}
}

// AsAppError finds the first AppError in err's chain
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	ok := stderrors.As(err, &appErr)
	return appErr, ok
}

// HasCode reports whether err carries an AppError with the given code
func HasCode(err error, code ErrorCode) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}

// WrapError wraps a generic error as an internal error
func WrapError(err error, message string) *AppError {
	if appErr, ok := AsAppError(err); ok {
		return appErr
	}
	return InternalError(message, err)
}

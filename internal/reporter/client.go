package reporter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"device-fleet-api/internal/model"
	apperrors "device-fleet-api/pkg/errors"

	"go.uber.org/zap"
)

const (
	stateReportPath = "/stateReport/"
	healthPath      = "/health"
	userAgent       = "device-fleet-reporter/1.0"
	maxErrorBody    = 512
)

// Client submits telemetry reports to the service
type Client interface {
	Report(ctx context.Context, report Report) error
	IsHealthy(ctx context.Context) bool
}

// Report is the payload of one telemetry submission
type Report struct {
	SerialNumber string `json:"serial_number"`
	CPU          int    `json:"cpu"`
	Memory       int    `json:"memory"`
}

// Validate checks the report against the service's accepted ranges
func (r *Report) Validate() error {
	if strings.TrimSpace(r.SerialNumber) == "" {
		return fmt.Errorf("serial number is required")
	}
	if r.CPU < model.MinUsage || r.CPU > model.MaxUsage {
		return fmt.Errorf("cpu %d out of range [%d, %d]", r.CPU, model.MinUsage, model.MaxUsage)
	}
	if r.Memory < model.MinUsage || r.Memory > model.MaxUsage {
		return fmt.Errorf("memory %d out of range [%d, %d]", r.Memory, model.MinUsage, model.MaxUsage)
	}
	return nil
}

// StatusError is a non-2xx answer from the service
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("service returned status %d: %s", e.StatusCode, e.Body)
}

// Retryable reports whether the request may succeed when repeated. Client
// errors other than 408 and 429 will not.
func (e *StatusError) Retryable() bool {
	if e.StatusCode == http.StatusRequestTimeout || e.StatusCode == http.StatusTooManyRequests {
		return true
	}
	return e.StatusCode >= http.StatusInternalServerError
}

// errPermanent marks failures that retrying cannot fix
var errPermanent = errors.New("permanent failure")

type httpClient struct {
	baseURL string
	config  ClientConfig
	client  *http.Client
	logger  *zap.Logger
}

// NewClient creates a Client for the service at baseURL
func NewClient(baseURL string, config ClientConfig, logger *zap.Logger) Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &httpClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		config:  config,
		client:  &http.Client{Timeout: config.Timeout},
		logger:  logger,
	}
}

// Report posts one sample, retrying transient failures with a linear backoff.
// Failures are returned as EXTERNAL_SERVICE_ERROR.
func (c *httpClient) Report(ctx context.Context, report Report) error {
	if err := report.Validate(); err != nil {
		return apperrors.ValidationError(fmt.Sprintf("invalid report: %v", err))
	}

	var lastErr error
	for attempt := 0; attempt <= c.config.RetryAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return apperrors.ExternalServiceError("device-fleet-api", ctx.Err())
			case <-time.After(c.config.RetryDelay * time.Duration(attempt)):
			}
			c.logger.Debug("Retrying report",
				zap.Int("attempt", attempt+1),
				zap.Int("max_attempts", c.config.RetryAttempts+1),
			)
		}

		err := c.send(ctx, report)
		if err == nil {
			return nil
		}
		lastErr = err
		c.logger.Warn("Report attempt failed", zap.Int("attempt", attempt+1), zap.Error(err))

		if errors.Is(err, errPermanent) {
			break
		}
		var statusErr *StatusError
		if errors.As(err, &statusErr) && !statusErr.Retryable() {
			break
		}
	}

	return apperrors.ExternalServiceError("device-fleet-api", lastErr)
}

func (c *httpClient) send(ctx context.Context, report Report) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w: %w", errPermanent, err)
	}
	if int64(len(payload)) > c.config.MaxPayloadSize {
		return fmt.Errorf("report payload too large: %d bytes (max %d): %w", len(payload), c.config.MaxPayloadSize, errPermanent)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+stateReportPath, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w: %w", errPermanent, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if resp.StatusCode >= http.StatusBadRequest {
		return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}
	if resp.StatusCode != http.StatusCreated {
		c.logger.Warn("Unexpected status code from service", zap.Int("status", resp.StatusCode))
	}

	return nil
}

// IsHealthy reports whether the service answers its health check
func (c *httpClient) IsHealthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode == http.StatusOK
}

package service

import (
	"context"
	"errors"
	"time"

	"device-fleet-api/internal/metrics"
	"device-fleet-api/internal/model"
	"device-fleet-api/internal/repository"
	apperrors "device-fleet-api/pkg/errors"

	"go.uber.org/zap"
)

// IngestionObserver is notified of every telemetry report and its outcome.
type IngestionObserver interface {
	ObserveIngestion(result string)
}

// DeviceState pairs a device with its most recent sample.
type DeviceState struct {
	Device *model.Device
	Sample *model.DeviceData
}

// TelemetryService handles telemetry ingestion and latest-state lookups
type TelemetryService struct {
	repo     repository.TelemetryRepository
	observer IngestionObserver
	logger   *zap.Logger
	now      func() time.Time
}

// NewTelemetryService creates a new telemetry service
func NewTelemetryService(repo repository.TelemetryRepository, observer IngestionObserver, logger *zap.Logger) *TelemetryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TelemetryService{
		repo:     repo,
		observer: observer,
		logger:   logger,
		now:      time.Now,
	}
}

// Ingest records one sample for the device with the given serial number,
// stamped with the server's current time.
func (s *TelemetryService) Ingest(ctx context.Context, serial string, cpu, memory int) (*model.DeviceData, error) {
	device, err := s.repo.GetDeviceBySerial(ctx, serial)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.observe(metrics.ResultUnknownDevice)
			return nil, apperrors.NotFoundErrorWithCause("device", err).WithDetail("serial_number", serial)
		}
		s.observe(metrics.ResultError)
		return nil, MapStoreError(err, "device")
	}

	sample := &model.DeviceData{
		DeviceID:   device.ID,
		RecordedAt: s.now().UTC(),
		CPU:        cpu,
		Memory:     memory,
	}

	if err := s.repo.CreateSample(ctx, sample); err != nil {
		mapped := MapStoreError(err, "device data")
		if apperrors.HasCode(mapped, apperrors.ErrorCodeValidation) {
			s.observe(metrics.ResultInvalid)
		} else {
			s.observe(metrics.ResultError)
		}
		return nil, mapped
	}

	s.observe(metrics.ResultAccepted)
	s.logger.Debug("Sample accepted",
		zap.String("serial_number", serial),
		zap.Int64("device_id", device.ID),
		zap.Int("cpu", cpu),
		zap.Int("memory", memory),
	)

	return sample, nil
}

// LatestBySerial returns the device and its most recent sample. Both an
// unknown serial number and a device without samples are reported as
// NOT_FOUND.
func (s *TelemetryService) LatestBySerial(ctx context.Context, serial string) (*DeviceState, error) {
	device, err := s.repo.GetDeviceBySerial(ctx, serial)
	if err != nil {
		return nil, MapStoreError(err, "device")
	}

	sample, err := s.repo.GetLatestSample(ctx, device.ID)
	if err != nil {
		return nil, MapStoreError(err, "device data")
	}

	return &DeviceState{Device: device, Sample: sample}, nil
}

func (s *TelemetryService) observe(result string) {
	if s.observer != nil {
		s.observer.ObserveIngestion(result)
	}
}

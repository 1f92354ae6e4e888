package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"device-fleet-api/internal/model"
)

// TelemetryRepository defines the queries behind sample ingestion and the
// latest-state views.
type TelemetryRepository interface {
	GetDeviceBySerial(ctx context.Context, serial string) (*model.Device, error)
	CreateSample(ctx context.Context, sample *model.DeviceData) error
	GetLatestSample(ctx context.Context, deviceID int64) (*model.DeviceData, error)
}

// telemetryRepository implements TelemetryRepository
type telemetryRepository struct {
	db      *sql.DB
	samples *Table[model.DeviceData]
}

// NewTelemetryRepository creates a new telemetry repository
func NewTelemetryRepository(store *Store) TelemetryRepository {
	return &telemetryRepository{db: store.DB, samples: store.DeviceData}
}

// GetDeviceBySerial looks a device up by its unique serial number
func (r *telemetryRepository) GetDeviceBySerial(ctx context.Context, serial string) (*model.Device, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	query := `
		SELECT id, serial_number, hardware_version_id, software_version_id, location_id, register_date
		FROM devices
		WHERE serial_number = $1`

	var device model.Device
	if err := scanDevice(r.db.QueryRowContext(ctx, query, serial), &device); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("device %q: %w", serial, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get device by serial: %w", err)
	}

	return &device, nil
}

// CreateSample stores one telemetry sample
func (r *telemetryRepository) CreateSample(ctx context.Context, sample *model.DeviceData) error {
	return r.samples.Create(ctx, sample)
}

// GetLatestSample returns the device's sample with the greatest recorded_at.
// Samples sharing a timestamp are ordered by id so the most recent insert wins.
func (r *telemetryRepository) GetLatestSample(ctx context.Context, deviceID int64) (*model.DeviceData, error) {
	ctx, cancel := context.WithTimeout(ctx, readTimeout)
	defer cancel()

	query := `
		SELECT id, device_id, recorded_at, cpu, memory
		FROM device_data
		WHERE device_id = $1
		ORDER BY recorded_at DESC, id DESC
		LIMIT 1`

	var sample model.DeviceData
	if err := scanDeviceData(r.db.QueryRowContext(ctx, query, deviceID), &sample); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("device %d: %w", deviceID, ErrNoSamples)
		}
		return nil, fmt.Errorf("failed to get latest sample: %w", err)
	}

	return &sample, nil
}

package model

import (
	"fmt"
	"time"
)

// Bounds for telemetry percentages. Unset values default to DefaultUsage.
const (
	MinUsage     = 1
	MaxUsage     = 100
	DefaultUsage = 1
)

// Device represents a physical unit deployed at a customer location.
// SerialNumber is unique across all devices.
type Device struct {
	ID                int64     `json:"id"`
	SerialNumber      string    `json:"serial_number"`
	HardwareVersionID int64     `json:"hardware_version_id"`
	SoftwareVersionID int64     `json:"software_version_id"`
	LocationID        int64     `json:"location_id"`
	RegisterDate      time.Time `json:"register_date"`

	// Location is populated only by queries that join it.
	Location *CustomerLocation `json:"location,omitempty"`
}

func (d Device) String() string {
	if d.Location != nil {
		return fmt.Sprintf("%s, %s", d.SerialNumber, d.Location)
	}
	return d.SerialNumber
}

// DeviceData is a single CPU/memory sample reported by a device.
type DeviceData struct {
	ID         int64     `json:"id"`
	DeviceID   int64     `json:"device_id"`
	RecordedAt time.Time `json:"recorded_at"`
	CPU        int       `json:"cpu"`
	Memory     int       `json:"memory"`
}

// ApplyDefaults sets the usage values to DefaultUsage. Callers apply it
// before decoding input so an explicit zero is kept and rejected.
func (d *DeviceData) ApplyDefaults() {
	d.CPU = DefaultUsage
	d.Memory = DefaultUsage
}

func (d DeviceData) String() string {
	return fmt.Sprintf("CPU: %d, Mem: %d", d.CPU, d.Memory)
}

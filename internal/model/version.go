package model

import "fmt"

// HardwareVersion is a hardware model/revision a device can be built on.
// Lists are ordered by Version descending, compared as plain strings.
type HardwareVersion struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

func (h HardwareVersion) String() string {
	return fmt.Sprintf("%s, %s", h.Name, h.Version)
}

// SoftwareVersion is a software release a device can run.
type SoftwareVersion struct {
	ID      int64  `json:"id"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

func (s SoftwareVersion) String() string {
	return fmt.Sprintf("%s, %s", s.Name, s.Version)
}

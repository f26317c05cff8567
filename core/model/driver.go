package model

import (
	"fmt"
	"time"
)

// DriverStatus enumerates driver availability states.
type DriverStatus string

const (
	DriverActive  DriverStatus = "active"
	DriverIdle    DriverStatus = "idle"
	DriverOffline DriverStatus = "offline"
)

// VehicleType distinguishes fleet vehicle classes.
type VehicleType string

const (
	VehicleBus VehicleType = "bus"
	VehicleVan VehicleType = "van"
)

// Location is a timestamped driver position report.
type Location struct {
	Lat       float64   `json:"lat"`
	Lng       float64   `json:"lng"`
	Timestamp time.Time `json:"timestamp"`
	SpeedKmh  float64   `json:"speed_kmh,omitempty"`
	Heading   float64   `json:"heading,omitempty"`
}

// Driver represents a fleet vehicle operator.
type Driver struct {
	ID                string       `json:"id"`
	Name              string       `json:"name"`
	Phone             string       `json:"phone,omitempty"`
	VehicleNumber     string       `json:"vehicle_number"`
	VehicleType       VehicleType  `json:"vehicle_type"`
	Capacity          int          `json:"capacity"`
	CurrentPassengers int          `json:"current_passengers"`
	Status            DriverStatus `json:"status"`
	Location          *Location    `json:"location,omitempty"`
	Route             string       `json:"route,omitempty"`
}

// Available reports whether the driver can take on another passenger.
func (d Driver) Available() bool {
	if d.Status != DriverActive && d.Status != DriverIdle {
		return false
	}
	return d.CurrentPassengers < d.Capacity
}

// Validate checks structural invariants of the driver record.
func (d Driver) Validate() error {
	if d.ID == "" {
		return fmt.Errorf("driver id is required")
	}
	if d.Capacity <= 0 {
		return fmt.Errorf("capacity must be positive")
	}
	if d.CurrentPassengers < 0 || d.CurrentPassengers > d.Capacity {
		return fmt.Errorf("passenger count %d outside [0,%d]", d.CurrentPassengers, d.Capacity)
	}
	switch d.Status {
	case DriverActive, DriverIdle, DriverOffline:
	default:
		return fmt.Errorf("unknown driver status %q", d.Status)
	}
	return nil
}

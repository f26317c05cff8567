package model

import (
	"fmt"
	"time"
)

// RideStatus enumerates the lifecycle states of a ride.
type RideStatus string

const (
	StatusPending    RideStatus = "pending"
	StatusAccepted   RideStatus = "accepted"
	StatusAssigned   RideStatus = "assigned"
	StatusInProgress RideStatus = "in-progress"
	StatusCompleted  RideStatus = "completed"
	StatusCancelled  RideStatus = "cancelled"
)

// RideType distinguishes immediate requests from scheduled ones.
type RideType string

const (
	RideOnDemand  RideType = "on-demand"
	RideScheduled RideType = "scheduled"
)

// Coordinates is a WGS84 point.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// AssignedDriver references the driver serving a ride.
type AssignedDriver struct {
	DriverID      string `json:"driver_id"`
	DriverName    string `json:"driver_name"`
	VehicleNumber string `json:"vehicle_number"`
}

// Ride represents a single transport request and its lifecycle state.
//
// The original data model declared both "accepted" and "assigned" as ride
// statuses and used them interchangeably. Here AssignDriver always produces
// "accepted"; "assigned" is kept as a recognised input alias so documents
// written by older clients still validate, but the engine never emits it.
type Ride struct {
	ID                string          `json:"id"`
	StudentID         string          `json:"student_id"`
	StudentName       string          `json:"student_name"`
	StudentPhone      string          `json:"student_phone,omitempty"`
	Pickup            string          `json:"pickup"`
	PickupCoords      Coordinates     `json:"pickup_coords"`
	Destination       string          `json:"destination"`
	DestinationCoords Coordinates     `json:"destination_coords"`
	Type              RideType        `json:"type"`
	Status            RideStatus      `json:"status"`
	RequestedAt       time.Time       `json:"requested_at"`
	Driver            *AssignedDriver `json:"driver,omitempty"`
	AcceptedAt        *time.Time      `json:"accepted_at,omitempty"`
	StartedAt         *time.Time      `json:"started_at,omitempty"`
	CompletedAt       *time.Time      `json:"completed_at,omitempty"`
	CancelledAt       *time.Time      `json:"cancelled_at,omitempty"`
}

// Terminal reports whether the status accepts no further transitions.
func (s RideStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// canonical folds the assigned alias onto accepted.
func (s RideStatus) canonical() RideStatus {
	if s == StatusAssigned {
		return StatusAccepted
	}
	return s
}

// CanTransitionTo reports whether the lifecycle permits moving from s to next.
func (s RideStatus) CanTransitionTo(next RideStatus) bool {
	from, to := s.canonical(), next.canonical()
	switch from {
	case StatusPending:
		return to == StatusAccepted || to == StatusCancelled
	case StatusAccepted:
		return to == StatusInProgress || to == StatusCancelled
	case StatusInProgress:
		return to == StatusCompleted
	default:
		return false
	}
}

// Valid reports whether the status is a known lifecycle state.
func (s RideStatus) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusAssigned, StatusInProgress, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Validate checks structural invariants of the ride record.
func (r Ride) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("ride id is required")
	}
	if r.StudentID == "" {
		return fmt.Errorf("student id is required")
	}
	if !r.Status.Valid() {
		return fmt.Errorf("unknown ride status %q", r.Status)
	}
	if r.Type != RideOnDemand && r.Type != RideScheduled {
		return fmt.Errorf("unknown ride type %q", r.Type)
	}
	if r.Status == StatusPending && r.Driver != nil {
		return fmt.Errorf("pending ride must not carry a driver reference")
	}
	return r.checkTimestamps()
}

// checkTimestamps enforces non-decreasing transition timestamps.
func (r Ride) checkTimestamps() error {
	prev := r.RequestedAt
	for _, ts := range []*time.Time{r.AcceptedAt, r.StartedAt, r.CompletedAt} {
		if ts == nil {
			continue
		}
		if ts.Before(prev) {
			return fmt.Errorf("transition timestamps must be non-decreasing")
		}
		prev = *ts
	}
	if r.CancelledAt != nil && r.CancelledAt.Before(r.RequestedAt) {
		return fmt.Errorf("cancellation precedes request time")
	}
	return nil
}

// Package audit persists dispatch decisions so that lost races and failed
// assignments stay observable after the fact.
package audit

import (
	"context"
	"time"
)

// Record captures one dispatch decision and its outcome.
type Record struct {
	Timestamp  time.Time `json:"timestamp"`
	RideID     string    `json:"ride_id"`
	DriverID   string    `json:"driver_id,omitempty"`
	Policy     string    `json:"policy,omitempty"`
	DistanceKm float64   `json:"distance_km,omitempty"`
	Outcome    string    `json:"outcome"`
	Error      string    `json:"error,omitempty"`
}

// Query defines filters for retrieving records.
type Query struct {
	Start    time.Time
	End      time.Time
	RideID   string
	DriverID string
	Outcome  string
}

// Store persists Records and supports querying.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Query(ctx context.Context, q Query) ([]Record, error)
	Close() error
}

// NopStore discards every record.
type NopStore struct{}

func (NopStore) Append(context.Context, Record) error           { return nil }
func (NopStore) Query(context.Context, Query) ([]Record, error) { return nil, nil }
func (NopStore) Close() error                                   { return nil }

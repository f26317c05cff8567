// Package metrics defines the sinks dispatch and forecasting report into.
package metrics

import (
	"time"
)

// AssignmentOutcome labels the result of a dispatch attempt.
type AssignmentOutcome string

const (
	OutcomeAssigned     AssignmentOutcome = "assigned"
	OutcomeConflict     AssignmentOutcome = "conflict"
	OutcomeNoCandidates AssignmentOutcome = "no_candidates"
	OutcomeError        AssignmentOutcome = "error"
)

// AssignmentEvent records one dispatch attempt.
type AssignmentEvent struct {
	RideID     string
	DriverID   string
	Policy     string
	Outcome    AssignmentOutcome
	DistanceKm float64
	Time       time.Time
}

// ForecastEvent records one zone forecast computation.
type ForecastEvent struct {
	Zone            string
	PredictedDemand int
	Confidence      int
	Trend           string
	Anomaly         bool
	Duration        time.Duration
	Time            time.Time
}

// Sink records assignment events for observability purposes.
type Sink interface {
	RecordAssignment(ev AssignmentEvent) error
}

// ForecastRecorder records forecast computations. Sinks implement it when
// they can store per-zone gauges.
type ForecastRecorder interface {
	RecordForecast(events []ForecastEvent) error
}

// PendingRecorder records the size of the pending ride backlog.
type PendingRecorder interface {
	RecordPendingRides(count int) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordAssignment(AssignmentEvent) error { return nil }
func (NopSink) RecordForecast([]ForecastEvent) error   { return nil }
func (NopSink) RecordPendingRides(int) error           { return nil }

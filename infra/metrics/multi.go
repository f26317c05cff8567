package metrics

import coremetrics "github.com/campustransit/dispatch/core/metrics"

// MultiSink fans events out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordAssignment forwards the event to all sinks, returning the first
// error encountered.
func (m *MultiSink) RecordAssignment(ev coremetrics.AssignmentEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordAssignment(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordForecast forwards forecast events to sinks that support them.
func (m *MultiSink) RecordForecast(events []coremetrics.ForecastEvent) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.ForecastRecorder); ok {
			if err := rec.RecordForecast(events); err != nil {
				return err
			}
		}
	}
	return nil
}

// RecordPendingRides forwards the backlog size to sinks that support it.
func (m *MultiSink) RecordPendingRides(count int) error {
	for _, s := range m.Sinks {
		if rec, ok := s.(coremetrics.PendingRecorder); ok {
			if err := rec.RecordPendingRides(count); err != nil {
				return err
			}
		}
	}
	return nil
}

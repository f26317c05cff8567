package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/campustransit/dispatch/core/metrics"
)

// PromSink records dispatch and forecast activity in Prometheus metrics.
type PromSink struct {
	assignments *prometheus.CounterVec
	distance    prometheus.Histogram
	predicted   *prometheus.GaugeVec
	confidence  *prometheus.GaugeVec
	anomalies   *prometheus.GaugeVec
	forecastDur prometheus.Histogram
	pending     prometheus.Gauge
}

// NewPromSink registers metrics on the default Prometheus registerer. The
// metrics server is started separately with StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{
		assignments: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dispatch_assignments_total",
			Help: "Total number of dispatch attempts by outcome",
		}, []string{"policy", "outcome"}),
		distance: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "dispatch_assignment_distance_km",
			Help:    "Driver to pickup distance at assignment time",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 25},
		}),
		predicted: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "forecast_predicted_demand",
			Help: "Predicted demand per zone",
		}, []string{"zone"}),
		confidence: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "forecast_confidence",
			Help: "Forecast confidence per zone (0-100)",
		}, []string{"zone"}),
		anomalies: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "forecast_anomaly",
			Help: "1 when the zone's recent demand is anomalous",
		}, []string{"zone"}),
		forecastDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "forecast_duration_seconds",
			Help:    "Time spent computing one zone forecast",
			Buckets: prometheus.DefBuckets,
		}),
		pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dispatch_pending_rides",
			Help: "Number of rides awaiting assignment",
		}),
	}
	collectors := []prometheus.Collector{
		s.assignments, s.distance, s.predicted, s.confidence, s.anomalies, s.forecastDur, s.pending,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return nil, err
			}
		}
	}
	return s, nil
}

// RecordAssignment increments the attempt counter and observes the pickup
// distance for successful assignments.
func (s *PromSink) RecordAssignment(ev coremetrics.AssignmentEvent) error {
	s.assignments.WithLabelValues(ev.Policy, string(ev.Outcome)).Inc()
	if ev.Outcome == coremetrics.OutcomeAssigned && ev.DistanceKm > 0 {
		s.distance.Observe(ev.DistanceKm)
	}
	return nil
}

// RecordForecast updates the per-zone gauges.
func (s *PromSink) RecordForecast(events []coremetrics.ForecastEvent) error {
	for _, ev := range events {
		s.predicted.WithLabelValues(ev.Zone).Set(float64(ev.PredictedDemand))
		s.confidence.WithLabelValues(ev.Zone).Set(float64(ev.Confidence))
		if ev.Anomaly {
			s.anomalies.WithLabelValues(ev.Zone).Set(1)
		} else {
			s.anomalies.WithLabelValues(ev.Zone).Set(0)
		}
		s.forecastDur.Observe(ev.Duration.Seconds())
	}
	return nil
}

// RecordPendingRides sets the pending backlog gauge.
func (s *PromSink) RecordPendingRides(count int) error {
	s.pending.Set(float64(count))
	return nil
}

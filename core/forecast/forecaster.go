package forecast

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/campustransit/dispatch/core/logger"
	"github.com/campustransit/dispatch/core/metrics"
	"github.com/campustransit/dispatch/core/model"
)

// ErrInsufficientData signals that a zone has fewer samples than the
// computation needs. It is returned instead of a misleadingly confident
// number.
var ErrInsufficientData = errors.New("forecast: insufficient data")

const (
	// PredictionWindow is the moving-average window for the prediction base.
	PredictionWindow = 10
	// TrendWindow is the number of samples on each side of the trend comparison.
	TrendWindow = 5
	// AnomalyMinSamples is the minimum history required for anomaly detection.
	AnomalyMinSamples = 20
	// AnomalyRecentWindow is the number of samples treated as "recent".
	AnomalyRecentWindow = 10

	trendThreshold   = 2.0
	anomalyThreshold = 2.0
)

// Forecaster derives ZoneForecasts from the sample store. Forecasts are
// recomputed on demand; callers are free to cache results for a bounded
// interval.
type Forecaster struct {
	store *SampleStore
	log   logger.Logger
	sink  metrics.ForecastRecorder
	now   func() time.Time
}

// Option customises a Forecaster.
type Option func(*Forecaster)

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(f *Forecaster) { f.now = now }
}

// WithSink attaches a metrics recorder for forecast computations.
func WithSink(sink metrics.ForecastRecorder) Option {
	return func(f *Forecaster) { f.sink = sink }
}

// New creates a Forecaster reading from store.
func New(store *SampleStore, log logger.Logger, opts ...Option) (*Forecaster, error) {
	if store == nil {
		return nil, fmt.Errorf("forecast: nil store")
	}
	if log == nil {
		return nil, fmt.Errorf("forecast: nil logger")
	}
	f := &Forecaster{store: store, log: log, sink: metrics.NopSink{}, now: time.Now}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// ForecastZones computes a forecast for each zone, projecting hoursAhead
// into the future. Zones without any observations are skipped and reported
// through the joined error; forecasts for the remaining zones are still
// returned.
func (f *Forecaster) ForecastZones(ctx context.Context, zones []string, hoursAhead int) ([]model.ZoneForecast, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	forecasts := make([]model.ZoneForecast, 0, len(zones))
	events := make([]metrics.ForecastEvent, 0, len(zones))
	var errs []error
	for _, zone := range zones {
		start := f.now()
		fc, err := f.ForecastZone(zone, hoursAhead)
		if err != nil {
			errs = append(errs, fmt.Errorf("zone %s: %w", zone, err))
			continue
		}
		forecasts = append(forecasts, fc)
		anomaly, aerr := f.Anomaly(zone)
		if aerr != nil && !errors.Is(aerr, ErrInsufficientData) {
			errs = append(errs, fmt.Errorf("zone %s: %w", zone, aerr))
		}
		events = append(events, metrics.ForecastEvent{
			Zone:            zone,
			PredictedDemand: fc.PredictedDemand,
			Confidence:      fc.Confidence,
			Trend:           string(fc.Trend),
			Anomaly:         anomaly,
			Duration:        f.now().Sub(start),
			Time:            start,
		})
	}
	if len(events) > 0 {
		if err := f.sink.RecordForecast(events); err != nil {
			f.log.Errorf("record forecast metrics: %v", err)
		}
	}
	return forecasts, errors.Join(errs...)
}

// ForecastZone computes the forecast for a single zone.
func (f *Forecaster) ForecastZone(zone string, hoursAhead int) (model.ZoneForecast, error) {
	samples := f.store.Samples(zone)
	if len(samples) == 0 {
		return model.ZoneForecast{}, fmt.Errorf("%w: zone %s has no samples", ErrInsufficientData, zone)
	}
	values := counts(samples)

	base, err := MovingAverage(values, PredictionWindow)
	if err != nil {
		return model.ZoneForecast{}, err
	}
	targetHour := (f.now().Hour() + hoursAhead) % 24
	predicted := int(math.Round(float64(base) * TimeMultiplier(targetHour)))
	if predicted < 0 {
		predicted = 0
	}

	current := 0
	for _, v := range tail(values, AnomalyRecentWindow) {
		current += int(v)
	}

	return model.ZoneForecast{
		Zone:            zone,
		CurrentDemand:   current,
		PredictedDemand: predicted,
		Confidence:      confidence(len(samples)),
		Trend:           Trend(values),
	}, nil
}

// MovingAverage returns the arithmetic mean of the last min(window, len)
// values, rounded to the nearest integer.
func MovingAverage(values []float64, window int) (int, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("%w: no values to average", ErrInsufficientData)
	}
	if window <= 0 {
		return 0, fmt.Errorf("forecast: window must be positive, got %d", window)
	}
	slice := tail(values, window)
	return int(math.Round(stat.Mean(slice, nil))), nil
}

// Trend compares the mean of the last TrendWindow values against the mean
// of the preceding TrendWindow values. Fewer than 2 samples on either side
// yields a stable label.
func Trend(values []float64) model.Trend {
	n := len(values)
	split := n - TrendWindow
	if split < 0 {
		split = 0
	}
	olderStart := n - 2*TrendWindow
	if olderStart < 0 {
		olderStart = 0
	}
	recent := values[split:]
	older := values[olderStart:split]
	if len(recent) < 2 || len(older) < 2 {
		return model.TrendStable
	}
	diff := stat.Mean(recent, nil) - stat.Mean(older, nil)
	switch {
	case diff > trendThreshold:
		return model.TrendIncreasing
	case diff < -trendThreshold:
		return model.TrendDecreasing
	default:
		return model.TrendStable
	}
}

// TimeMultiplier scales the moving-average base by the target hour of day:
// morning and evening peaks amplify demand, late night suppresses it.
func TimeMultiplier(hour int) float64 {
	switch {
	case (hour >= 8 && hour <= 10) || (hour >= 17 && hour <= 19):
		return 1.5
	case hour >= 11 && hour <= 16:
		return 1.2
	case hour >= 22 || hour <= 6:
		return 0.3
	default:
		return 1.0
	}
}

// Anomaly reports whether the zone's recent demand deviates from its
// history by more than two population standard deviations. It requires at
// least AnomalyMinSamples observations and returns ErrInsufficientData
// below that, never a guess.
func (f *Forecaster) Anomaly(zone string) (bool, error) {
	samples := f.store.Samples(zone)
	if len(samples) < AnomalyMinSamples {
		return false, fmt.Errorf("%w: zone %s has %d of %d samples required for anomaly detection",
			ErrInsufficientData, zone, len(samples), AnomalyMinSamples)
	}
	values := counts(samples)
	split := len(values) - AnomalyRecentWindow
	historical := values[:split]
	recent := values[split:]

	stddev := stat.PopStdDev(historical, nil)
	if stddev == 0 {
		stddev = 1
	}
	z := math.Abs(stat.Mean(recent, nil)-stat.Mean(historical, nil)) / stddev
	return z > anomalyThreshold, nil
}

// confidence grows with data volume: floor 60 whenever any data exists,
// capped at 95.
func confidence(sampleCount int) int {
	bonus := 2 * sampleCount
	if bonus > 35 {
		bonus = 35
	}
	c := 60 + bonus
	if c > 95 {
		c = 95
	}
	return c
}

func counts(samples []model.DemandSample) []float64 {
	values := make([]float64, len(samples))
	for i, s := range samples {
		values[i] = float64(s.Count)
	}
	return values
}

func tail(values []float64, n int) []float64 {
	if len(values) <= n {
		return values
	}
	return values[len(values)-n:]
}

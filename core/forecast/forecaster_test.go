package forecast

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/campustransit/dispatch/core/metrics"
	"github.com/campustransit/dispatch/core/model"
	"github.com/campustransit/dispatch/infra/logger"
)

func seedCounts(t *testing.T, store *SampleStore, zone string, start time.Time, counts ...int) {
	t.Helper()
	for i, c := range counts {
		if err := store.Record(zone, start.Add(time.Duration(i)*time.Hour), c); err != nil {
			t.Fatalf("record sample: %v", err)
		}
	}
}

func TestMovingAverage(t *testing.T) {
	got, err := MovingAverage([]float64{10, 20, 30, 40, 50}, 3)
	if err != nil {
		t.Fatalf("moving average: %v", err)
	}
	if got != 40 {
		t.Errorf("window 3 over [10..50] = %d, want 40", got)
	}

	// Fewer values than the window averages everything.
	got, err = MovingAverage([]float64{10, 20}, 10)
	if err != nil {
		t.Fatalf("moving average: %v", err)
	}
	if got != 15 {
		t.Errorf("short input = %d, want 15", got)
	}

	if _, err := MovingAverage(nil, 3); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("empty input: got %v, want ErrInsufficientData", err)
	}
	if _, err := MovingAverage([]float64{1}, 0); err == nil {
		t.Errorf("non-positive window should be rejected")
	}
}

func TestTrend(t *testing.T) {
	cases := []struct {
		name   string
		values []float64
		want   model.Trend
	}{
		{"increasing", []float64{40, 40, 40, 40, 40, 50, 50, 50, 50, 50}, model.TrendIncreasing},
		{"decreasing", []float64{50, 50, 50, 50, 50, 40, 40, 40, 40, 40}, model.TrendDecreasing},
		{"within threshold", []float64{40, 40, 40, 40, 40, 38, 38, 38, 38, 38}, model.TrendStable},
		{"exactly at threshold", []float64{40, 40, 40, 40, 40, 42, 42, 42, 42, 42}, model.TrendStable},
		{"too few samples", []float64{10, 50}, model.TrendStable},
		{"one older sample", []float64{10, 50, 50, 50, 50, 50}, model.TrendStable},
		{"empty", nil, model.TrendStable},
	}
	for _, tc := range cases {
		if got := Trend(tc.values); got != tc.want {
			t.Errorf("%s: got %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestTimeMultiplier(t *testing.T) {
	cases := []struct {
		hour int
		want float64
	}{
		{8, 1.5}, {10, 1.5}, {17, 1.5}, {19, 1.5},
		{11, 1.2}, {16, 1.2},
		{22, 0.3}, {23, 0.3}, {0, 0.3}, {6, 0.3},
		{7, 1.0}, {20, 1.0}, {21, 1.0},
	}
	for _, tc := range cases {
		if got := TimeMultiplier(tc.hour); got != tc.want {
			t.Errorf("hour %d: got %v, want %v", tc.hour, got, tc.want)
		}
	}
}

func TestConfidence(t *testing.T) {
	cases := []struct {
		samples, want int
	}{
		{1, 62},
		{5, 70},
		{10, 80},
		{17, 94},
		{18, 95},
		{100, 95},
	}
	for _, tc := range cases {
		if got := confidence(tc.samples); got != tc.want {
			t.Errorf("confidence(%d) = %d, want %d", tc.samples, got, tc.want)
		}
	}
}

func TestForecastZone(t *testing.T) {
	store := NewSampleStore()
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	seedCounts(t, store, "library", start, 10, 10, 10, 10, 10, 10, 10, 10, 10, 10)

	// Fix the clock at 08:00 so the one-hour horizon lands in the
	// morning peak.
	now := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	f, err := New(store, logger.NopLogger{}, WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("new forecaster: %v", err)
	}

	fc, err := f.ForecastZone("library", 1)
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	if fc.Zone != "library" {
		t.Errorf("zone = %s", fc.Zone)
	}
	if fc.PredictedDemand != 15 {
		t.Errorf("predicted = %d, want 15 (base 10 x peak 1.5)", fc.PredictedDemand)
	}
	if fc.CurrentDemand != 100 {
		t.Errorf("current = %d, want 100", fc.CurrentDemand)
	}
	if fc.Confidence != 80 {
		t.Errorf("confidence = %d, want 80", fc.Confidence)
	}
	if fc.Trend != model.TrendStable {
		t.Errorf("trend = %s, want stable", fc.Trend)
	}
}

func TestForecastZoneHorizonWraps(t *testing.T) {
	store := NewSampleStore()
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	seedCounts(t, store, "gym", start, 10, 10, 10)

	// 23:00 + 2h wraps to 01:00, deep in the night window.
	now := time.Date(2026, 3, 2, 23, 0, 0, 0, time.UTC)
	f, err := New(store, logger.NopLogger{}, WithClock(func() time.Time { return now }))
	if err != nil {
		t.Fatalf("new forecaster: %v", err)
	}
	fc, err := f.ForecastZone("gym", 2)
	if err != nil {
		t.Fatalf("forecast: %v", err)
	}
	if fc.PredictedDemand != 3 {
		t.Errorf("predicted = %d, want 3 (base 10 x night 0.3)", fc.PredictedDemand)
	}
}

func TestForecastZoneNoData(t *testing.T) {
	f, err := New(NewSampleStore(), logger.NopLogger{})
	if err != nil {
		t.Fatalf("new forecaster: %v", err)
	}
	if _, err := f.ForecastZone("ghost", 1); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("empty zone: got %v, want ErrInsufficientData", err)
	}
}

func TestAnomaly(t *testing.T) {
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	// Historical mean 10, population stddev 2 over 20 samples; a recent
	// mean of 16 is a 3 sigma deviation.
	spike := NewSampleStore()
	hist := []int{8, 12, 8, 12, 8, 12, 8, 12, 8, 12, 8, 12, 8, 12, 8, 12, 8, 12, 8, 12}
	seedCounts(t, spike, "library", start, hist...)
	seedCounts(t, spike, "library", start.Add(20*time.Hour), 16, 16, 16, 16, 16, 16, 16, 16, 16, 16)

	f, err := New(spike, logger.NopLogger{})
	if err != nil {
		t.Fatalf("new forecaster: %v", err)
	}
	got, err := f.Anomaly("library")
	if err != nil {
		t.Fatalf("anomaly: %v", err)
	}
	if !got {
		t.Errorf("3 sigma deviation should be anomalous")
	}

	// A recent mean of 11 is only half a sigma away.
	calm := NewSampleStore()
	seedCounts(t, calm, "library", start, hist...)
	seedCounts(t, calm, "library", start.Add(20*time.Hour), 11, 11, 11, 11, 11, 11, 11, 11, 11, 11)
	f, err = New(calm, logger.NopLogger{})
	if err != nil {
		t.Fatalf("new forecaster: %v", err)
	}
	got, err = f.Anomaly("library")
	if err != nil {
		t.Fatalf("anomaly: %v", err)
	}
	if got {
		t.Errorf("half sigma deviation should not be anomalous")
	}
}

func TestAnomalyNeedsHistory(t *testing.T) {
	store := NewSampleStore()
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	seedCounts(t, store, "library", start, 1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16, 17, 18, 19)

	f, err := New(store, logger.NopLogger{})
	if err != nil {
		t.Fatalf("new forecaster: %v", err)
	}
	if _, err := f.Anomaly("library"); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("19 samples: got %v, want ErrInsufficientData", err)
	}
}

func TestAnomalyFlatHistory(t *testing.T) {
	store := NewSampleStore()
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	seedCounts(t, store, "library", start,
		10, 10, 10, 10, 10, 10, 10, 10, 10, 10,
		14, 14, 14, 14, 14, 14, 14, 14, 14, 14)

	f, err := New(store, logger.NopLogger{})
	if err != nil {
		t.Fatalf("new forecaster: %v", err)
	}
	// Historical stddev is zero; the divisor falls back to 1 so the
	// deviation still registers instead of dividing by zero.
	got, err := f.Anomaly("library")
	if err != nil {
		t.Fatalf("anomaly: %v", err)
	}
	if !got {
		t.Errorf("4-point jump over flat history should be anomalous")
	}
}

type captureSink struct {
	metrics.NopSink
	events []metrics.ForecastEvent
}

func (s *captureSink) RecordForecast(events []metrics.ForecastEvent) error {
	s.events = append(s.events, events...)
	return nil
}

func TestForecastZonesPartialResults(t *testing.T) {
	store := NewSampleStore()
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	seedCounts(t, store, "library", start, 5, 5, 5)

	sink := &captureSink{}
	f, err := New(store, logger.NopLogger{}, WithSink(sink))
	if err != nil {
		t.Fatalf("new forecaster: %v", err)
	}

	forecasts, err := f.ForecastZones(context.Background(), []string{"library", "ghost"}, 1)
	if err == nil {
		t.Fatalf("zone without samples should be reported")
	}
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("joined error should wrap ErrInsufficientData, got %v", err)
	}
	if len(forecasts) != 1 || forecasts[0].Zone != "library" {
		t.Fatalf("forecasts = %v", forecasts)
	}
	if len(sink.events) != 1 || sink.events[0].Zone != "library" {
		t.Errorf("sink events = %v", sink.events)
	}
}

func TestForecastZonesCancelledContext(t *testing.T) {
	f, err := New(NewSampleStore(), logger.NopLogger{})
	if err != nil {
		t.Fatalf("new forecaster: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := f.ForecastZones(ctx, []string{"library"}, 1); err == nil {
		t.Errorf("cancelled context should fail")
	}
}

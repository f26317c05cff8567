package metrics

import (
	"context"
	"strconv"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/campustransit/dispatch/core/metrics"
	"github.com/campustransit/dispatch/infra/logger"
)

// InfluxConfig describes the InfluxDB endpoint events are written to.
type InfluxConfig struct {
	Enabled bool   `json:"enabled"`
	URL     string `json:"url"`
	Token   string `json:"token"`
	Org     string `json:"org"`
	Bucket  string `json:"bucket"`
}

// InfluxSink writes assignment and forecast events to an InfluxDB instance
// using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a sink for the given endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a
// NopSink when the health check fails, so a missing timeseries backend
// degrades observability instead of the service.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.Sink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordAssignment writes the dispatch attempt as a point.
func (s *InfluxSink) RecordAssignment(ev coremetrics.AssignmentEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("dispatch_assignment").
		AddTag("ride_id", ev.RideID).
		AddTag("driver_id", ev.DriverID).
		AddTag("policy", ev.Policy).
		AddTag("outcome", string(ev.Outcome)).
		AddField("distance_km", ev.DistanceKm).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordForecast writes one point per zone forecast.
func (s *InfluxSink) RecordForecast(events []coremetrics.ForecastEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for _, ev := range events {
		p := write.NewPointWithMeasurement("zone_forecast").
			AddTag("zone", ev.Zone).
			AddTag("trend", ev.Trend).
			AddTag("anomaly", strconv.FormatBool(ev.Anomaly)).
			AddField("predicted_demand", ev.PredictedDemand).
			AddField("confidence", ev.Confidence).
			AddField("duration_ms", float64(ev.Duration.Microseconds())/1000).
			SetTime(ev.Time)
		if err := s.writeAPI.WritePoint(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

// Close releases the underlying client.
func (s *InfluxSink) Close() { s.client.Close() }

// Package app composes the dispatch service from its parts.
package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/campustransit/dispatch/api"
	"github.com/campustransit/dispatch/config"
	"github.com/campustransit/dispatch/core/dispatch"
	"github.com/campustransit/dispatch/core/dispatch/audit"
	"github.com/campustransit/dispatch/core/docstore"
	"github.com/campustransit/dispatch/core/feed"
	"github.com/campustransit/dispatch/core/forecast"
	coremetrics "github.com/campustransit/dispatch/core/metrics"
	"github.com/campustransit/dispatch/core/model"
	"github.com/campustransit/dispatch/core/registry"
	"github.com/campustransit/dispatch/infra/logger"
	"github.com/campustransit/dispatch/infra/metrics"
	"github.com/campustransit/dispatch/infra/mqtt"
	"github.com/campustransit/dispatch/pkg/retry"
)

// Service orchestrates the registry, coordinator, forecaster and the
// ingestion and API surfaces.
type Service struct {
	Registry    *registry.Registry
	Coordinator *dispatch.Coordinator
	Forecaster  *forecast.Forecaster
	Samples     *forecast.SampleStore
	Feed        *feed.Feed

	cfg      *config.Config
	log      logger.Logger
	sink     coremetrics.Sink
	audit    audit.Store
	recorder *forecast.Recorder
	mqttIn   *mqtt.LocationConsumer
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")

	changes := feed.New(0)
	store := docstore.NewMemoryStore(changes)
	reg, err := registry.New(store, changes, logger.New("registry"))
	if err != nil {
		return nil, err
	}

	var sinks []coremetrics.Sink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink()
		if err != nil {
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.Influx.Enabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(cfg.Metrics.Influx))
	}
	var sink coremetrics.Sink = coremetrics.NopSink{}
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = metrics.NewMultiSink(sinks...)
	}

	var auditStore audit.Store = audit.NopStore{}
	if cfg.Dispatch.AuditLogPath != "" {
		auditStore, err = audit.NewJSONLStore(cfg.Dispatch.AuditLogPath)
		if err != nil {
			return nil, fmt.Errorf("audit log: %w", err)
		}
	}

	var policy dispatch.CandidatePolicy = dispatch.NearestPolicy{}
	if cfg.Dispatch.Policy == "first_available" {
		policy = dispatch.FirstAvailablePolicy{}
	}
	coord, err := dispatch.New(reg, policy, logger.New("dispatch"), sink, auditStore)
	if err != nil {
		return nil, err
	}

	samples := forecast.NewSampleStore()
	fcSink, _ := sink.(coremetrics.ForecastRecorder)
	opts := []forecast.Option{}
	if fcSink != nil {
		opts = append(opts, forecast.WithSink(fcSink))
	}
	forecaster, err := forecast.New(samples, logger.New("forecast"), opts...)
	if err != nil {
		return nil, err
	}

	return &Service{
		Registry:    reg,
		Coordinator: coord,
		Forecaster:  forecaster,
		Samples:     samples,
		Feed:        changes,
		cfg:         cfg,
		log:         logg,
		sink:        sink,
		audit:       auditStore,
		recorder:    forecast.NewRecorder(samples, time.Hour, logger.New("demand")),
	}, nil
}

// Run starts the workers and serves HTTP until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	if s.cfg.MQTT.Enabled {
		consumer, err := mqtt.NewLocationConsumer(ctx, s.cfg.MQTT, s.Registry, retry.DefaultPolicy())
		if err != nil {
			return fmt.Errorf("mqtt locations: %w", err)
		}
		s.mqttIn = consumer
	}

	if s.cfg.Metrics.PrometheusEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusAddr); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	pendingFilter := func(ev feed.Event) bool {
		if ev.Collection != registry.CollectionRides {
			return false
		}
		ride, ok := ev.Entity.(model.Ride)
		return ok && ride.Status == model.StatusPending
	}

	demandSub := s.Feed.Subscribe(pendingFilter)
	defer demandSub.Cancel()
	go s.recorder.Run(ctx, demandSub.C)

	if s.cfg.Dispatch.AutoDispatch {
		dispatchSub := s.Feed.Subscribe(pendingFilter)
		defer dispatchSub.Cancel()
		rides := make(chan string, 16)
		go func() {
			defer close(rides)
			for {
				select {
				case ev, ok := <-dispatchSub.C:
					if !ok {
						return
					}
					if ride, ok := ev.Entity.(model.Ride); ok {
						select {
						case rides <- ride.ID:
						case <-ctx.Done():
							return
						}
					}
				case <-ctx.Done():
					return
				}
			}
		}()
		go s.Coordinator.Run(ctx, rides)
	}

	go s.reportBacklog(ctx)

	srv := &http.Server{
		Addr: s.cfg.HTTP.Addr,
		Handler: api.New(
			s.Registry, s.Coordinator, s.Forecaster, s.Samples,
			s.cfg.Forecast.Zones, s.cfg.Forecast.DefaultHorizonHours,
			logger.New("api"),
		).Handler(),
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()
	s.log.Infof("serving API on %s", s.cfg.HTTP.Addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// reportBacklog periodically records the pending ride count.
func (s *Service) reportBacklog(ctx context.Context) {
	rec, ok := s.sink.(coremetrics.PendingRecorder)
	if !ok {
		return
	}
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			pending, err := s.Registry.PendingRides(ctx)
			if err != nil {
				s.log.Warnf("pending backlog: %v", err)
				continue
			}
			if err := rec.RecordPendingRides(len(pending)); err != nil {
				s.log.Errorf("record backlog: %v", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	if s.mqttIn != nil {
		s.mqttIn.Close()
	}
	s.recorder.Flush()
	s.Feed.Close()
	return s.audit.Close()
}

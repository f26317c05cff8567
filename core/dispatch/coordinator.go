// Package dispatch matches pending rides to available drivers. The
// assignment itself is the registry's conditional write, so two
// coordinators racing for the same ride cannot both succeed; the loser
// observes a conflict and re-evaluates instead of retrying blindly.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/campustransit/dispatch/core/dispatch/audit"
	"github.com/campustransit/dispatch/core/geo"
	"github.com/campustransit/dispatch/core/logger"
	"github.com/campustransit/dispatch/core/metrics"
	"github.com/campustransit/dispatch/core/model"
	"github.com/campustransit/dispatch/core/registry"
)

// Coordinator picks drivers for pending rides and performs assignments
// exactly once per ride.
type Coordinator struct {
	registry *registry.Registry
	policy   CandidatePolicy
	log      logger.Logger
	sink     metrics.Sink
	audit    audit.Store
	now      func() time.Time
}

// New creates a Coordinator. sink and auditStore may be nil, in which case
// no-op implementations are used.
func New(reg *registry.Registry, policy CandidatePolicy, log logger.Logger, sink metrics.Sink, auditStore audit.Store) (*Coordinator, error) {
	if reg == nil || policy == nil || log == nil {
		return nil, fmt.Errorf("dispatch: nil parameter provided to New")
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	if auditStore == nil {
		auditStore = audit.NopStore{}
	}
	return &Coordinator{
		registry: reg,
		policy:   policy,
		log:      log,
		sink:     sink,
		audit:    auditStore,
		now:      time.Now,
	}, nil
}

// Dispatch selects a candidate via the configured policy and assigns it to
// the ride.
func (c *Coordinator) Dispatch(ctx context.Context, rideID string) (model.Ride, error) {
	ride, err := c.registry.Ride(ctx, rideID)
	if err != nil {
		return model.Ride{}, err
	}
	drivers, err := c.registry.AvailableDrivers(ctx)
	if err != nil {
		return model.Ride{}, err
	}
	candidate, err := c.policy.Select(ride, drivers)
	if err != nil {
		c.record(ctx, audit.Record{
			Timestamp: c.now().UTC(),
			RideID:    rideID,
			Policy:    c.policy.Name(),
			Outcome:   string(metrics.OutcomeNoCandidates),
			Error:     err.Error(),
		})
		return model.Ride{}, err
	}
	return c.assign(ctx, ride, candidate, c.policy.Name())
}

// Assign performs a manual assignment with an externally chosen driver,
// going through the same conditional write as automatic dispatch.
func (c *Coordinator) Assign(ctx context.Context, rideID, driverID string) (model.Ride, error) {
	ride, err := c.registry.Ride(ctx, rideID)
	if err != nil {
		return model.Ride{}, err
	}
	driver, err := c.registry.Driver(ctx, driverID)
	if err != nil {
		return model.Ride{}, err
	}
	return c.assign(ctx, ride, driver, "manual")
}

func (c *Coordinator) assign(ctx context.Context, ride model.Ride, driver model.Driver, policy string) (model.Ride, error) {
	var distanceKm float64
	if driver.Location != nil {
		distanceKm = geo.Haversine(driver.Location.Lat, driver.Location.Lng, ride.PickupCoords.Lat, ride.PickupCoords.Lng)
	}
	assigned, err := c.registry.AssignDriver(ctx, ride.ID, driver.ID)
	rec := audit.Record{
		Timestamp:  c.now().UTC(),
		RideID:     ride.ID,
		DriverID:   driver.ID,
		Policy:     policy,
		DistanceKm: distanceKm,
	}
	ev := metrics.AssignmentEvent{
		RideID:     ride.ID,
		DriverID:   driver.ID,
		Policy:     policy,
		DistanceKm: distanceKm,
		Time:       rec.Timestamp,
	}
	switch {
	case err == nil:
		rec.Outcome = string(metrics.OutcomeAssigned)
		ev.Outcome = metrics.OutcomeAssigned
	case errors.Is(err, registry.ErrConflict):
		rec.Outcome = string(metrics.OutcomeConflict)
		rec.Error = err.Error()
		ev.Outcome = metrics.OutcomeConflict
		c.log.Warnf("ride %s: assignment conflict for driver %s: %v", ride.ID, driver.ID, err)
	default:
		rec.Outcome = string(metrics.OutcomeError)
		rec.Error = err.Error()
		ev.Outcome = metrics.OutcomeError
	}
	c.log.Debugw("dispatch decision", map[string]any{
		"ride_id":     ride.ID,
		"driver_id":   driver.ID,
		"policy":      policy,
		"distance_km": distanceKm,
		"outcome":     rec.Outcome,
	})
	c.record(ctx, rec)
	if serr := c.sink.RecordAssignment(ev); serr != nil {
		c.log.Errorf("record assignment metrics: %v", serr)
	}
	if err != nil {
		return model.Ride{}, err
	}
	return assigned, nil
}

func (c *Coordinator) record(ctx context.Context, rec audit.Record) {
	if err := c.audit.Append(ctx, rec); err != nil {
		c.log.Errorf("append audit record for ride %s: %v", rec.RideID, err)
	}
}

// Run processes ride IDs from the channel until the context is cancelled.
// Conflicts are expected when another coordinator wins a ride and are
// logged, not retried: the ride is no longer pending.
func (c *Coordinator) Run(ctx context.Context, rides <-chan string) {
	for {
		select {
		case id, ok := <-rides:
			if !ok {
				return
			}
			if _, err := c.Dispatch(ctx, id); err != nil {
				switch {
				case errors.Is(err, registry.ErrConflict):
					c.log.Debugf("ride %s already taken: %v", id, err)
				case errors.Is(err, ErrNoCandidates):
					c.log.Warnf("ride %s: %v", id, err)
				default:
					c.log.Errorf("dispatch ride %s: %v", id, err)
				}
			}
		case <-ctx.Done():
			return
		}
	}
}

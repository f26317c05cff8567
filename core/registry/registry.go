// Package registry owns ride and driver entities and enforces the ride
// lifecycle state machine. All mutations go through the document store's
// conditional write, so concurrency is scoped to individual entities and no
// registry-wide lock exists.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/campustransit/dispatch/core/docstore"
	"github.com/campustransit/dispatch/core/feed"
	"github.com/campustransit/dispatch/core/logger"
	"github.com/campustransit/dispatch/core/model"
)

// Store collection names.
const (
	CollectionRides   = "rides"
	CollectionDrivers = "drivers"
)

// RideRequest is the intake payload for a new ride.
type RideRequest struct {
	StudentID         string            `json:"student_id"`
	StudentName       string            `json:"student_name"`
	StudentPhone      string            `json:"student_phone,omitempty"`
	Pickup            string            `json:"pickup"`
	PickupCoords      model.Coordinates `json:"pickup_coords"`
	Destination       string            `json:"destination"`
	DestinationCoords model.Coordinates `json:"destination_coords"`
	Type              model.RideType    `json:"type"`
}

// Registry validates and mutates ride and driver records.
type Registry struct {
	store docstore.Store
	feed  *feed.Feed
	log   logger.Logger
	now   func() time.Time
	newID func() string

	cacheMu     sync.RWMutex
	lastPending []model.Ride
}

// Option customises a Registry.
type Option func(*Registry)

// WithClock overrides the time source, mainly for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) { r.now = now }
}

// WithIDGenerator overrides ride ID generation.
func WithIDGenerator(gen func() string) Option {
	return func(r *Registry) { r.newID = gen }
}

// New creates a Registry on top of the given store. events may be nil.
func New(store docstore.Store, events *feed.Feed, log logger.Logger, opts ...Option) (*Registry, error) {
	if store == nil {
		return nil, fmt.Errorf("registry: nil store")
	}
	if log == nil {
		return nil, fmt.Errorf("registry: nil logger")
	}
	r := &Registry{
		store: store,
		feed:  events,
		log:   log,
		now:   time.Now,
		newID: func() string { return uuid.NewString() },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Feed returns the change feed mutations are published on. It is nil when
// the registry was built without one.
func (r *Registry) Feed() *feed.Feed { return r.feed }

// CreateRide validates the request and stores a new pending ride with a
// server-assigned creation timestamp.
func (r *Registry) CreateRide(ctx context.Context, req RideRequest) (model.Ride, error) {
	if req.Type == "" {
		req.Type = model.RideOnDemand
	}
	ride := model.Ride{
		ID:                r.newID(),
		StudentID:         req.StudentID,
		StudentName:       req.StudentName,
		StudentPhone:      req.StudentPhone,
		Pickup:            req.Pickup,
		PickupCoords:      req.PickupCoords,
		Destination:       req.Destination,
		DestinationCoords: req.DestinationCoords,
		Type:              req.Type,
		Status:            model.StatusPending,
		RequestedAt:       r.now().UTC(),
	}
	if err := ride.Validate(); err != nil {
		return model.Ride{}, err
	}
	if err := r.store.Put(ctx, CollectionRides, ride.ID, ride, docstore.IfAbsent()); err != nil {
		return model.Ride{}, r.storeErr(err)
	}
	r.log.Infof("ride %s created for student %s", ride.ID, ride.StudentID)
	return ride, nil
}

// Ride returns the ride with the given ID.
func (r *Registry) Ride(ctx context.Context, id string) (model.Ride, error) {
	v, err := r.store.Get(ctx, CollectionRides, id)
	if err != nil {
		return model.Ride{}, r.storeErr(err)
	}
	return v.(model.Ride), nil
}

// AssignDriver sets the driver reference on a pending ride and moves it to
// accepted in a single conditional write. Exactly one concurrent caller can
// succeed; the rest observe ErrConflict and must re-fetch before deciding
// what to do next.
func (r *Registry) AssignDriver(ctx context.Context, rideID, driverID string) (model.Ride, error) {
	driver, err := r.Driver(ctx, driverID)
	if err != nil {
		return model.Ride{}, err
	}
	if !driver.Available() {
		return model.Ride{}, fmt.Errorf("%w: driver %s is %s (%d/%d seats)",
			ErrDriverUnavailable, driver.ID, driver.Status, driver.CurrentPassengers, driver.Capacity)
	}
	ride, err := r.Ride(ctx, rideID)
	if err != nil {
		return model.Ride{}, err
	}

	now := r.now().UTC()
	updated := ride
	updated.Status = model.StatusAccepted
	updated.Driver = &model.AssignedDriver{
		DriverID:      driver.ID,
		DriverName:    driver.Name,
		VehicleNumber: driver.VehicleNumber,
	}
	updated.AcceptedAt = &now

	pre := func(current any, exists bool) bool {
		if !exists {
			return false
		}
		return current.(model.Ride).Status == model.StatusPending
	}
	if err := r.store.Put(ctx, CollectionRides, rideID, updated, pre); err != nil {
		if errors.Is(err, docstore.ErrPreconditionFailed) {
			r.log.Warnf("assignment of ride %s to driver %s lost the race", rideID, driverID)
			return model.Ride{}, fmt.Errorf("%w: ride %s is no longer pending", ErrConflict, rideID)
		}
		return model.Ride{}, r.storeErr(err)
	}
	r.log.Infof("ride %s assigned to driver %s (%s)", rideID, driver.ID, driver.VehicleNumber)
	return updated, nil
}

// Transition moves a ride from exactly the given state to the next one. A
// mismatched precondition fails with ErrInvalidTransition and leaves the
// ride untouched. Assignment cannot be performed through Transition; use
// AssignDriver so the driver reference is set atomically.
func (r *Registry) Transition(ctx context.Context, rideID string, from, to model.RideStatus) (model.Ride, error) {
	if !from.Valid() || !to.Valid() {
		return model.Ride{}, fmt.Errorf("%w: unknown status", ErrInvalidTransition)
	}
	if !from.CanTransitionTo(to) {
		return model.Ride{}, fmt.Errorf("%w: %s -> %s is not a legal edge", ErrInvalidTransition, from, to)
	}
	if to == model.StatusAccepted || to == model.StatusAssigned {
		return model.Ride{}, fmt.Errorf("%w: assignment must go through AssignDriver", ErrInvalidTransition)
	}

	ride, err := r.Ride(ctx, rideID)
	if err != nil {
		return model.Ride{}, err
	}

	now := r.now().UTC()
	updated := ride
	updated.Status = to
	switch to {
	case model.StatusInProgress:
		updated.StartedAt = &now
	case model.StatusCompleted:
		updated.CompletedAt = &now
	case model.StatusCancelled:
		updated.CancelledAt = &now
	}

	pre := func(current any, exists bool) bool {
		return exists && current.(model.Ride).Status == from
	}
	if err := r.store.Put(ctx, CollectionRides, rideID, updated, pre); err != nil {
		if errors.Is(err, docstore.ErrPreconditionFailed) {
			cur, gerr := r.Ride(ctx, rideID)
			if gerr != nil {
				return model.Ride{}, fmt.Errorf("%w: ride %s no longer in %s", ErrInvalidTransition, rideID, from)
			}
			return model.Ride{}, fmt.Errorf("%w: ride %s is %s, expected %s", ErrInvalidTransition, rideID, cur.Status, from)
		}
		return model.Ride{}, r.storeErr(err)
	}
	r.log.Infof("ride %s: %s -> %s", rideID, from, to)
	return updated, nil
}

// Cancel cancels a ride. Cancellation is legal from pending, accepted and
// assigned; rides already in progress or finished reject it.
func (r *Registry) Cancel(ctx context.Context, rideID string) (model.Ride, error) {
	ride, err := r.Ride(ctx, rideID)
	if err != nil {
		return model.Ride{}, err
	}
	if !ride.Status.CanTransitionTo(model.StatusCancelled) {
		return model.Ride{}, fmt.Errorf("%w: cannot cancel ride in state %s", ErrInvalidTransition, ride.Status)
	}
	return r.Transition(ctx, rideID, ride.Status, model.StatusCancelled)
}

// PendingRides returns all rides awaiting assignment, oldest first. When
// the store is unreachable the last successfully fetched snapshot is
// returned instead; with no snapshot the failure is surfaced.
func (r *Registry) PendingRides(ctx context.Context) ([]model.Ride, error) {
	rides, err := r.queryRides(ctx, func(ride model.Ride) bool {
		return ride.Status == model.StatusPending
	})
	if err != nil {
		r.cacheMu.RLock()
		cached := r.lastPending
		r.cacheMu.RUnlock()
		if cached != nil {
			r.log.Warnf("pending ride query degraded to cached snapshot: %v", err)
			return append([]model.Ride(nil), cached...), nil
		}
		return nil, err
	}
	r.cacheMu.Lock()
	r.lastPending = append([]model.Ride(nil), rides...)
	r.cacheMu.Unlock()
	return rides, nil
}

// ActiveRides returns rides that are pending, accepted or in progress.
func (r *Registry) ActiveRides(ctx context.Context) ([]model.Ride, error) {
	return r.queryRides(ctx, func(ride model.Ride) bool {
		return !ride.Status.Terminal()
	})
}

// StudentRides returns every ride requested by the given student.
func (r *Registry) StudentRides(ctx context.Context, studentID string) ([]model.Ride, error) {
	return r.queryRides(ctx, func(ride model.Ride) bool {
		return ride.StudentID == studentID
	})
}

// DriverRides returns every ride served by the given driver.
func (r *Registry) DriverRides(ctx context.Context, driverID string) ([]model.Ride, error) {
	return r.queryRides(ctx, func(ride model.Ride) bool {
		return ride.Driver != nil && ride.Driver.DriverID == driverID
	})
}

// Rides returns all rides, oldest first.
func (r *Registry) Rides(ctx context.Context) ([]model.Ride, error) {
	return r.queryRides(ctx, nil)
}

func (r *Registry) queryRides(ctx context.Context, match func(model.Ride) bool) ([]model.Ride, error) {
	var pred docstore.Predicate
	if match != nil {
		pred = func(v any) bool { return match(v.(model.Ride)) }
	}
	docs, err := r.store.Query(ctx, CollectionRides, pred, func(a, b any) bool {
		return a.(model.Ride).RequestedAt.Before(b.(model.Ride).RequestedAt)
	})
	if err != nil {
		return nil, r.storeErr(err)
	}
	rides := make([]model.Ride, 0, len(docs))
	for _, d := range docs {
		rides = append(rides, d.(model.Ride))
	}
	return rides, nil
}

func (r *Registry) storeErr(err error) error {
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		return fmt.Errorf("%w: %v", ErrNotFound, err)
	case errors.Is(err, docstore.ErrPreconditionFailed):
		return fmt.Errorf("%w: %v", ErrConflict, err)
	case errors.Is(err, docstore.ErrUnavailable):
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	default:
		return err
	}
}

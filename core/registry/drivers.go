package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/campustransit/dispatch/core/docstore"
	"github.com/campustransit/dispatch/core/model"
)

// PutDriver validates and stores a driver record, replacing any previous
// version.
func (r *Registry) PutDriver(ctx context.Context, d model.Driver) error {
	if err := d.Validate(); err != nil {
		return err
	}
	if err := r.store.Put(ctx, CollectionDrivers, d.ID, d, nil); err != nil {
		return r.storeErr(err)
	}
	return nil
}

// Driver returns the driver with the given ID.
func (r *Registry) Driver(ctx context.Context, id string) (model.Driver, error) {
	v, err := r.store.Get(ctx, CollectionDrivers, id)
	if err != nil {
		return model.Driver{}, r.storeErr(err)
	}
	return v.(model.Driver), nil
}

// Drivers returns all drivers ordered by ID.
func (r *Registry) Drivers(ctx context.Context) ([]model.Driver, error) {
	return r.queryDrivers(ctx, nil)
}

// AvailableDrivers returns drivers that can take on another passenger.
func (r *Registry) AvailableDrivers(ctx context.Context) ([]model.Driver, error) {
	return r.queryDrivers(ctx, func(d model.Driver) bool { return d.Available() })
}

// SetDriverStatus updates a driver's availability state.
func (r *Registry) SetDriverStatus(ctx context.Context, id string, status model.DriverStatus) (model.Driver, error) {
	d, err := r.mutateDriver(ctx, id, func(d model.Driver) (model.Driver, error) {
		d.Status = status
		return d, nil
	})
	if err != nil {
		return model.Driver{}, err
	}
	r.log.Infof("driver %s is now %s", id, status)
	return d, nil
}

// SetPassengerCount records the number of passengers currently on board.
func (r *Registry) SetPassengerCount(ctx context.Context, id string, count int) (model.Driver, error) {
	return r.mutateDriver(ctx, id, func(d model.Driver) (model.Driver, error) {
		d.CurrentPassengers = count
		return d, nil
	})
}

// UpdateDriverLocation applies a position report. Out-of-order deliveries
// are resolved by discarding reports not newer than the stored one with
// ErrStaleLocation.
func (r *Registry) UpdateDriverLocation(ctx context.Context, id string, loc model.Location) (model.Driver, error) {
	return r.mutateDriver(ctx, id, func(d model.Driver) (model.Driver, error) {
		if d.Location != nil && !d.Location.Timestamp.Before(loc.Timestamp) {
			return model.Driver{}, fmt.Errorf("%w: driver %s report at %s not newer than stored",
				ErrStaleLocation, id, loc.Timestamp)
		}
		d.Location = &loc
		return d, nil
	})
}

// driverWriteRetries bounds the re-read loop when a driver document moves
// between the read and the conditional write.
const driverWriteRetries = 5

// mutateDriver re-reads the driver, applies fn and writes the result back,
// conditional on the document being unchanged since the read. A writer
// holding a stale read therefore cannot revert fields it does not own (a
// position report racing an admin status change, for example); it loses
// the write and reapplies fn to the fresh document.
func (r *Registry) mutateDriver(ctx context.Context, id string, fn func(model.Driver) (model.Driver, error)) (model.Driver, error) {
	var lastErr error
	for attempt := 0; attempt < driverWriteRetries; attempt++ {
		d, err := r.Driver(ctx, id)
		if err != nil {
			return model.Driver{}, err
		}
		updated, err := fn(d)
		if err != nil {
			return model.Driver{}, err
		}
		if err := updated.Validate(); err != nil {
			return model.Driver{}, err
		}
		snapshot := d
		pre := func(current any, exists bool) bool {
			return exists && current.(model.Driver) == snapshot
		}
		err = r.store.Put(ctx, CollectionDrivers, id, updated, pre)
		if err == nil {
			return updated, nil
		}
		if !errors.Is(err, docstore.ErrPreconditionFailed) {
			return model.Driver{}, r.storeErr(err)
		}
		lastErr = err
	}
	return model.Driver{}, r.storeErr(lastErr)
}

func (r *Registry) queryDrivers(ctx context.Context, match func(model.Driver) bool) ([]model.Driver, error) {
	var pred docstore.Predicate
	if match != nil {
		pred = func(v any) bool { return match(v.(model.Driver)) }
	}
	docs, err := r.store.Query(ctx, CollectionDrivers, pred, func(a, b any) bool {
		return a.(model.Driver).ID < b.(model.Driver).ID
	})
	if err != nil {
		return nil, r.storeErr(err)
	}
	drivers := make([]model.Driver, 0, len(docs))
	for _, d := range docs {
		drivers = append(drivers, d.(model.Driver))
	}
	return drivers, nil
}

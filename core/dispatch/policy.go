package dispatch

import (
	"errors"
	"fmt"
	"sort"

	"github.com/campustransit/dispatch/core/geo"
	"github.com/campustransit/dispatch/core/model"
)

// ErrNoCandidates signals that no eligible driver exists for a ride.
var ErrNoCandidates = errors.New("dispatch: no eligible driver")

// CandidatePolicy selects a driver for a pending ride from the set of
// eligible drivers. The coordinator also accepts an externally supplied
// candidate through Assign, bypassing the policy.
type CandidatePolicy interface {
	// Name identifies the policy in logs and metrics.
	Name() string
	// Select returns the chosen driver. It is only handed drivers that
	// are active or idle with spare capacity.
	Select(ride model.Ride, drivers []model.Driver) (model.Driver, error)
}

// NearestPolicy ranks candidates by great-circle distance from their last
// known location to the pickup point. Drivers without a location report are
// skipped: with no position there is nothing to rank them by.
type NearestPolicy struct{}

func (NearestPolicy) Name() string { return "nearest" }

func (NearestPolicy) Select(ride model.Ride, drivers []model.Driver) (model.Driver, error) {
	type ranked struct {
		driver model.Driver
		km     float64
	}
	candidates := make([]ranked, 0, len(drivers))
	for _, d := range drivers {
		if d.Location == nil {
			continue
		}
		km := geo.Haversine(d.Location.Lat, d.Location.Lng, ride.PickupCoords.Lat, ride.PickupCoords.Lng)
		candidates = append(candidates, ranked{driver: d, km: km})
	}
	if len(candidates) == 0 {
		return model.Driver{}, fmt.Errorf("%w: no located driver for ride %s", ErrNoCandidates, ride.ID)
	}
	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].km != candidates[j].km {
			return candidates[i].km < candidates[j].km
		}
		return candidates[i].driver.ID < candidates[j].driver.ID
	})
	return candidates[0].driver, nil
}

// FirstAvailablePolicy picks the first eligible driver by ID. It is the
// fallback when location data is too sparse for distance ranking.
type FirstAvailablePolicy struct{}

func (FirstAvailablePolicy) Name() string { return "first_available" }

func (FirstAvailablePolicy) Select(ride model.Ride, drivers []model.Driver) (model.Driver, error) {
	if len(drivers) == 0 {
		return model.Driver{}, fmt.Errorf("%w: ride %s", ErrNoCandidates, ride.ID)
	}
	best := drivers[0]
	for _, d := range drivers[1:] {
		if d.ID < best.ID {
			best = d
		}
	}
	return best, nil
}

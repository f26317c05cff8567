// Package fleet converts zone forecasts into per-zone vehicle
// recommendations.
package fleet

import (
	"errors"
	"math"

	"github.com/campustransit/dispatch/core/model"
)

// ErrNoDemand signals that the total predicted demand across all zones is
// zero. Allocation is undefined in that case; callers must choose a
// fallback such as EvenSplit.
var ErrNoDemand = errors.New("fleet: total predicted demand is zero")

// Allocate recommends a vehicle count per zone, proportional to each
// zone's share of the total predicted demand. Every zone receives at least
// one vehicle.
func Allocate(forecasts []model.ZoneForecast, availableVehicles int) ([]model.Allocation, error) {
	total := 0
	for _, fc := range forecasts {
		total += fc.PredictedDemand
	}
	if total == 0 {
		return nil, ErrNoDemand
	}
	allocations := make([]model.Allocation, 0, len(forecasts))
	for _, fc := range forecasts {
		share := float64(fc.PredictedDemand) / float64(total) * float64(availableVehicles)
		n := int(math.Round(share))
		if n < 1 {
			n = 1
		}
		allocations = append(allocations, model.Allocation{
			Zone:                fc.Zone,
			RecommendedVehicles: n,
		})
	}
	return allocations, nil
}

// EvenSplit distributes vehicles uniformly across zones, at least one per
// zone, handing the remainder out one by one in zone order so no vehicle
// is left unallocated. It is the documented fallback when Allocate reports
// ErrNoDemand.
func EvenSplit(zones []string, availableVehicles int) []model.Allocation {
	if len(zones) == 0 {
		return nil
	}
	per := availableVehicles / len(zones)
	rem := availableVehicles % len(zones)
	if per < 1 {
		per, rem = 1, 0
	}
	allocations := make([]model.Allocation, 0, len(zones))
	for i, z := range zones {
		n := per
		if i < rem {
			n++
		}
		allocations = append(allocations, model.Allocation{Zone: z, RecommendedVehicles: n})
	}
	return allocations
}

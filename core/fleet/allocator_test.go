package fleet

import (
	"errors"
	"testing"

	"github.com/campustransit/dispatch/core/model"
)

func TestAllocateProportional(t *testing.T) {
	forecasts := []model.ZoneForecast{
		{Zone: "library", PredictedDemand: 60},
		{Zone: "gym", PredictedDemand: 30},
		{Zone: "dorms", PredictedDemand: 10},
	}
	allocations, err := Allocate(forecasts, 10)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	want := map[string]int{"library": 6, "gym": 3, "dorms": 1}
	for _, a := range allocations {
		if a.RecommendedVehicles != want[a.Zone] {
			t.Errorf("zone %s: got %d vehicles, want %d", a.Zone, a.RecommendedVehicles, want[a.Zone])
		}
	}
}

func TestAllocateMinimumOnePerZone(t *testing.T) {
	forecasts := []model.ZoneForecast{
		{Zone: "library", PredictedDemand: 99},
		{Zone: "gym", PredictedDemand: 1},
	}
	allocations, err := Allocate(forecasts, 5)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}
	for _, a := range allocations {
		if a.RecommendedVehicles < 1 {
			t.Errorf("zone %s received %d vehicles; every zone gets at least one", a.Zone, a.RecommendedVehicles)
		}
	}
}

func TestAllocateNoDemand(t *testing.T) {
	forecasts := []model.ZoneForecast{
		{Zone: "library", PredictedDemand: 0},
		{Zone: "gym", PredictedDemand: 0},
	}
	if _, err := Allocate(forecasts, 5); !errors.Is(err, ErrNoDemand) {
		t.Fatalf("zero total demand: got %v, want ErrNoDemand", err)
	}
}

func TestEvenSplit(t *testing.T) {
	allocations := EvenSplit([]string{"library", "gym"}, 6)
	for _, a := range allocations {
		if a.RecommendedVehicles != 3 {
			t.Errorf("zone %s: got %d, want 3", a.Zone, a.RecommendedVehicles)
		}
	}

	// A remainder is handed out in zone order instead of being stranded.
	allocations = EvenSplit([]string{"library", "gym", "dorms"}, 5)
	want := map[string]int{"library": 2, "gym": 2, "dorms": 1}
	total := 0
	for _, a := range allocations {
		total += a.RecommendedVehicles
		if a.RecommendedVehicles != want[a.Zone] {
			t.Errorf("zone %s: got %d, want %d", a.Zone, a.RecommendedVehicles, want[a.Zone])
		}
	}
	if total != 5 {
		t.Errorf("allocated %d vehicles in total, want all 5", total)
	}

	// More zones than vehicles still yields one per zone.
	allocations = EvenSplit([]string{"a", "b", "c"}, 2)
	for _, a := range allocations {
		if a.RecommendedVehicles != 1 {
			t.Errorf("zone %s: got %d, want 1", a.Zone, a.RecommendedVehicles)
		}
	}

	if got := EvenSplit(nil, 5); got != nil {
		t.Errorf("no zones should yield no allocations, got %v", got)
	}
}

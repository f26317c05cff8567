package geo

import (
	"math"
	"testing"

	"github.com/campustransit/dispatch/core/model"
)

func TestHaversine(t *testing.T) {
	// Paris to London is roughly 344 km.
	got := Haversine(48.8566, 2.3522, 51.5074, -0.1278)
	if math.Abs(got-344) > 5 {
		t.Errorf("Paris-London = %.1f km, want ~344", got)
	}

	if got := Haversine(12.97, 77.59, 12.97, 77.59); got != 0 {
		t.Errorf("identical points = %v, want 0", got)
	}
}

func TestHaversineSymmetry(t *testing.T) {
	ab := Haversine(12.9716, 77.5946, 13.0358, 77.5970)
	ba := Haversine(13.0358, 77.5970, 12.9716, 77.5946)
	if math.Abs(ab-ba) > 1e-9 {
		t.Errorf("distance is not symmetric: %v vs %v", ab, ba)
	}
}

func TestDistance(t *testing.T) {
	a := model.Coordinates{Lat: 12.9716, Lng: 77.5946}
	b := model.Coordinates{Lat: 12.9791, Lng: 77.5913}
	got := Distance(a, b)
	if got <= 0 || got > 2 {
		t.Errorf("campus-scale distance = %v km, want under 2", got)
	}
	if got != Haversine(a.Lat, a.Lng, b.Lat, b.Lng) {
		t.Errorf("Distance should delegate to Haversine")
	}
}

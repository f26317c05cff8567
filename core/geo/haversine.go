// Package geo provides great-circle distance helpers used for candidate
// ranking. Distances are indicative only and never used for routing.
package geo

import (
	"math"

	"github.com/campustransit/dispatch/core/model"
)

const earthRadiusKm = 6371.0

func degreesToRadians(degrees float64) float64 {
	return degrees * math.Pi / 180
}

// Haversine returns the great-circle distance in kilometers between two
// geographic points.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := degreesToRadians(lat1)
	lat2Rad := degreesToRadians(lat2)
	deltaLat := degreesToRadians(lat2 - lat1)
	deltaLon := degreesToRadians(lon2 - lon1)

	a := math.Pow(math.Sin(deltaLat/2), 2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Pow(math.Sin(deltaLon/2), 2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusKm * c
}

// Distance returns the distance in kilometers between two coordinate pairs.
func Distance(a, b model.Coordinates) float64 {
	return Haversine(a.Lat, a.Lng, b.Lat, b.Lng)
}

package model

import "time"

// Trend labels the direction of recent demand movement in a zone.
type Trend string

const (
	TrendIncreasing Trend = "increasing"
	TrendDecreasing Trend = "decreasing"
	TrendStable     Trend = "stable"
)

// DemandSample is one observed request count for a zone. Samples are
// immutable once recorded.
type DemandSample struct {
	Zone      string    `json:"zone"`
	Timestamp time.Time `json:"timestamp"`
	Count     int       `json:"count"`
}

// ZoneForecast is a derived demand projection for a single zone. It is
// recomputed on demand and never persisted.
type ZoneForecast struct {
	Zone            string `json:"zone"`
	CurrentDemand   int    `json:"current_demand"`
	PredictedDemand int    `json:"predicted_demand"`
	Confidence      int    `json:"confidence"` // 0-100
	Trend           Trend  `json:"trend"`
}

// Allocation is a recommended vehicle count for a zone.
type Allocation struct {
	Zone                string `json:"zone"`
	RecommendedVehicles int    `json:"recommended_vehicles"`
}

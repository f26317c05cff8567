// Package forecast computes per-zone demand forecasts from an append-only
// record of demand observations.
package forecast

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/campustransit/dispatch/core/model"
)

// SampleStore is the append-only record of per-zone demand observations.
// Samples are kept ordered by timestamp and are never mutated once
// recorded; readers always receive copies.
type SampleStore struct {
	mu      sync.RWMutex
	samples map[string][]model.DemandSample
}

// NewSampleStore creates an empty store.
func NewSampleStore() *SampleStore {
	return &SampleStore{samples: map[string][]model.DemandSample{}}
}

// Append records one observation. Out-of-order arrivals are inserted at
// their timestamp position rather than rejected.
func (s *SampleStore) Append(sample model.DemandSample) error {
	if sample.Zone == "" {
		return fmt.Errorf("forecast: sample without zone")
	}
	if sample.Count < 0 {
		return fmt.Errorf("forecast: negative demand count %d", sample.Count)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	zs := s.samples[sample.Zone]
	if n := len(zs); n == 0 || !sample.Timestamp.Before(zs[n-1].Timestamp) {
		s.samples[sample.Zone] = append(zs, sample)
		return nil
	}
	i := sort.Search(len(zs), func(i int) bool { return zs[i].Timestamp.After(sample.Timestamp) })
	zs = append(zs, model.DemandSample{})
	copy(zs[i+1:], zs[i:])
	zs[i] = sample
	s.samples[sample.Zone] = zs
	return nil
}

// Record is a convenience wrapper around Append.
func (s *SampleStore) Record(zone string, ts time.Time, count int) error {
	return s.Append(model.DemandSample{Zone: zone, Timestamp: ts, Count: count})
}

// Samples returns a copy of the zone's observations, oldest first.
func (s *SampleStore) Samples(zone string) []model.DemandSample {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.DemandSample(nil), s.samples[zone]...)
}

// Count returns the number of observations recorded for the zone.
func (s *SampleStore) Count(zone string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.samples[zone])
}

// Zones lists all zones with at least one observation, sorted by name.
func (s *SampleStore) Zones() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	zones := make([]string, 0, len(s.samples))
	for z := range s.samples {
		zones = append(zones, z)
	}
	sort.Strings(zones)
	return zones
}

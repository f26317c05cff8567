package forecast

import (
	"math/rand"
	"testing"
	"time"
)

func TestSeed(t *testing.T) {
	store := NewSampleStore()
	now := time.Date(2026, 3, 6, 12, 0, 0, 0, time.UTC) // Friday noon
	rng := rand.New(rand.NewSource(1))

	if err := Seed(store, []string{"library", "gym"}, 2, now, rng); err != nil {
		t.Fatalf("seed: %v", err)
	}

	for _, zone := range []string{"library", "gym"} {
		samples := store.Samples(zone)
		// Two full days plus the 13 hours of the current day.
		if len(samples) != 61 {
			t.Fatalf("zone %s has %d samples, want 61", zone, len(samples))
		}
		for i := 1; i < len(samples); i++ {
			if samples[i].Timestamp.Before(samples[i-1].Timestamp) {
				t.Fatalf("zone %s samples out of order at %d", zone, i)
			}
		}
		for _, s := range samples {
			if s.Timestamp.After(now) {
				t.Errorf("zone %s has a sample in the future: %v", zone, s.Timestamp)
			}
			if s.Count < 0 {
				t.Errorf("zone %s has negative demand %d", zone, s.Count)
			}
		}
	}

	// Peak hours should on average carry more demand than night hours.
	var peak, night, peaks, nights int
	for _, s := range store.Samples("library") {
		switch h := s.Timestamp.Hour(); {
		case h >= 8 && h <= 10:
			peak += s.Count
			peaks++
		case h >= 22 || h <= 6:
			night += s.Count
			nights++
		}
	}
	if peaks == 0 || nights == 0 {
		t.Fatalf("seed covered no peak or night hours")
	}
	if peak*nights <= night*peaks {
		t.Errorf("peak demand (%d/%d) should exceed night demand (%d/%d)", peak, peaks, night, nights)
	}
}

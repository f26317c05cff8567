package forecast

import (
	"math/rand"
	"time"
)

// Seed fills the store with plausible hourly demand history for the given
// zones, covering the given number of days up to now. It exists for demos
// and load tests; production samples come from real ride intake.
func Seed(store *SampleStore, zones []string, days int, now time.Time, rng *rand.Rand) error {
	if rng == nil {
		rng = rand.New(rand.NewSource(now.UnixNano()))
	}
	for day := days; day >= 0; day-- {
		date := now.AddDate(0, 0, -day)
		for hour := 0; hour < 24; hour++ {
			ts := time.Date(date.Year(), date.Month(), date.Day(), hour, 0, 0, 0, date.Location())
			if ts.After(now) {
				continue
			}
			for i, zone := range zones {
				demand := float64(5 + i*2)
				switch {
				case hour >= 8 && hour <= 10:
					demand *= 2
				case hour >= 17 && hour <= 19:
					demand *= 1.8
				case hour >= 22 || hour <= 6:
					demand *= 0.3
				}
				demand *= 0.8 + rng.Float64()*0.4
				if wd := ts.Weekday(); wd == time.Saturday || wd == time.Sunday {
					demand *= 0.6
				}
				if err := store.Record(zone, ts, int(demand+0.5)); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

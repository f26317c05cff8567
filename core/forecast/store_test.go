package forecast

import (
	"testing"
	"time"

	"github.com/campustransit/dispatch/core/model"
)

func TestSampleStoreOrdering(t *testing.T) {
	store := NewSampleStore()
	base := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	for _, h := range []int{2, 0, 3, 1} {
		if err := store.Record("library", base.Add(time.Duration(h)*time.Hour), h); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	samples := store.Samples("library")
	if len(samples) != 4 {
		t.Fatalf("got %d samples, want 4", len(samples))
	}
	for i, s := range samples {
		if s.Count != i {
			t.Errorf("sample %d has count %d; out-of-order arrival was not inserted by timestamp", i, s.Count)
		}
	}
}

func TestSampleStoreValidation(t *testing.T) {
	store := NewSampleStore()
	now := time.Now()
	if err := store.Record("", now, 1); err == nil {
		t.Errorf("sample without zone should be rejected")
	}
	if err := store.Record("library", now, -1); err == nil {
		t.Errorf("negative count should be rejected")
	}
	if err := store.Record("library", now, 0); err != nil {
		t.Errorf("zero count is a legitimate quiet-hour sample: %v", err)
	}
}

func TestSampleStoreReturnsCopies(t *testing.T) {
	store := NewSampleStore()
	now := time.Now()
	if err := store.Record("library", now, 5); err != nil {
		t.Fatalf("record: %v", err)
	}
	samples := store.Samples("library")
	samples[0] = model.DemandSample{Zone: "library", Timestamp: now, Count: 99}
	if got := store.Samples("library")[0].Count; got != 5 {
		t.Errorf("caller mutation leaked into the store: count = %d", got)
	}
}

func TestSampleStoreZones(t *testing.T) {
	store := NewSampleStore()
	now := time.Now()
	for _, z := range []string{"gym", "library", "dorms"} {
		if err := store.Record(z, now, 1); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	zones := store.Zones()
	if len(zones) != 3 || zones[0] != "dorms" || zones[1] != "gym" || zones[2] != "library" {
		t.Errorf("zones = %v, want sorted [dorms gym library]", zones)
	}
	if store.Count("gym") != 1 {
		t.Errorf("count = %d, want 1", store.Count("gym"))
	}
}

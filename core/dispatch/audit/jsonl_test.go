package audit

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestJSONLStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "dispatch.jsonl")
	store, err := NewJSONLStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = store.Close() }()

	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	recs := []Record{
		{Timestamp: base, RideID: "r1", DriverID: "d1", Policy: "nearest", DistanceKm: 1.2, Outcome: "assigned"},
		{Timestamp: base.Add(time.Minute), RideID: "r2", DriverID: "d1", Policy: "nearest", Outcome: "conflict", Error: "lost the race"},
		{Timestamp: base.Add(2 * time.Minute), RideID: "r3", Policy: "nearest", Outcome: "no_candidates"},
	}
	for _, rec := range recs {
		if err := store.Append(ctx, rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	all, err := store.Query(ctx, Query{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("got %d records, want 3", len(all))
	}
	if all[0].RideID != "r1" || all[0].DistanceKm != 1.2 {
		t.Errorf("first record = %+v", all[0])
	}
}

func TestJSONLStoreQueryFilters(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "dispatch.jsonl")
	store, err := NewJSONLStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = store.Close() }()

	base := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)
	for i, rec := range []Record{
		{RideID: "r1", DriverID: "d1", Outcome: "assigned"},
		{RideID: "r2", DriverID: "d2", Outcome: "conflict"},
		{RideID: "r3", DriverID: "d1", Outcome: "assigned"},
	} {
		rec.Timestamp = base.Add(time.Duration(i) * time.Hour)
		if err := store.Append(ctx, rec); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	byDriver, err := store.Query(ctx, Query{DriverID: "d1"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(byDriver) != 2 {
		t.Errorf("driver filter returned %d records, want 2", len(byDriver))
	}

	byOutcome, err := store.Query(ctx, Query{Outcome: "conflict"})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(byOutcome) != 1 || byOutcome[0].RideID != "r2" {
		t.Errorf("outcome filter returned %+v", byOutcome)
	}

	windowed, err := store.Query(ctx, Query{Start: base.Add(30 * time.Minute), End: base.Add(90 * time.Minute)})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(windowed) != 1 || windowed[0].RideID != "r2" {
		t.Errorf("time window returned %+v", windowed)
	}
}

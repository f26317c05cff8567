package forecast

import (
	"context"
	"sync"
	"time"

	"github.com/campustransit/dispatch/core/feed"
	"github.com/campustransit/dispatch/core/logger"
	"github.com/campustransit/dispatch/core/model"
)

// Recorder aggregates incoming ride requests into per-zone demand samples.
// Requests are counted in fixed time buckets; when a bucket closes, one
// sample per observed zone is appended to the store. Zones that were seen
// before but received no requests get an explicit zero sample, so quiet
// hours push the forecast down instead of being invisible.
type Recorder struct {
	store    *SampleStore
	interval time.Duration
	log      logger.Logger

	mu     sync.Mutex
	bucket time.Time
	dirty  bool
	counts map[string]int
	known  map[string]struct{}
}

// NewRecorder creates a Recorder flushing one sample per zone every
// interval. An interval of zero selects one hour.
func NewRecorder(store *SampleStore, interval time.Duration, log logger.Logger) *Recorder {
	if interval <= 0 {
		interval = time.Hour
	}
	return &Recorder{
		store:    store,
		interval: interval,
		log:      log,
		counts:   map[string]int{},
		known:    map[string]struct{}{},
	}
}

// Observe counts one request for the zone at time t.
func (r *Recorder) Observe(zone string, t time.Time) {
	if zone == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	bucket := t.Truncate(r.interval)
	if r.bucket.IsZero() {
		r.bucket = bucket
	} else if bucket.After(r.bucket) {
		r.flushLocked()
		r.bucket = bucket
	}
	r.counts[zone]++
	r.known[zone] = struct{}{}
	r.dirty = true
}

// Flush closes the current bucket and appends its samples. The bucket
// advances past the flushed one, so late observations falling into it are
// counted in the next bucket instead of recording its timestamps twice.
func (r *Recorder) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flushLocked()
}

func (r *Recorder) flushLocked() {
	if r.bucket.IsZero() || !r.dirty {
		return
	}
	for zone := range r.known {
		if err := r.store.Record(zone, r.bucket, r.counts[zone]); err != nil {
			r.log.Errorf("record demand sample for zone %s: %v", zone, err)
		}
	}
	r.counts = map[string]int{}
	r.bucket = r.bucket.Add(r.interval)
	r.dirty = false
}

// Run consumes ride events until the context is cancelled or the channel
// closes, observing every newly created pending ride. A degraded feed
// event is logged and skipped; the subscription owner re-subscribes.
func (r *Recorder) Run(ctx context.Context, events <-chan feed.Event) {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if ev.Err != nil {
				r.log.Warnf("demand feed degraded: %v", ev.Err)
				continue
			}
			ride, ok := ev.Entity.(model.Ride)
			if !ok || ride.Status != model.StatusPending {
				continue
			}
			r.Observe(ride.Pickup, ride.RequestedAt)
		case <-ctx.Done():
			return
		}
	}
}

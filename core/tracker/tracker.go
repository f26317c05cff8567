// Package tracker pushes periodic driver position reports into the
// registry. One Tracker belongs to one driver session and is explicitly
// constructed and stopped by its owner; there is no shared module-level
// state.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/campustransit/dispatch/core/logger"
	"github.com/campustransit/dispatch/core/model"
	"github.com/campustransit/dispatch/core/registry"
)

// DefaultInterval is the position report period when none is configured.
const DefaultInterval = 10 * time.Second

// LocationSource yields the driver's current position. Implementations
// wrap a GPS device, a telemetry stream or a simulator.
type LocationSource interface {
	Current(ctx context.Context) (model.Location, error)
}

// Tracker periodically reads from a LocationSource and applies the report
// through the registry's monotonic location write.
type Tracker struct {
	driverID string
	source   LocationSource
	registry *registry.Registry
	interval time.Duration
	log      logger.Logger

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	started bool
}

// New creates a Tracker for one driver session.
func New(driverID string, source LocationSource, reg *registry.Registry, interval time.Duration, log logger.Logger) (*Tracker, error) {
	if driverID == "" {
		return nil, fmt.Errorf("tracker: empty driver id")
	}
	if source == nil || reg == nil || log == nil {
		return nil, fmt.Errorf("tracker: nil parameter provided to New")
	}
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Tracker{
		driverID: driverID,
		source:   source,
		registry: reg,
		interval: interval,
		log:      log,
	}, nil
}

// Start begins periodic reporting. It fails when the tracker is already
// running.
func (t *Tracker) Start(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.started {
		return fmt.Errorf("tracker: driver %s already tracking", t.driverID)
	}
	ctx, cancel := context.WithCancel(ctx)
	t.cancel = cancel
	t.done = make(chan struct{})
	t.started = true
	go t.loop(ctx)
	return nil
}

// Stop halts reporting and waits for the loop to exit. It is safe to call
// on a stopped tracker.
func (t *Tracker) Stop() {
	t.mu.Lock()
	if !t.started {
		t.mu.Unlock()
		return
	}
	cancel, done := t.cancel, t.done
	t.started = false
	t.mu.Unlock()
	cancel()
	<-done
}

// Tracking reports whether the loop is running.
func (t *Tracker) Tracking() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.started
}

func (t *Tracker) loop(ctx context.Context) {
	defer close(t.done)
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()
	t.report(ctx)
	for {
		select {
		case <-ticker.C:
			t.report(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (t *Tracker) report(ctx context.Context) {
	loc, err := t.source.Current(ctx)
	if err != nil {
		if ctx.Err() == nil {
			t.log.Warnf("driver %s: read location: %v", t.driverID, err)
		}
		return
	}
	if _, err := t.registry.UpdateDriverLocation(ctx, t.driverID, loc); err != nil {
		if errors.Is(err, registry.ErrStaleLocation) {
			t.log.Debugf("driver %s: %v", t.driverID, err)
			return
		}
		if ctx.Err() == nil {
			t.log.Warnf("driver %s: store location: %v", t.driverID, err)
		}
	}
}

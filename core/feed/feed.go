// Package feed implements the change feed: a fan-out stream of entity
// snapshots delivered to subscribers without polling. Producers publish
// immutable snapshots; each subscriber reads from its own channel and
// detaches by cancelling the subscription.
package feed

import (
	"sync"
	"sync/atomic"
)

// DefaultBuffer is the per-subscriber channel capacity.
const DefaultBuffer = 64

// Event carries the full current snapshot of a mutated entity. Err is set
// instead of Entity when the underlying source degrades; subscribers decide
// whether to re-subscribe.
type Event struct {
	Collection string
	ID         string
	Entity     any
	Err        error
}

// Filter selects the events a subscriber is interested in. A nil filter
// matches everything.
type Filter func(Event) bool

// ByCollection matches events for a single collection.
func ByCollection(name string) Filter {
	return func(ev Event) bool { return ev.Collection == name }
}

// Subscription is a live event stream. Read from C; call Cancel to detach.
// C is closed on Cancel and when the feed shuts down.
type Subscription struct {
	C      <-chan Event
	ch     chan Event
	filter Filter
	once   sync.Once
	feed   *Feed
}

// Cancel detaches the subscriber and closes its channel. It is safe to call
// more than once and has no further side effects.
func (s *Subscription) Cancel() {
	s.once.Do(func() { s.feed.remove(s) })
}

// Feed fans events out to subscribers. Delivery per subscriber preserves
// publish order; a subscriber that cannot keep up has events dropped rather
// than blocking the publisher, with drops counted for observability.
type Feed struct {
	mu      sync.RWMutex
	subs    map[*Subscription]struct{}
	buffer  int
	closed  bool
	dropped atomic.Uint64
}

// New creates a Feed. buffer <= 0 selects DefaultBuffer.
func New(buffer int) *Feed {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	return &Feed{subs: map[*Subscription]struct{}{}, buffer: buffer}
}

// Subscribe registers a subscriber for events matching the filter.
func (f *Feed) Subscribe(filter Filter) *Subscription {
	ch := make(chan Event, f.buffer)
	sub := &Subscription{C: ch, ch: ch, filter: filter, feed: f}
	f.mu.Lock()
	if f.closed {
		close(ch)
	} else {
		f.subs[sub] = struct{}{}
	}
	f.mu.Unlock()
	return sub
}

// Publish delivers the event to all matching subscribers without blocking.
func (f *Feed) Publish(ev Event) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return
	}
	for sub := range f.subs {
		if sub.filter != nil && !sub.filter(ev) {
			continue
		}
		select {
		case sub.ch <- ev:
		default:
			f.dropped.Add(1)
		}
	}
}

// Dropped reports how many events were discarded due to slow subscribers.
func (f *Feed) Dropped() uint64 { return f.dropped.Load() }

func (f *Feed) remove(sub *Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.subs[sub]; !ok {
		return
	}
	delete(f.subs, sub)
	if !f.closed {
		close(sub.ch)
	}
}

// Close shuts the feed down and closes every subscriber channel.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	for sub := range f.subs {
		close(sub.ch)
	}
	f.subs = map[*Subscription]struct{}{}
}

// Package feed provides the bounded, ordered event log consumed by
// external UI/audio/export collaborators.
package feed

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"wifiradar/internal/domain"
)

// Feed is a bounded FIFO of events. Once capacity is exceeded the oldest
// event is dropped; that is the documented lossy-log policy, not an
// error. Appends happen under a single lock; subscribers receive events
// on buffered channels and are skipped when slow, never blocked on.
type Feed struct {
	mu          sync.Mutex
	events      []domain.Event
	capacity    int
	dropped     int64
	subscribers []chan domain.Event
}

// New returns a feed bounded to capacity events.
func New(capacity int) *Feed {
	if capacity <= 0 {
		capacity = 500
	}
	return &Feed{capacity: capacity}
}

// Append stamps and stores an event, evicting the oldest at capacity,
// then fans it out to subscribers without blocking.
func (f *Feed) Append(ev domain.Event) domain.Event {
	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	f.mu.Lock()
	if len(f.events) == f.capacity {
		copy(f.events, f.events[1:])
		f.events[len(f.events)-1] = ev
		f.dropped++
	} else {
		f.events = append(f.events, ev)
	}
	subs := f.subscribers
	f.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- ev:
		default:
			// Subscriber is slow, skip.
		}
	}
	return ev
}

// Snapshot returns a copy of the current log, oldest first.
func (f *Feed) Snapshot() []domain.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Event, len(f.events))
	copy(out, f.events)
	return out
}

// Subscribe registers a buffered channel receiving future events.
// Consumers must tolerate dropped events; the feed never blocks on them.
func (f *Feed) Subscribe(buffer int) <-chan domain.Event {
	if buffer <= 0 {
		buffer = 64
	}
	ch := make(chan domain.Event, buffer)
	f.mu.Lock()
	f.subscribers = append(f.subscribers, ch)
	f.mu.Unlock()
	return ch
}

// Dropped returns how many events were evicted by the capacity policy.
func (f *Feed) Dropped() int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dropped
}

package events

import (
	"log"
	"sync/atomic"
	"time"
)

// sendGrace is how long a publisher waits on a full buffer before the event
// is dropped.
const sendGrace = 100 * time.Millisecond

// Emitter is a bounded, best-effort event publisher. When the buffer stays
// full past a short grace period the event is dropped and counted, so a
// stalled subscriber can never wedge a run.
type Emitter struct {
	events  chan Event
	dropped atomic.Uint64
}

// NewEmitter creates an Emitter buffering up to bufferSize events.
func NewEmitter(bufferSize int) *Emitter {
	return &Emitter{events: make(chan Event, bufferSize)}
}

// Emit publishes one event. A zero Timestamp is stamped with the current time.
func (e *Emitter) Emit(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	select {
	case e.events <- event:
		return
	default:
	}

	// Buffer full; give the subscriber one grace period to drain.
	timer := time.NewTimer(sendGrace)
	defer timer.Stop()
	select {
	case e.events <- event:
	case <-timer.C:
		n := e.dropped.Add(1)
		if n == 1 || n%50 == 0 {
			log.Printf("[events] subscriber lagging, %d event(s) dropped so far (latest: %s)", n, event.Type)
		}
	}
}

// DroppedCount reports how many events have been dropped.
func (e *Emitter) DroppedCount() uint64 {
	return e.dropped.Load()
}

// Events returns the subscription channel.
func (e *Emitter) Events() <-chan Event {
	return e.events
}

// Close closes the event channel. No Emit may follow.
func (e *Emitter) Close() {
	close(e.events)
}

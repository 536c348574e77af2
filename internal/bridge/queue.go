package bridge

import (
	"encoding/json"
	"fmt"
	"sync"
)

// EventType distinguishes the core's outbound messages.
type EventType int

const (
	// EventHistoryEntry is a "history entry produced" message.
	EventHistoryEntry EventType = iota + 1
	// EventConfigChanged is a "config changed" message.
	EventConfigChanged
)

// String returns the port name used on the wire.
func (t EventType) String() string {
	switch t {
	case EventHistoryEntry:
		return "appendHistory"
	case EventConfigChanged:
		return "saveConfig"
	default:
		return fmt.Sprintf("EventType(%d)", int(t))
	}
}

// Event is one message from the core.
type Event struct {
	Type    EventType
	Payload json.RawMessage
}

// HistoryEntryEvent wraps a produced history entry.
func HistoryEntryEvent(entry HistoryEntry) Event {
	return Event{Type: EventHistoryEntry, Payload: entry}
}

// ConfigChangedEvent wraps a changed config value.
func ConfigChangedEvent(cfg ConfigState) Event {
	return Event{Type: EventConfigChanged, Payload: cfg}
}

// eventQueue is a thread-safe, unbounded FIFO queue for core events.
//
// The core may emit from any goroutine while Run dequeues. A buffered signal
// channel of size 1 lets Run wait for work and for context cancellation in
// the same select.
type eventQueue struct {
	mu     sync.Mutex
	events []Event
	closed bool
	signal chan struct{}
}

// newEventQueue creates an empty event queue.
func newEventQueue() *eventQueue {
	return &eventQueue{
		events: make([]Event, 0, 16),
		signal: make(chan struct{}, 1),
	}
}

// Enqueue adds an event to the back of the queue.
// Returns false if the queue is closed.
func (q *eventQueue) Enqueue(e Event) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}

	q.events = append(q.events, e)

	// Non-blocking: the buffer of 1 coalesces multiple signals
	select {
	case q.signal <- struct{}{}:
	default:
	}

	return true
}

// TryDequeue removes the front event without blocking.
// Returns (Event{}, false) if the queue is empty.
func (q *eventQueue) TryDequeue() (Event, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.events) == 0 {
		return Event{}, false
	}

	e := q.events[0]

	// Release the payload for GC before reslicing
	q.events[0] = Event{}

	if len(q.events) == 1 {
		q.events = q.events[:0]
	} else {
		q.events = q.events[1:]
	}

	return e, true
}

// Wait returns a channel that signals when events may be available.
// The channel is closed when the queue is closed.
func (q *eventQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the current queue length.
func (q *eventQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.events)
}

// Drained reports whether the queue is closed and empty.
func (q *eventQueue) Drained() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed && len(q.events) == 0
}

// Close signals that no more events will be enqueued.
// Wakes any waiter by closing the signal channel.
func (q *eventQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}

	q.closed = true
	close(q.signal)
}

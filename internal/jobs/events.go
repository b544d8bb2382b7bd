package jobs

import (
	"sync"
	"time"

	"chatterbox-studio/internal/domain"
)

// EventKind classifies messages emitted during job execution. Workers emit
// progress, item_completed, item_failed, and finished; the control layer
// adds status events around them.
type EventKind string

const (
	EventKindStatus        EventKind = "status"
	EventKindProgress      EventKind = "progress"
	EventKindItemCompleted EventKind = "item_completed"
	EventKindItemFailed    EventKind = "item_failed"
	EventKindFinished      EventKind = "finished"
)

// Event is a sequenced payload consumed by UI subscribers. Item carries the
// originating work item: the input text for synthesis, the source file path
// for conversion.
type Event struct {
	Seq        int64            `json:"seq"`
	Timestamp  time.Time        `json:"timestamp"`
	JobID      string           `json:"jobId"`
	Kind       EventKind        `json:"kind"`
	Status     domain.JobStatus `json:"status,omitempty"`
	Current    int              `json:"current,omitempty"`
	Total      int              `json:"total,omitempty"`
	Message    string           `json:"message,omitempty"`
	Item       string           `json:"item,omitempty"`
	OutputPath string           `json:"outputPath,omitempty"`
	Error      string           `json:"error,omitempty"`
}

// EventBus stores recent events and provides incremental reads.
type EventBus struct {
	mu        sync.RWMutex
	nextSeq   int64
	maxEvents int
	events    []Event
}

// NewEventBus creates a bounded in-memory event buffer.
func NewEventBus(maxEvents int) *EventBus {
	if maxEvents <= 0 {
		maxEvents = 500
	}

	return &EventBus{
		maxEvents: maxEvents,
		events:    make([]Event, 0, maxEvents),
	}
}

// Publish appends one event and assigns sequence and timestamp.
func (b *EventBus) Publish(event Event) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSeq++
	event.Seq = b.nextSeq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.events = append(b.events, event)
	if len(b.events) > b.maxEvents {
		trim := len(b.events) - b.maxEvents
		b.events = append([]Event(nil), b.events[trim:]...)
	}

	return event
}

// Since returns events with sequence strictly greater than seq.
func (b *EventBus) Since(seq int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.events) == 0 {
		return nil
	}

	out := make([]Event, 0, len(b.events))
	for _, event := range b.events {
		if event.Seq > seq {
			out = append(out, event)
		}
	}
	return out
}

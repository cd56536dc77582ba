// Package events is the publish/subscribe channel the list view, thumbnail
// strip and drawing tool listen on.
package events

import (
	"log/slog"
	"sync"
)

// Event names are part of the contract with subscribers
type Event string

const (
	LabelSelected    Event = "FASTMAL_SELECTED"
	LabelDeselected  Event = "FASTMAL_DESELECTED"
	CountUpdated     Event = "FASTMAL_COUNT_UPDATE"
	ThumbnailRefresh Event = "FASTMAL_THUMBNAIL_UPDATE"
	CommentUpdated   Event = "FASTMAL_COMMENT_UPDATE"
)

// SelectedPayload accompanies LabelSelected
type SelectedPayload struct {
	ShapeKind string `json:"shape_kind"`
}

// CountPayload accompanies CountUpdated
type CountPayload struct {
	DatasetID int64 `json:"dataset_id"`
}

// Listener is called synchronously for each published event
type Listener func(event Event, payload any)

// Publisher is the capability the core needs
type Publisher interface {
	Publish(event Event, payload any)
}

// Bus fans events out to listeners registered with On
type Bus struct {
	mu        sync.RWMutex
	listeners map[Event][]Listener
	logger    *slog.Logger
}

// NewBus creates a bus. A nil logger uses slog.Default().
func NewBus(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		listeners: make(map[Event][]Listener),
		logger:    logger,
	}
}

// On registers a listener for event
func (b *Bus) On(event Event, listener Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[event] = append(b.listeners[event], listener)
}

// OnAll registers a listener for every known event
func (b *Bus) OnAll(listener Listener) {
	for _, e := range []Event{LabelSelected, LabelDeselected, CountUpdated, ThumbnailRefresh, CommentUpdated} {
		b.On(e, listener)
	}
}

// Publish calls every listener registered for event, in registration order
func (b *Bus) Publish(event Event, payload any) {
	b.mu.RLock()
	listeners := append([]Listener(nil), b.listeners[event]...)
	b.mu.RUnlock()

	b.logger.Debug("Publishing event", "event", string(event), "listeners", len(listeners))
	for _, listener := range listeners {
		listener(event, payload)
	}
}

// Recorder keeps published events in memory. A positive Limit keeps only
// the most recent events.
type Recorder struct {
	mu     sync.Mutex
	Events []Record
	Limit  int
}

// Record is one published event
type Record struct {
	Event   Event `json:"event"`
	Payload any   `json:"payload,omitempty"`
}

// Publish implements Publisher
func (r *Recorder) Publish(event Event, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, Record{Event: event, Payload: payload})
	if r.Limit > 0 && len(r.Events) > r.Limit {
		r.Events = append([]Record(nil), r.Events[len(r.Events)-r.Limit:]...)
	}
}

// Snapshot returns a copy of the recorded events
func (r *Recorder) Snapshot() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Record(nil), r.Events...)
}

// Names returns the recorded event names in order
func (r *Recorder) Names() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]Event, len(r.Events))
	for i, rec := range r.Events {
		names[i] = rec.Event
	}
	return names
}

// Reset drops recorded events
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = nil
}

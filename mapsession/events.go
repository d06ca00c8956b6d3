package mapsession

import (
	"sync"
	"time"
)

type EventKind string

const (
	EventStyleLoaded       EventKind = "style-loaded"
	EventMapLoaded         EventKind = "map-loaded"
	EventMapLoadingError   EventKind = "map-loading-error"
	EventStyleDataChanged  EventKind = "style-data-changed"
	EventSourceAdded       EventKind = "source-added"
	EventSourceRemoved     EventKind = "source-removed"
	EventSourceDataChanged EventKind = "source-data-changed"
	EventLayerAdded        EventKind = "layer-added"
	EventLayerUpdated      EventKind = "layer-updated"
	EventLayerRemoved      EventKind = "layer-removed"
)

// OneShot reports whether the kind is delivered at most once per session
func (k EventKind) OneShot() bool {
	switch k {
	case EventStyleLoaded, EventMapLoaded:
		return true
	default:
		return false
	}
}

type Event struct {
	Kind EventKind `json:"kind"`
	// ID is the source or layer id the event is about, if any
	ID      string    `json:"id,omitempty"`
	Message string    `json:"message,omitempty"`
	Time    time.Time `json:"time"`
}

const minSubscriberBuffer = 8

// EventStream fans events out to subscribers in emission order.
// One-shot events that were already emitted are replayed to late subscribers.
// A subscriber whose buffer is full misses the event; Dropped counts how many were missed.
type EventStream struct {
	mu          sync.Mutex
	bufferSize  int
	subscribers map[int]chan Event
	nextID      int
	fired       []Event
	dropped     int
	closed      bool
	nowFunc     func() time.Time
}

func NewEventStream(bufferSize int) *EventStream {
	if bufferSize < minSubscriberBuffer {
		bufferSize = minSubscriberBuffer
	}

	return &EventStream{
		bufferSize:  bufferSize,
		subscribers: make(map[int]chan Event),
		nowFunc:     time.Now,
	}
}

// Subscribe returns a channel of events and a function to stop the subscription.
// The channel is closed when the subscription stops or the stream is closed.
func (s *EventStream) Subscribe() (<-chan Event, func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	ch := make(chan Event, s.bufferSize)
	if s.closed {
		close(ch)
		return ch, func() {}
	}

	for _, event := range s.fired {
		ch <- event
	}

	id := s.nextID
	s.nextID++
	s.subscribers[id] = ch

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.mu.Lock()
			defer s.mu.Unlock()

			subscriber, ok := s.subscribers[id]
			if !ok {
				return
			}
			delete(s.subscribers, id)
			close(subscriber)
		})
	}
}

// HasFired reports whether a one-shot event kind has been emitted
func (s *EventStream) HasFired(kind EventKind) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, event := range s.fired {
		if event.Kind == kind {
			return true
		}
	}
	return false
}

func (s *EventStream) Dropped() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.dropped
}

func (s *EventStream) emit(kind EventKind, id, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}

	event := Event{Kind: kind, ID: id, Message: message, Time: s.nowFunc()}

	if kind.OneShot() {
		for _, fired := range s.fired {
			if fired.Kind == kind {
				return
			}
		}
		s.fired = append(s.fired, event)
	}

	for _, subscriber := range s.subscribers {
		select {
		case subscriber <- event:
		default:
			s.dropped++
		}
	}
}

// Close stops the stream and closes every subscriber channel
func (s *EventStream) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true

	for id, subscriber := range s.subscribers {
		delete(s.subscribers, id)
		close(subscriber)
	}
}

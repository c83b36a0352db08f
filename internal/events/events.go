// Package events provides the event bus connecting the state-holding
// managers (session, browser, upload queue) to whatever front end is
// observing them. Publishing is non-blocking; slow subscribers drop
// events rather than stalling state transitions.
package events

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/sekolahdrive/drive-int/internal/constants"
)

// EventType defines the types of events that can be emitted.
type EventType string

const (
	// Session lifecycle
	EventSessionChanged EventType = "session_changed" // login, logout, or restore installed a new session

	// Listing / navigation
	EventListingLoading EventType = "listing_loading" // a fetch for the current folder started
	EventListingChanged EventType = "listing_changed" // a listing was applied wholesale
	EventListingError   EventType = "listing_error"   // a fetch failed and the listing was cleared

	// Upload queue
	EventUploadQueued    EventType = "upload_queued"    // task registered, no network yet
	EventUploadProgress  EventType = "upload_progress"  // transfer progress update
	EventUploadCompleted EventType = "upload_completed" // task reached 100
	EventUploadFailed    EventType = "upload_failed"    // task failed (progress -1)
	EventUploadEvicted   EventType = "upload_evicted"   // completed task left the active set
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common event fields.
type BaseEvent struct {
	EventType EventType
	Time      time.Time
}

func (e BaseEvent) Type() EventType      { return e.EventType }
func (e BaseEvent) Timestamp() time.Time { return e.Time }

// NewBase stamps a BaseEvent with the current time.
func NewBase(t EventType) BaseEvent {
	return BaseEvent{EventType: t, Time: time.Now()}
}

// SessionEvent reports a session lifecycle change. After logout the
// front end must rebuild all derived state from scratch; nothing held
// before the event may be reused.
type SessionEvent struct {
	BaseEvent
	Authenticated bool
	UserID        string
	Email         string
	Role          string
}

// ListingEvent reports listing fetch lifecycle for one folder.
type ListingEvent struct {
	BaseEvent
	FolderID string
	Entries  int
	Error    error
}

// UploadEvent reports upload task state. Progress runs 0..100, with
// -1 marking a failed task.
type UploadEvent struct {
	BaseEvent
	TaskID   string
	Name     string
	FolderID string
	Size     int64
	Progress int
	Error    error
}

// EventBus manages event subscriptions and publishing.
type EventBus struct {
	subscribers   map[EventType][]chan Event
	all           []chan Event
	mu            sync.RWMutex
	bufferSize    int
	closed        bool
	droppedEvents atomic.Int64
}

// NewEventBus creates a new event bus with the specified buffer size.
func NewEventBus(bufferSize int) *EventBus {
	if bufferSize <= 0 {
		bufferSize = constants.EventBusDefaultBuffer
	}
	if bufferSize > constants.EventBusMaxBuffer {
		bufferSize = constants.EventBusMaxBuffer
	}
	return &EventBus{
		subscribers: make(map[EventType][]chan Event),
		all:         make([]chan Event, 0),
		bufferSize:  bufferSize,
	}
}

// Subscribe creates a subscription to a specific event type.
func (eb *EventBus) Subscribe(eventType EventType) <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.subscribers[eventType] = append(eb.subscribers[eventType], ch)
	return ch
}

// SubscribeAll creates a subscription to all events.
func (eb *EventBus) SubscribeAll() <-chan Event {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		ch := make(chan Event)
		close(ch)
		return ch
	}

	ch := make(chan Event, eb.bufferSize)
	eb.all = append(eb.all, ch)
	return ch
}

// Publish sends an event to all subscribers without blocking. Events
// are dropped when a subscriber's buffer is full.
func (eb *EventBus) Publish(event Event) {
	eb.mu.RLock()
	defer eb.mu.RUnlock()

	if eb.closed {
		return
	}

	for _, ch := range eb.subscribers[event.Type()] {
		select {
		case ch <- event:
		default:
			eb.droppedEvents.Add(1)
		}
	}

	for _, ch := range eb.all {
		select {
		case ch <- event:
		default:
			eb.droppedEvents.Add(1)
		}
	}
}

// Unsubscribe removes a subscription channel from a specific event type.
func (eb *EventBus) Unsubscribe(eventType EventType, ch <-chan Event) {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}

	subscribers := eb.subscribers[eventType]
	for i, subCh := range subscribers {
		if subCh == ch {
			subscribers[i] = subscribers[len(subscribers)-1]
			eb.subscribers[eventType] = subscribers[:len(subscribers)-1]
			break
		}
	}
}

// Close shuts down the event bus and closes all subscriber channels.
func (eb *EventBus) Close() {
	eb.mu.Lock()
	defer eb.mu.Unlock()

	if eb.closed {
		return
	}
	eb.closed = true

	for _, channels := range eb.subscribers {
		for _, ch := range channels {
			close(ch)
		}
	}
	for _, ch := range eb.all {
		close(ch)
	}
}

// DroppedEventCount returns the number of events dropped due to full
// subscriber buffers.
func (eb *EventBus) DroppedEventCount() int64 {
	return eb.droppedEvents.Load()
}

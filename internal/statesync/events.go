package statesync

import (
	"sync"
	"time"

	"github.com/nerrad567/gray-logic-remote/internal/entity"
	"github.com/nerrad567/gray-logic-remote/internal/gateway"
)

// EventType names an engine event.
type EventType string

// Engine events.
const (
	EventSnapshotUpdated    EventType = "snapshot.updated"
	EventEntityUpdated      EventType = "entity.updated"
	EventSyncError          EventType = "sync.error"
	EventReconcileCompleted EventType = "reconcile.completed"
)

// subscriberBuffer is the channel capacity of each subscription.
const subscriberBuffer = 64

// SyncError describes a failed engine operation.
type SyncError struct {
	Op       string       `json:"op"`
	EntityID string       `json:"entity_id,omitempty"`
	Kind     gateway.Kind `json:"kind"`
	Message  string       `json:"message"`
}

// Event is one change or failure published by the engine. Exactly one of
// the payload fields is set, according to Type.
type Event struct {
	Type      EventType
	Timestamp time.Time
	BaseURL   string

	// Snapshot is set for EventSnapshotUpdated.
	Snapshot entity.Snapshot
	// Entity is set for EventEntityUpdated.
	Entity *entity.Entity
	// Error is set for EventSyncError.
	Error *SyncError
	// Reconcile is set for EventReconcileCompleted.
	Reconcile *Result
}

// Payload returns the JSON-friendly body of the event.
func (e Event) Payload() any {
	switch e.Type {
	case EventSnapshotUpdated:
		return map[string]any{
			"base_url": e.BaseURL,
			"count":    e.Snapshot.Len(),
			"entities": e.Snapshot,
		}
	case EventEntityUpdated:
		return e.Entity
	case EventSyncError:
		return e.Error
	case EventReconcileCompleted:
		return e.Reconcile
	default:
		return nil
	}
}

// Notifier receives engine events. Notify runs on a goroutine owned by
// the engine, one per notifier, in publish order.
type Notifier interface {
	Notify(ev Event)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ev Event)

// Notify implements Notifier.
func (f NotifierFunc) Notify(ev Event) { f(ev) }

// bus fans events out to subscribers without blocking the publisher.
type bus struct {
	mu      sync.Mutex
	subs    map[int]chan Event
	nextID  int
	dropped func(EventType)
}

func newBus(dropped func(EventType)) *bus {
	return &bus{subs: make(map[int]chan Event), dropped: dropped}
}

func (b *bus) subscribe() (<-chan Event, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.nextID
	b.nextID++
	ch := make(chan Event, subscriberBuffer)
	b.subs[id] = ch

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			if c, ok := b.subs[id]; ok {
				delete(b.subs, id)
				close(c)
			}
		})
	}
	return ch, cancel
}

func (b *bus) publish(ev Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subs {
		select {
		case ch <- ev:
		default:
			if b.dropped != nil {
				b.dropped(ev.Type)
			}
		}
	}
}

func (b *bus) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

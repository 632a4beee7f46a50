package sourced

import (
    "fmt"
    "time"

    "go.mongodb.org/mongo-driver/v2/bson"
)

// Notification is a local event queued with Enqueue and delivered to
// listeners once the aggregate has been committed.
type Notification struct {
    Name string
    Args []any
}

type Listener func(args ...any)

// Entity holds the state every aggregate carries besides its domain fields:
// identity, versions, uncommitted events and pending notifications.
// It is not synchronized; an instance must have a single writer.
type Entity struct {
    id              string
    version         int
    snapshotVersion int
    timestamp       time.Time
    newEvents       []Event
    eventsToEmit    []Notification
    listeners       map[string][]Listener
}

func (e *Entity) ID() string { return e.id }

func (e *Entity) SetID(id string) { e.id = id }

func (e *Entity) Version() int { return e.version }

func (e *Entity) SetVersion(version int) { e.version = version }

func (e *Entity) SnapshotVersion() int { return e.snapshotVersion }

func (e *Entity) SetSnapshotVersion(snapshotVersion int) { e.snapshotVersion = snapshotVersion }

func (e *Entity) Timestamp() time.Time { return e.timestamp }

func (e *Entity) SetTimestamp(timestamp time.Time) { e.timestamp = timestamp }

// Digest records a new event of the given type, bumping the version.
// The payload must marshal to a bson document; nil means no payload.
func (e *Entity) Digest(eventType string, payload any) error {
    var raw bson.Raw
    if payload != nil {
        b, err := bson.Marshal(payload)
        if err != nil {
            return fmt.Errorf("failed encoding %s payload: %w", eventType, err)
        }
        raw = b
    }
    now := time.Now().UTC()
    e.version++
    e.timestamp = now
    e.newEvents = append(e.newEvents, Event{
        ID:        e.id,
        Version:   e.version,
        Type:      eventType,
        Payload:   raw,
        Timestamp: now,
    })
    return nil
}

// NewEvents returns a copy of the uncommitted events, oldest first.
func (e *Entity) NewEvents() []Event {
    if len(e.newEvents) == 0 {
        return nil
    }
    events := make([]Event, len(e.newEvents))
    copy(events, e.newEvents)
    return events
}

func (e *Entity) ClearNewEvents() { e.newEvents = nil }

// Enqueue queues a notification to be emitted after the next successful commit.
func (e *Entity) Enqueue(name string, args ...any) {
    e.eventsToEmit = append(e.eventsToEmit, Notification{Name: name, Args: args})
}

// EventsToEmit returns a copy of the pending notifications in enqueue order.
func (e *Entity) EventsToEmit() []Notification {
    if len(e.eventsToEmit) == 0 {
        return nil
    }
    notifications := make([]Notification, len(e.eventsToEmit))
    copy(notifications, e.eventsToEmit)
    return notifications
}

// DrainNotifications empties the pending notifications and returns them.
func (e *Entity) DrainNotifications() []Notification {
    notifications := e.eventsToEmit
    e.eventsToEmit = nil
    return notifications
}

func (e *Entity) On(name string, listener Listener) {
    if e.listeners == nil {
        e.listeners = make(map[string][]Listener)
    }
    e.listeners[name] = append(e.listeners[name], listener)
}

func (e *Entity) RemoveAllListeners() { e.listeners = nil }

// Emit calls the listeners registered for name synchronously, in registration order.
func (e *Entity) Emit(name string, args ...any) {
    for _, listener := range e.listeners[name] {
        listener(args...)
    }
}

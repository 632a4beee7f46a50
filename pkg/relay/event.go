package relay

import (
    "encoding/json"
    "fmt"
    "time"

    "github.com/walletera/sourced-repository/pkg/sourced"

    "github.com/google/uuid"
    "github.com/walletera/eventskit/events"
    "go.mongodb.org/mongo-driver/v2/bson"
)

const dataContentType = "application/json"

var _ events.EventData = Event{}

// Event adapts a committed event to the eventskit EventData contract.
type Event struct {
    typeName string
    event    sourced.Event
}

func NewEvent(typeName string, event sourced.Event) Event {
    return Event{typeName: typeName, event: event}
}

// ID is derived from the aggregate type, id and version, so replaying the
// same log twice produces the same envelope ids.
func (e Event) ID() string {
    name := fmt.Sprintf("%s/%s/%d", e.typeName, e.event.ID, e.event.Version)
    return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}

func (e Event) Type() string { return e.event.Type }

func (e Event) AggregateVersion() uint64 { return uint64(e.event.Version) }

// CorrelationID groups the events of one aggregate instance.
func (e Event) CorrelationID() string { return e.event.ID }

func (e Event) DataContentType() string { return dataContentType }

func (e Event) CreatedAt() time.Time { return e.event.Timestamp }

func (e Event) Serialize() ([]byte, error) {
    data := json.RawMessage("null")
    if len(e.event.Payload) > 0 {
        payload, err := bson.MarshalExtJSON(e.event.Payload, false, false)
        if err != nil {
            return nil, fmt.Errorf("failed encoding %s payload as json: %w", e.event.Type, err)
        }
        data = payload
    }
    envelope := events.EventEnvelope{
        Id:               uuid.MustParse(e.ID()),
        Type:             e.Type(),
        AggregateVersion: e.AggregateVersion(),
        CorrelationId:    e.CorrelationID(),
        CreatedAt:        e.CreatedAt(),
        Data:             data,
    }
    return json.Marshal(envelope)
}

package sourced

import (
    "fmt"
    "time"

    "go.mongodb.org/mongo-driver/v2/bson"
)

// Event is an immutable fact recorded by an aggregate at a given version.
// Fields holds the indexed fields duplicated onto the document at commit time.
type Event struct {
    ID        string         `bson:"id"`
    Version   int            `bson:"version"`
    Type      string         `bson:"type"`
    Payload   bson.Raw       `bson:"payload,omitempty"`
    Timestamp time.Time      `bson:"timestamp"`
    Fields    map[string]any `bson:",inline"`
}

// Decode unmarshals the event payload into v.
func (e Event) Decode(v any) error {
    if len(e.Payload) == 0 {
        return fmt.Errorf("event %s/%d of type %s has no payload", e.ID, e.Version, e.Type)
    }
    return bson.Unmarshal(e.Payload, v)
}

// Field returns the value of an indexed field. The id is always available.
func (e Event) Field(name string) (any, bool) {
    if name == IDField {
        return e.ID, true
    }
    value, ok := e.Fields[name]
    return value, ok
}

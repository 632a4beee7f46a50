package sourced

import (
    "time"

    "go.mongodb.org/mongo-driver/v2/bson"
)

const (
    IDField              = "id"
    VersionField         = "version"
    SnapshotVersionField = "snapshotVersion"
    TypeField            = "type"
    PayloadField         = "payload"
    TimestampField       = "timestamp"
    StateField           = "state"
    StoreIDField         = "_id"
)

// Snapshot is the serialized state of an aggregate captured at Version.
type Snapshot struct {
    ID              string         `bson:"id"`
    Version         int            `bson:"version"`
    SnapshotVersion int            `bson:"snapshotVersion"`
    Timestamp       time.Time      `bson:"timestamp"`
    State           bson.Raw       `bson:"state,omitempty"`
    Fields          map[string]any `bson:",inline"`
}

// ReservedField reports whether name is a document field owned by events
// or snapshots, and so cannot be used as an index name.
func ReservedField(name string) bool {
    switch name {
    case VersionField, SnapshotVersionField, TypeField, PayloadField, TimestampField, StateField, StoreIDField:
        return true
    }
    return false
}

package sourced

import "go.mongodb.org/mongo-driver/v2/bson"

// Aggregate is the capability set a repository needs from an event-sourced type.
// Implementations embed an Entity and return it from Root.
type Aggregate interface {
    // Root returns the per-instance state shared with the repository.
    Root() *Entity
    // Apply mutates the aggregate state for an already committed event.
    // It must not call Digest.
    Apply(event Event) error
    // Snapshot returns a bson-serializable copy of the current state.
    Snapshot() (any, error)
    // Restore loads state previously produced by Snapshot.
    Restore(state bson.Raw) error
}

// Indexer is implemented by aggregates that expose values for index fields
// other than the id.
type Indexer interface {
    IndexValue(field string) (any, bool)
}

// IndexValue resolves the current value of an index field for an aggregate.
// Fields the aggregate does not expose resolve to nil.
func IndexValue(aggregate Aggregate, field string) any {
    if field == IDField {
        return aggregate.Root().ID()
    }
    indexer, ok := aggregate.(Indexer)
    if !ok {
        return nil
    }
    value, ok := indexer.IndexValue(field)
    if !ok {
        return nil
    }
    return value
}

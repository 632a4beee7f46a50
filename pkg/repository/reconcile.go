package repository

import (
    "github.com/walletera/sourced-repository/pkg/logattr"
    "github.com/walletera/sourced-repository/pkg/sourced"
)

// reconcile builds a live aggregate from an optional snapshot and the events
// committed after it, ordered by ascending version. The id is always the one
// given, never the one found in the stored documents.
func (r *Repository[A]) reconcile(id string, snapshot *sourced.Snapshot, events []sourced.Event) (A, error) {
    aggregate := r.newAggregate()
    root := aggregate.Root()
    root.SetID(id)

    if snapshot != nil {
        if len(snapshot.State) > 0 {
            if err := aggregate.Restore(snapshot.State); err != nil {
                var zero A
                return zero, newError(ErrStore, err, "failed restoring %s snapshot %d for id %s", r.typeName, snapshot.SnapshotVersion, id)
            }
        }
        root.SetVersion(snapshot.Version)
        root.SetSnapshotVersion(snapshot.SnapshotVersion)
        root.SetTimestamp(snapshot.Timestamp)
    }

    for _, event := range events {
        if err := aggregate.Apply(event); err != nil {
            var zero A
            return zero, newError(ErrStore, err, "failed applying %s event %s at version %d for id %s", r.typeName, event.Type, event.Version, id)
        }
        root.SetVersion(event.Version)
        root.SetTimestamp(event.Timestamp)
    }

    root.SetID(id)
    root.ClearNewEvents()
    root.DrainNotifications()
    r.logger.Debug("deserialized entity", logattr.AggregateId(id), logattr.Version(root.Version()))
    return aggregate, nil
}

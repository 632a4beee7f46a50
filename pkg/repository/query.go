package repository

import (
    "context"
    "fmt"
    "log/slog"
    "slices"

    "github.com/walletera/sourced-repository/pkg/logattr"
    "github.com/walletera/sourced-repository/pkg/sourced"
)

// Get loads the aggregate with the given id. found is false when neither a
// snapshot nor an event exists for it.
func (r *Repository[A]) Get(ctx context.Context, id string) (aggregate A, found bool, err error) {
    return r.GetByIndex(ctx, sourced.IDField, id)
}

// GetByIndex loads the aggregate whose index field equals value, from its
// newest snapshot plus the events committed after that snapshot's version.
func (r *Repository[A]) GetByIndex(ctx context.Context, field string, value any) (A, bool, error) {
    var zero A
    if !r.isIndexed(field) {
        return zero, false, newError(ErrIndex, nil, "cannot get sourced entity type %s by index %s", r.typeName, field)
    }
    r.logger.Debug("getting entity", logattr.Index(field), slog.Any("value", value))

    criteria := Match(Where(field, value))
    snapshots, err := r.findSnapshots(ctx, criteria, FindOptions{
        Sort:  []SortField{{Field: sourced.VersionField, Descending: true}},
        Limit: 1,
    })
    if err != nil {
        return zero, false, err
    }

    var snapshot *sourced.Snapshot
    eventsFilter := criteria
    if len(snapshots) > 0 {
        snapshot = &snapshots[0]
        eventsFilter = criteria.And(GreaterThan(sourced.VersionField, snapshot.Version))
    }

    events, err := r.findEvents(ctx, eventsFilter, FindOptions{
        Sort: []SortField{{Field: sourced.VersionField}},
    })
    if err != nil {
        return zero, false, err
    }

    if snapshot == nil && len(events) == 0 {
        return zero, false, nil
    }

    var id string
    switch {
    case field == sourced.IDField:
        id = fmt.Sprint(value)
    case snapshot != nil:
        id = snapshot.ID
    default:
        id = events[0].ID
    }

    aggregate, err := r.reconcile(id, snapshot, events)
    if err != nil {
        return zero, false, err
    }
    return aggregate, true, nil
}

// GetAll loads every aggregate that has at least one event, ordered by id.
func (r *Repository[A]) GetAll(ctx context.Context) ([]A, bool, error) {
    ids, err := r.events.Distinct(ctx, sourced.IDField, nil)
    if err != nil {
        return nil, false, storeError(err, "failed listing %s ids", r.typeName)
    }
    slices.Sort(ids)
    return r.GetMany(ctx, ids)
}

// GetMany loads the aggregates with the given ids using three store round
// trips whatever the number of ids.
//
// found is false only when the whole batch has no snapshot and no event.
// Otherwise the result holds one aggregate per requested id, in request
// order, and ids without any data come back as default aggregates at
// version 0. This differs from Get, which reports absence per id.
// An empty ids slice yields an empty result without touching the store.
func (r *Repository[A]) GetMany(ctx context.Context, ids []string) ([]A, bool, error) {
    if len(ids) == 0 {
        return []A{}, true, nil
    }
    r.logger.Debug("getting entities", logattr.AggregateIds(ids))

    requested := uniqueIds(ids)
    snapshots, err := r.latestSnapshots(ctx, requested)
    if err != nil {
        return nil, false, err
    }

    eventsFilter := make(Filter, 0, len(requested))
    for _, id := range requested {
        if snapshot, ok := snapshots[id]; ok {
            eventsFilter = append(eventsFilter, Criteria{
                Where(sourced.IDField, id),
                GreaterThan(sourced.VersionField, snapshot.SnapshotVersion),
            })
            continue
        }
        eventsFilter = append(eventsFilter, Criteria{Where(sourced.IDField, id)})
    }
    events, err := r.findEvents(ctx, eventsFilter, FindOptions{
        Sort: []SortField{{Field: sourced.IDField}, {Field: sourced.VersionField}},
    })
    if err != nil {
        return nil, false, err
    }

    if len(snapshots) == 0 && len(events) == 0 {
        return nil, false, nil
    }

    eventsByID := make(map[string][]sourced.Event, len(requested))
    for _, event := range events {
        eventsByID[event.ID] = append(eventsByID[event.ID], event)
    }

    aggregates := make([]A, 0, len(ids))
    for _, id := range ids {
        aggregate, err := r.reconcile(id, snapshots[id], eventsByID[id])
        if err != nil {
            return nil, false, err
        }
        aggregates = append(aggregates, aggregate)
    }
    return aggregates, true, nil
}

// latestSnapshots returns, per id, the snapshot with the greatest snapshotVersion.
func (r *Repository[A]) latestSnapshots(ctx context.Context, ids []string) (map[string]*sourced.Snapshot, error) {
    latest, err := r.snapshots.GroupMax(ctx, Match(OneOf(sourced.IDField, ids)), sourced.IDField, sourced.SnapshotVersionField)
    if err != nil {
        return nil, storeError(err, "failed grouping %s.snapshots by id", r.typeName)
    }
    if len(latest) == 0 {
        return nil, nil
    }

    filter := make(Filter, 0, len(latest))
    for _, group := range latest {
        filter = append(filter, Criteria{
            Where(sourced.IDField, group.Key),
            Where(sourced.SnapshotVersionField, group.Max),
        })
    }
    snapshots, err := r.findSnapshots(ctx, filter, FindOptions{})
    if err != nil {
        return nil, err
    }

    byID := make(map[string]*sourced.Snapshot, len(snapshots))
    for i := range snapshots {
        if _, ok := byID[snapshots[i].ID]; !ok {
            byID[snapshots[i].ID] = &snapshots[i]
        }
    }
    return byID, nil
}

func (g *Gateway) findSnapshots(ctx context.Context, filter Filter, opts FindOptions) ([]sourced.Snapshot, error) {
    cursor, err := g.snapshots.Find(ctx, filter, opts)
    if err != nil {
        return nil, storeError(err, "failed finding %s.snapshots", g.typeName)
    }
    defer cursor.Close(ctx)

    var snapshots []sourced.Snapshot
    for cursor.Next(ctx) {
        var snapshot sourced.Snapshot
        if err := cursor.Decode(&snapshot); err != nil {
            return nil, storeError(err, "failed decoding %s.snapshots document", g.typeName)
        }
        delete(snapshot.Fields, sourced.StoreIDField)
        snapshots = append(snapshots, snapshot)
    }
    if err := cursor.Err(); err != nil {
        return nil, storeError(err, "failed iterating %s.snapshots", g.typeName)
    }
    return snapshots, nil
}

func (g *Gateway) findEvents(ctx context.Context, filter Filter, opts FindOptions) ([]sourced.Event, error) {
    cursor, err := g.events.Find(ctx, filter, opts)
    if err != nil {
        return nil, storeError(err, "failed finding %s.events", g.typeName)
    }
    defer cursor.Close(ctx)

    var events []sourced.Event
    for cursor.Next(ctx) {
        event, err := decodeEvent(cursor)
        if err != nil {
            return nil, storeError(err, "failed decoding %s.events document", g.typeName)
        }
        events = append(events, event)
    }
    if err := cursor.Err(); err != nil {
        return nil, storeError(err, "failed iterating %s.events", g.typeName)
    }
    return events, nil
}

func decodeEvent(cursor Cursor) (sourced.Event, error) {
    var event sourced.Event
    if err := cursor.Decode(&event); err != nil {
        return sourced.Event{}, err
    }
    delete(event.Fields, sourced.StoreIDField)
    return event, nil
}

func uniqueIds(ids []string) []string {
    seen := make(map[string]struct{}, len(ids))
    unique := make([]string, 0, len(ids))
    for _, id := range ids {
        if _, ok := seen[id]; ok {
            continue
        }
        seen[id] = struct{}{}
        unique = append(unique, id)
    }
    return unique
}

package repository

import (
    "context"
    "time"

    "github.com/walletera/sourced-repository/pkg/logattr"
    "github.com/walletera/sourced-repository/pkg/sourced"

    "go.mongodb.org/mongo-driver/v2/bson"
)

// Commit appends the aggregate's uncommitted events, writes a snapshot when
// one is due and then emits the notifications queued on the aggregate.
// On failure the aggregate's buffers are left untouched so the call can be retried.
func (r *Repository[A]) Commit(ctx context.Context, aggregate A, opts ...CommitOption) error {
    options := applyCommitOpts(opts)
    root := aggregate.Root()
    logger := r.logger.With(logattr.AggregateId(root.ID()))
    logger.Debug("committing aggregate")

    pending := root.NewEvents()
    snapshotDue := r.snapshotDue(root, options.forceSnapshot)
    if (len(pending) > 0 || snapshotDue) && root.ID() == "" {
        return newError(ErrIdentity, nil, "cannot commit an aggregate of type %s without an id", r.typeName)
    }

    var snapshot *sourced.Snapshot
    if snapshotDue {
        var err error
        snapshot, err = r.buildSnapshot(aggregate)
        if err != nil {
            return err
        }
    }

    if len(pending) > 0 {
        err := r.events.InsertMany(ctx, r.stampEvents(aggregate, pending))
        if err != nil {
            return storeError(err, "failed committing %s.events for id %s", r.typeName, root.ID())
        }
        root.ClearNewEvents()
        logger.Debug("committed events", logattr.Count(len(pending)), logattr.Version(root.Version()))
    }

    if snapshot != nil {
        err := r.snapshots.InsertOne(ctx, snapshot)
        if err != nil {
            return storeError(err, "failed committing %s.snapshot for id %s", r.typeName, root.ID())
        }
        root.SetSnapshotVersion(snapshot.SnapshotVersion)
        logger.Debug("committed snapshot", logattr.SnapshotVersion(snapshot.SnapshotVersion))
    }

    r.emitNotifications(root)
    return nil
}

// CommitAll commits a batch of aggregates with one bulk event insert and one
// bulk snapshot insert. Buffers are only cleared once the bulk write that
// carries them has succeeded; a failed bulk write may still have persisted
// part of the batch. An instance listed more than once is committed once.
func (r *Repository[A]) CommitAll(ctx context.Context, aggregates []A, opts ...CommitOption) error {
    options := applyCommitOpts(opts)
    aggregates = uniqueAggregates(aggregates)
    ids := make([]string, 0, len(aggregates))
    for _, aggregate := range aggregates {
        ids = append(ids, aggregate.Root().ID())
    }
    logger := r.logger.With(logattr.AggregateIds(ids))
    logger.Debug("committing aggregates")

    var (
        events         []any
        withEvents     []*sourced.Entity
        snapshots      []any
        withSnapshots  []*sourced.Entity
        snapshotValues []int
    )
    for _, aggregate := range aggregates {
        root := aggregate.Root()
        pending := root.NewEvents()
        snapshotDue := r.snapshotDue(root, options.forceSnapshot)
        if (len(pending) > 0 || snapshotDue) && root.ID() == "" {
            return newError(ErrIdentity, nil, "cannot commit an aggregate of type %s without an id", r.typeName)
        }
        if len(pending) > 0 {
            events = append(events, r.stampEvents(aggregate, pending)...)
            withEvents = append(withEvents, root)
        }
        if snapshotDue {
            snapshot, err := r.buildSnapshot(aggregate)
            if err != nil {
                return err
            }
            snapshots = append(snapshots, snapshot)
            withSnapshots = append(withSnapshots, root)
            snapshotValues = append(snapshotValues, snapshot.SnapshotVersion)
        }
    }

    if len(events) > 0 {
        err := r.events.InsertMany(ctx, events)
        if err != nil {
            return storeError(err, "failed committing %s.events for %d aggregates", r.typeName, len(withEvents))
        }
        for _, root := range withEvents {
            root.ClearNewEvents()
        }
        logger.Debug("committed events", logattr.Count(len(events)))
    }

    if len(snapshots) > 0 {
        err := r.snapshots.InsertMany(ctx, snapshots)
        if err != nil {
            return storeError(err, "failed committing %s.snapshots for %d aggregates", r.typeName, len(withSnapshots))
        }
        for i, root := range withSnapshots {
            root.SetSnapshotVersion(snapshotValues[i])
        }
        logger.Debug("committed snapshots", logattr.Count(len(snapshots)))
    }

    for _, aggregate := range aggregates {
        r.emitNotifications(aggregate.Root())
    }
    return nil
}

func uniqueAggregates[A sourced.Aggregate](aggregates []A) []A {
    seen := make(map[*sourced.Entity]struct{}, len(aggregates))
    unique := make([]A, 0, len(aggregates))
    for _, aggregate := range aggregates {
        root := aggregate.Root()
        if _, ok := seen[root]; ok {
            continue
        }
        seen[root] = struct{}{}
        unique = append(unique, aggregate)
    }
    return unique
}

func (g *Gateway) snapshotDue(root *sourced.Entity, force bool) bool {
    return force || root.Version() >= root.SnapshotVersion()+g.snapshotFrequency
}

// stampEvents copies the pending events and duplicates the aggregate's id and
// index values onto each copy.
func (g *Gateway) stampEvents(aggregate sourced.Aggregate, pending []sourced.Event) []any {
    id := aggregate.Root().ID()
    documents := make([]any, 0, len(pending))
    for _, event := range pending {
        event.ID = id
        event.Fields = g.indexFields(aggregate)
        documents = append(documents, event)
    }
    return documents
}

func (g *Gateway) buildSnapshot(aggregate sourced.Aggregate) (*sourced.Snapshot, error) {
    root := aggregate.Root()
    state, err := aggregate.Snapshot()
    if err != nil {
        return nil, newError(ErrStore, err, "failed taking %s snapshot for id %s", g.typeName, root.ID())
    }
    var raw bson.Raw
    if state != nil {
        raw, err = bson.Marshal(state)
        if err != nil {
            return nil, newError(ErrStore, err, "failed encoding %s snapshot for id %s", g.typeName, root.ID())
        }
    }
    timestamp := root.Timestamp()
    if timestamp.IsZero() {
        timestamp = time.Now().UTC()
    }
    return &sourced.Snapshot{
        ID:              root.ID(),
        Version:         root.Version(),
        SnapshotVersion: root.Version(),
        Timestamp:       timestamp,
        State:           raw,
        Fields:          g.indexFields(aggregate),
    }, nil
}

func (g *Gateway) indexFields(aggregate sourced.Aggregate) map[string]any {
    var fields map[string]any
    for _, index := range g.indices {
        if index == sourced.IDField {
            continue
        }
        if fields == nil {
            fields = make(map[string]any, len(g.indices)-1)
        }
        fields[index] = sourced.IndexValue(aggregate, index)
    }
    return fields
}

func (g *Gateway) emitNotifications(root *sourced.Entity) {
    notifications := root.DrainNotifications()
    for _, notification := range notifications {
        root.Emit(notification.Name, notification.Args...)
    }
    if len(notifications) > 0 {
        g.logger.Debug("emitted local events", logattr.AggregateId(root.ID()), logattr.Count(len(notifications)))
    }
}

func applyCommitOpts(opts []CommitOption) commitOpts {
    options := commitOpts{}
    for _, opt := range opts {
        opt(&options)
    }
    return options
}

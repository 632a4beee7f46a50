package repository

import (
    "context"
    "log/slog"
    "reflect"
    "slices"
    "strings"

    "github.com/walletera/sourced-repository/pkg/logattr"
    "github.com/walletera/sourced-repository/pkg/sourced"
)

// Gateway owns the event and snapshot collections of one aggregate type
// together with its index fields and snapshot frequency. It holds no
// mutable state and can be shared between goroutines.
type Gateway struct {
    typeName          string
    events            Collection
    snapshots         Collection
    indices           []string
    snapshotFrequency int
    logger            *slog.Logger
}

func NewGateway(store Store, typeName string, opts ...Option) (*Gateway, error) {
    if isNil(store) {
        return nil, newError(ErrConfiguration, nil, "store has not been initialized for aggregate type %q", typeName)
    }
    if strings.TrimSpace(typeName) == "" {
        return nil, newError(ErrConfiguration, nil, "aggregate type name is required")
    }
    g := &Gateway{
        typeName:          typeName,
        snapshotFrequency: DefaultSnapshotFrequency,
    }
    for _, opt := range opts {
        opt(g)
    }
    if g.snapshotFrequency < 1 {
        return nil, newError(ErrConfiguration, nil, "snapshot frequency must be positive, got %d", g.snapshotFrequency)
    }
    indices := []string{sourced.IDField}
    for _, index := range g.indices {
        if index == "" || sourced.ReservedField(index) {
            return nil, newError(ErrConfiguration, nil, "cannot index %s by field %q", typeName, index)
        }
        if !slices.Contains(indices, index) {
            indices = append(indices, index)
        }
    }
    g.indices = indices
    if g.logger == nil {
        g.logger = nopLogger()
    }
    g.logger = g.logger.With(logattr.AggregateType(typeName))
    g.events = store.Collection(typeName + ".events")
    g.snapshots = store.Collection(typeName + ".snapshots")
    return g, nil
}

// isNil also catches a nil pointer wrapped in the Store interface.
func isNil(store Store) bool {
    if store == nil {
        return true
    }
    value := reflect.ValueOf(store)
    return value.Kind() == reflect.Pointer && value.IsNil()
}

func (g *Gateway) TypeName() string { return g.typeName }

// Indices returns the registered index fields, id first.
func (g *Gateway) Indices() []string { return slices.Clone(g.indices) }

func (g *Gateway) SnapshotFrequency() int { return g.snapshotFrequency }

// Init declares the indexes both collections rely on. The unique (id, version)
// index is what turns racing appends into conflicts.
func (g *Gateway) Init(ctx context.Context) error {
    for _, index := range g.indices {
        if err := g.snapshots.CreateIndex(ctx, Index{Keys: []string{index}}); err != nil {
            return storeError(err, "failed creating %s.snapshots index on %s", g.typeName, index)
        }
        if err := g.events.CreateIndex(ctx, Index{Keys: []string{index}}); err != nil {
            return storeError(err, "failed creating %s.events index on %s", g.typeName, index)
        }
    }
    versionIndex := Index{Keys: []string{sourced.IDField, sourced.VersionField}, Unique: true}
    if err := g.events.CreateIndex(ctx, versionIndex); err != nil {
        return storeError(err, "failed creating %s.events unique version index", g.typeName)
    }
    if err := g.snapshots.CreateIndex(ctx, versionIndex); err != nil {
        return storeError(err, "failed creating %s.snapshots unique version index", g.typeName)
    }
    if err := g.snapshots.CreateIndex(ctx, Index{Keys: []string{sourced.SnapshotVersionField}}); err != nil {
        return storeError(err, "failed creating %s.snapshots snapshotVersion index", g.typeName)
    }
    g.logger.Info("entity store initialized", logattr.Count(len(g.indices)))
    return nil
}

func (g *Gateway) isIndexed(field string) bool {
    return slices.Contains(g.indices, field)
}

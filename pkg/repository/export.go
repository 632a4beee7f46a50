package repository

import (
    "context"
    "iter"
    "math"

    "github.com/walletera/sourced-repository/pkg/logattr"
    "github.com/walletera/sourced-repository/pkg/sourced"
)

// GetAllEvents streams every event of the aggregate type ordered by
// (id, version). Nothing is read until the sequence is ranged over, and each
// range starts a new scan from the beginning of the log. The batch size only
// controls how many events travel per round trip.
func (g *Gateway) GetAllEvents(ctx context.Context, opts ...ExportOption) iter.Seq2[sourced.Event, error] {
    options := exportOpts{batchSize: DefaultBatchSize}
    for _, opt := range opts {
        opt(&options)
    }
    if options.batchSize < 1 {
        options.batchSize = DefaultBatchSize
    }
    options.batchSize = min(options.batchSize, math.MaxInt32)

    return func(yield func(sourced.Event, error) bool) {
        g.logger.Debug("exporting events", logattr.BatchSize(options.batchSize))
        cursor, err := g.events.Find(ctx, nil, FindOptions{
            Sort:         []SortField{{Field: sourced.IDField}, {Field: sourced.VersionField}},
            BatchSize:    int32(options.batchSize),
            AllowDiskUse: true,
        })
        if err != nil {
            yield(sourced.Event{}, storeError(err, "failed scanning %s.events", g.typeName))
            return
        }
        defer cursor.Close(ctx)

        exported := 0
        for cursor.Next(ctx) {
            event, err := decodeEvent(cursor)
            if err != nil {
                yield(sourced.Event{}, storeError(err, "failed decoding %s.events document", g.typeName))
                return
            }
            exported++
            if !yield(event, nil) {
                return
            }
        }
        if err := cursor.Err(); err != nil {
            yield(sourced.Event{}, storeError(err, "failed iterating %s.events", g.typeName))
            return
        }
        g.logger.Debug("exported events", logattr.Count(exported))
    }
}

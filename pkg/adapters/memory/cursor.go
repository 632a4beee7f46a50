package memory

import (
    "context"
    "errors"

    "go.mongodb.org/mongo-driver/v2/bson"
)

// Cursor walks the result of a Find in batches. Every batch after the first
// counts as one extra round trip on the collection.
type Cursor struct {
    coll      *Collection
    docs      []bson.Raw
    batchSize int
    fetched   int
    pos       int
    current   bson.Raw
    err       error
    closed    bool
}

func newCursor(coll *Collection, docs []bson.Raw, batchSize int) *Cursor {
    if batchSize < 1 {
        batchSize = len(docs)
    }
    return &Cursor{
        coll:      coll,
        docs:      docs,
        batchSize: batchSize,
        fetched:   min(batchSize, len(docs)),
    }
}

func (c *Cursor) Next(ctx context.Context) bool {
    if c.closed || c.err != nil {
        return false
    }
    if err := ctx.Err(); err != nil {
        c.err = err
        return false
    }
    if c.pos >= len(c.docs) {
        return false
    }
    if c.pos >= c.fetched {
        c.coll.recordGetMore()
        c.fetched = min(c.fetched+c.batchSize, len(c.docs))
    }
    c.current = c.docs[c.pos]
    c.pos++
    return true
}

func (c *Cursor) Decode(v any) error {
    if c.current == nil {
        return errors.New("cursor is not positioned on a document")
    }
    return bson.Unmarshal(c.current, v)
}

func (c *Cursor) Err() error {
    return c.err
}

func (c *Cursor) Close(ctx context.Context) error {
    c.closed = true
    return nil
}

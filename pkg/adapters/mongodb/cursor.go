package mongodb

import (
    "context"

    "go.mongodb.org/mongo-driver/v2/mongo"
)

type Cursor struct {
    cursor *mongo.Cursor
}

func (c *Cursor) Next(ctx context.Context) bool {
    return c.cursor.Next(ctx)
}

func (c *Cursor) Decode(v any) error {
    return c.cursor.Decode(v)
}

func (c *Cursor) Err() error {
    return c.cursor.Err()
}

func (c *Cursor) Close(ctx context.Context) error {
    return c.cursor.Close(ctx)
}

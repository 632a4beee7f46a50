package mongodb

import (
    "context"
    "fmt"

    "github.com/walletera/sourced-repository/pkg/repository"

    "go.mongodb.org/mongo-driver/v2/bson"
    "go.mongodb.org/mongo-driver/v2/mongo"
    "go.mongodb.org/mongo-driver/v2/mongo/options"
)

var _ repository.Store = (*Store)(nil)
var _ repository.Collection = (*Collection)(nil)

type Store struct {
    client *mongo.Client
    dbName string
}

func NewStore(client *mongo.Client, dbName string) (*Store, error) {
    if client == nil {
        return nil, fmt.Errorf("%w: mongo client has not been initialized", repository.ErrConfiguration)
    }
    if dbName == "" {
        return nil, fmt.Errorf("%w: database name is required", repository.ErrConfiguration)
    }
    return &Store{client: client, dbName: dbName}, nil
}

func (s *Store) Collection(name string) repository.Collection {
    return &Collection{coll: s.client.Database(s.dbName).Collection(name)}
}

type Collection struct {
    coll *mongo.Collection
}

func (c *Collection) CreateIndex(ctx context.Context, index repository.Index) error {
    keys := bson.D{}
    for _, key := range index.Keys {
        keys = append(keys, bson.E{Key: key, Value: 1})
    }
    model := mongo.IndexModel{Keys: keys}
    if index.Unique {
        model.Options = options.Index().SetUnique(true)
    }
    _, err := c.coll.Indexes().CreateOne(ctx, model)
    if err != nil {
        return fmt.Errorf("failed creating index on %s: %w", c.coll.Name(), err)
    }
    return nil
}

func (c *Collection) InsertOne(ctx context.Context, document any) error {
    _, err := c.coll.InsertOne(ctx, document)
    if err != nil {
        return insertError(c.coll.Name(), err)
    }
    return nil
}

func (c *Collection) InsertMany(ctx context.Context, documents []any) error {
    _, err := c.coll.InsertMany(ctx, documents)
    if err != nil {
        return insertError(c.coll.Name(), err)
    }
    return nil
}

func insertError(collName string, err error) error {
    if mongo.IsDuplicateKeyError(err) {
        return fmt.Errorf("%w: %s: %w", repository.ErrDuplicateKey, collName, err)
    }
    return fmt.Errorf("failed inserting into %s: %w", collName, err)
}

func (c *Collection) Find(ctx context.Context, filter repository.Filter, opts repository.FindOptions) (repository.Cursor, error) {
    findOpts := options.Find()
    if len(opts.Sort) > 0 {
        findOpts.SetSort(sortDocument(opts.Sort))
    }
    if opts.Limit > 0 {
        findOpts.SetLimit(opts.Limit)
    }
    if opts.BatchSize > 0 {
        findOpts.SetBatchSize(opts.BatchSize)
    }
    if opts.AllowDiskUse {
        findOpts.SetAllowDiskUse(true)
    }
    cursor, err := c.coll.Find(ctx, filterDocument(filter), findOpts)
    if err != nil {
        return nil, fmt.Errorf("failed finding in %s: %w", c.coll.Name(), err)
    }
    return &Cursor{cursor: cursor}, nil
}

func (c *Collection) Distinct(ctx context.Context, field string, filter repository.Filter) ([]string, error) {
    result := c.coll.Distinct(ctx, field, filterDocument(filter))
    if err := result.Err(); err != nil {
        return nil, fmt.Errorf("failed listing distinct %s in %s: %w", field, c.coll.Name(), err)
    }
    var values []string
    if err := result.Decode(&values); err != nil {
        return nil, fmt.Errorf("failed decoding distinct %s in %s: %w", field, c.coll.Name(), err)
    }
    return values, nil
}

func (c *Collection) GroupMax(ctx context.Context, filter repository.Filter, key string, field string) ([]repository.GroupMax, error) {
    pipeline := mongo.Pipeline{
        {{Key: "$match", Value: filterDocument(filter)}},
        {{Key: "$group", Value: bson.D{
            {Key: "_id", Value: "$" + key},
            {Key: "max", Value: bson.D{{Key: "$max", Value: "$" + field}}},
        }}},
    }
    cursor, err := c.coll.Aggregate(ctx, pipeline)
    if err != nil {
        return nil, fmt.Errorf("failed grouping %s by %s: %w", c.coll.Name(), key, err)
    }
    var groups []repository.GroupMax
    if err := cursor.All(ctx, &groups); err != nil {
        return nil, fmt.Errorf("failed decoding %s groups: %w", c.coll.Name(), err)
    }
    return groups, nil
}

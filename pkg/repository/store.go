package repository

import "context"

// Store hands out named document collections.
type Store interface {
    Collection(name string) Collection
}

// Collection is the document store contract the repository is written against.
// Documents are bson-serializable values; adapters must wrap ErrDuplicateKey
// when an insert violates a unique index.
type Collection interface {
    CreateIndex(ctx context.Context, index Index) error
    InsertOne(ctx context.Context, document any) error
    InsertMany(ctx context.Context, documents []any) error
    Find(ctx context.Context, filter Filter, opts FindOptions) (Cursor, error)
    Distinct(ctx context.Context, field string, filter Filter) ([]string, error)
    // GroupMax groups the documents matching filter by the string field key and
    // returns, per group, the maximum of the integer field field.
    GroupMax(ctx context.Context, filter Filter, key string, field string) ([]GroupMax, error)
}

type Cursor interface {
    Next(ctx context.Context) bool
    Decode(v any) error
    Err() error
    Close(ctx context.Context) error
}

type Index struct {
    Keys   []string
    Unique bool
}

type SortField struct {
    Field      string
    Descending bool
}

type FindOptions struct {
    Sort         []SortField
    Limit        int64
    BatchSize    int32
    AllowDiskUse bool
}

type GroupMax struct {
    Key string `bson:"_id"`
    Max int    `bson:"max"`
}

type Op int

const (
    Eq Op = iota
    Gt
    In
)

type Condition struct {
    Field string
    Op    Op
    Value any
}

func Where(field string, value any) Condition {
    return Condition{Field: field, Op: Eq, Value: value}
}

func GreaterThan(field string, value any) Condition {
    return Condition{Field: field, Op: Gt, Value: value}
}

func OneOf(field string, values any) Condition {
    return Condition{Field: field, Op: In, Value: values}
}

// Criteria matches a document when every condition holds.
type Criteria []Condition

// Filter matches a document when any of its criteria matches.
// The empty filter matches every document.
type Filter []Criteria

func Match(conditions ...Condition) Filter {
    return Filter{Criteria(conditions)}
}

// And returns a copy of f with the conditions added to every criteria.
func (f Filter) And(conditions ...Condition) Filter {
    if len(f) == 0 {
        return Match(conditions...)
    }
    out := make(Filter, 0, len(f))
    for _, criteria := range f {
        merged := make(Criteria, 0, len(criteria)+len(conditions))
        merged = append(merged, criteria...)
        merged = append(merged, conditions...)
        out = append(out, merged)
    }
    return out
}

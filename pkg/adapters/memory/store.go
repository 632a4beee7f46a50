// Package memory is an in-process implementation of the repository store
// contract. Documents are kept bson-encoded so reads decode exactly like
// they would from MongoDB.
package memory

import (
    "context"
    "fmt"
    "slices"
    "sort"
    "sync"

    "github.com/walletera/sourced-repository/pkg/repository"

    "go.mongodb.org/mongo-driver/v2/bson"
)

var _ repository.Store = (*Store)(nil)
var _ repository.Collection = (*Collection)(nil)

type Store struct {
    mu          sync.Mutex
    collections map[string]*Collection
}

func NewStore() *Store {
    return &Store{collections: make(map[string]*Collection)}
}

func (s *Store) Collection(name string) repository.Collection {
    return s.Open(name)
}

// Open returns the named collection, creating it on first use.
func (s *Store) Open(name string) *Collection {
    s.mu.Lock()
    defer s.mu.Unlock()
    coll, ok := s.collections[name]
    if !ok {
        coll = &Collection{name: name}
        s.collections[name] = coll
    }
    return coll
}

// Stats counts the round trips a collection has served.
type Stats struct {
    Inserts    int
    Finds      int
    GetMores   int
    Distincts  int
    Aggregates int
    Indexes    int
}

func (s Stats) RoundTrips() int {
    return s.Inserts + s.Finds + s.GetMores + s.Distincts + s.Aggregates + s.Indexes
}

type Collection struct {
    mu      sync.Mutex
    name    string
    docs    []bson.Raw
    indexes []repository.Index
    stats   Stats
}

func (c *Collection) Name() string { return c.name }

func (c *Collection) Stats() Stats {
    c.mu.Lock()
    defer c.mu.Unlock()
    return c.stats
}

func (c *Collection) Indexes() []repository.Index {
    c.mu.Lock()
    defer c.mu.Unlock()
    return slices.Clone(c.indexes)
}

func (c *Collection) Len() int {
    c.mu.Lock()
    defer c.mu.Unlock()
    return len(c.docs)
}

func (c *Collection) CreateIndex(ctx context.Context, index repository.Index) error {
    if err := ctx.Err(); err != nil {
        return err
    }
    c.mu.Lock()
    defer c.mu.Unlock()
    c.stats.Indexes++
    for _, existing := range c.indexes {
        if slices.Equal(existing.Keys, index.Keys) && existing.Unique == index.Unique {
            return nil
        }
    }
    c.indexes = append(c.indexes, repository.Index{Keys: slices.Clone(index.Keys), Unique: index.Unique})
    return nil
}

func (c *Collection) InsertOne(ctx context.Context, document any) error {
    return c.InsertMany(ctx, []any{document})
}

// InsertMany inserts in order and stops at the first failure; documents
// before the failing one stay inserted, as with an ordered MongoDB insert.
func (c *Collection) InsertMany(ctx context.Context, documents []any) error {
    if err := ctx.Err(); err != nil {
        return err
    }
    c.mu.Lock()
    defer c.mu.Unlock()
    c.stats.Inserts++
    for i, document := range documents {
        raw, fields, err := encode(document)
        if err != nil {
            return fmt.Errorf("failed encoding document %d for %s: %w", i, c.name, err)
        }
        if err := c.checkUnique(fields); err != nil {
            return err
        }
        c.docs = append(c.docs, raw)
    }
    return nil
}

func (c *Collection) checkUnique(fields bson.M) error {
    for _, index := range c.indexes {
        if !index.Unique {
            continue
        }
        for _, raw := range c.docs {
            existing, err := decode(raw)
            if err != nil {
                return err
            }
            if sameKey(existing, fields, index.Keys) {
                return fmt.Errorf("%w: %s index %v", repository.ErrDuplicateKey, c.name, index.Keys)
            }
        }
    }
    return nil
}

func (c *Collection) Find(ctx context.Context, filter repository.Filter, opts repository.FindOptions) (repository.Cursor, error) {
    if err := ctx.Err(); err != nil {
        return nil, err
    }
    c.mu.Lock()
    defer c.mu.Unlock()
    c.stats.Finds++

    matched, err := c.match(filter)
    if err != nil {
        return nil, err
    }
    if len(opts.Sort) > 0 {
        sort.SliceStable(matched, func(i, j int) bool {
            return less(matched[i].fields, matched[j].fields, opts.Sort)
        })
    }
    if opts.Limit > 0 && int64(len(matched)) > opts.Limit {
        matched = matched[:opts.Limit]
    }

    docs := make([]bson.Raw, 0, len(matched))
    for _, m := range matched {
        docs = append(docs, m.raw)
    }
    return newCursor(c, docs, int(opts.BatchSize)), nil
}

func (c *Collection) Distinct(ctx context.Context, field string, filter repository.Filter) ([]string, error) {
    if err := ctx.Err(); err != nil {
        return nil, err
    }
    c.mu.Lock()
    defer c.mu.Unlock()
    c.stats.Distincts++

    matched, err := c.match(filter)
    if err != nil {
        return nil, err
    }
    seen := make(map[string]struct{})
    values := make([]string, 0)
    for _, m := range matched {
        value, ok := m.fields[field]
        if !ok {
            continue
        }
        s, ok := value.(string)
        if !ok {
            return nil, fmt.Errorf("distinct %s.%s: value %v is not a string", c.name, field, value)
        }
        if _, ok := seen[s]; ok {
            continue
        }
        seen[s] = struct{}{}
        values = append(values, s)
    }
    return values, nil
}

func (c *Collection) GroupMax(ctx context.Context, filter repository.Filter, key string, field string) ([]repository.GroupMax, error) {
    if err := ctx.Err(); err != nil {
        return nil, err
    }
    c.mu.Lock()
    defer c.mu.Unlock()
    c.stats.Aggregates++

    matched, err := c.match(filter)
    if err != nil {
        return nil, err
    }
    groups := make(map[string]int)
    for _, m := range matched {
        k, ok := m.fields[key].(string)
        if !ok {
            continue
        }
        value, ok := toFloat(m.fields[field])
        if !ok {
            continue
        }
        if current, seen := groups[k]; !seen || int(value) > current {
            groups[k] = int(value)
        }
    }
    result := make([]repository.GroupMax, 0, len(groups))
    for k, maxValue := range groups {
        result = append(result, repository.GroupMax{Key: k, Max: maxValue})
    }
    sort.Slice(result, func(i, j int) bool { return result[i].Key < result[j].Key })
    return result, nil
}

type matchedDoc struct {
    raw    bson.Raw
    fields bson.M
}

func (c *Collection) match(filter repository.Filter) ([]matchedDoc, error) {
    var matched []matchedDoc
    for _, raw := range c.docs {
        fields, err := decode(raw)
        if err != nil {
            return nil, err
        }
        if matches(fields, filter) {
            matched = append(matched, matchedDoc{raw: raw, fields: fields})
        }
    }
    return matched, nil
}

func (c *Collection) recordGetMore() {
    c.mu.Lock()
    defer c.mu.Unlock()
    c.stats.GetMores++
}

// encode marshals a document and assigns it an _id when it has none.
func encode(document any) (bson.Raw, bson.M, error) {
    b, err := bson.Marshal(document)
    if err != nil {
        return nil, nil, err
    }
    var d bson.D
    if err := bson.Unmarshal(b, &d); err != nil {
        return nil, nil, err
    }
    hasID := false
    for _, e := range d {
        if e.Key == "_id" {
            hasID = true
            break
        }
    }
    if !hasID {
        d = append(bson.D{{Key: "_id", Value: bson.NewObjectID()}}, d...)
        b, err = bson.Marshal(d)
        if err != nil {
            return nil, nil, err
        }
    }
    fields, err := decode(b)
    if err != nil {
        return nil, nil, err
    }
    return b, fields, nil
}

func decode(raw bson.Raw) (bson.M, error) {
    var fields bson.M
    if err := bson.Unmarshal(raw, &fields); err != nil {
        return nil, err
    }
    return fields, nil
}

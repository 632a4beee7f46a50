package memory

import (
    "context"
    "testing"

    "github.com/walletera/sourced-repository/pkg/repository"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "go.mongodb.org/mongo-driver/v2/bson"
)

type doc struct {
    ID      string `bson:"id"`
    Version int    `bson:"version"`
    Owner   string `bson:"owner,omitempty"`
}

func seed(t *testing.T, coll *Collection, docs ...doc) {
    t.Helper()
    documents := make([]any, 0, len(docs))
    for _, d := range docs {
        documents = append(documents, d)
    }
    require.NoError(t, coll.InsertMany(context.Background(), documents))
}

func findAll(t *testing.T, coll *Collection, filter repository.Filter, opts repository.FindOptions) []doc {
    t.Helper()
    ctx := context.Background()
    cursor, err := coll.Find(ctx, filter, opts)
    require.NoError(t, err)
    defer cursor.Close(ctx)
    var docs []doc
    for cursor.Next(ctx) {
        var d doc
        require.NoError(t, cursor.Decode(&d))
        docs = append(docs, d)
    }
    require.NoError(t, cursor.Err())
    return docs
}

func TestCollection_FindAppliesFilterSortAndLimit(t *testing.T) {
    coll := NewStore().Open("Market.events")
    seed(t, coll,
        doc{ID: "b", Version: 1},
        doc{ID: "a", Version: 2, Owner: "bob"},
        doc{ID: "a", Version: 1, Owner: "bob"},
        doc{ID: "a", Version: 3, Owner: "alice"},
    )

    got := findAll(t, coll, repository.Match(repository.Where("id", "a"), repository.GreaterThan("version", 1)), repository.FindOptions{
        Sort: []repository.SortField{{Field: "version"}},
    })
    assert.Equal(t, []doc{{ID: "a", Version: 2, Owner: "bob"}, {ID: "a", Version: 3, Owner: "alice"}}, got)

    got = findAll(t, coll, repository.Match(repository.Where("owner", "bob")), repository.FindOptions{
        Sort:  []repository.SortField{{Field: "version", Descending: true}},
        Limit: 1,
    })
    assert.Equal(t, []doc{{ID: "a", Version: 2, Owner: "bob"}}, got)

    got = findAll(t, coll, repository.Filter{
        {repository.Where("id", "b")},
        {repository.Where("id", "a"), repository.Where("version", 3)},
    }, repository.FindOptions{Sort: []repository.SortField{{Field: "id"}, {Field: "version"}}})
    assert.Equal(t, []doc{{ID: "a", Version: 3, Owner: "alice"}, {ID: "b", Version: 1}}, got)

    got = findAll(t, coll, repository.Match(repository.OneOf("id", []string{"b", "z"})), repository.FindOptions{})
    assert.Equal(t, []doc{{ID: "b", Version: 1}}, got)

    assert.Len(t, findAll(t, coll, nil, repository.FindOptions{}), 4)
}

func TestCollection_InsertAssignsStoreID(t *testing.T) {
    ctx := context.Background()
    coll := NewStore().Open("Market.events")
    require.NoError(t, coll.InsertOne(ctx, doc{ID: "a", Version: 1}))

    cursor, err := coll.Find(ctx, nil, repository.FindOptions{})
    require.NoError(t, err)
    require.True(t, cursor.Next(ctx))
    var raw bson.M
    require.NoError(t, cursor.Decode(&raw))
    assert.Contains(t, raw, "_id")
}

func TestCollection_UniqueIndexRejectsDuplicatesAndKeepsEarlierBatchDocs(t *testing.T) {
    ctx := context.Background()
    coll := NewStore().Open("Market.events")
    require.NoError(t, coll.CreateIndex(ctx, repository.Index{Keys: []string{"id", "version"}, Unique: true}))
    seed(t, coll, doc{ID: "a", Version: 1})

    err := coll.InsertMany(ctx, []any{doc{ID: "a", Version: 2}, doc{ID: "a", Version: 1}, doc{ID: "a", Version: 3}})

    require.ErrorIs(t, err, repository.ErrDuplicateKey)
    assert.Equal(t, 2, coll.Len())
    require.NoError(t, coll.InsertOne(ctx, doc{ID: "b", Version: 1}))
}

func TestCollection_CreateIndexIsIdempotent(t *testing.T) {
    ctx := context.Background()
    coll := NewStore().Open("Market.snapshots")
    index := repository.Index{Keys: []string{"snapshotVersion"}}

    require.NoError(t, coll.CreateIndex(ctx, index))
    require.NoError(t, coll.CreateIndex(ctx, index))

    assert.Equal(t, []repository.Index{index}, coll.Indexes())
    assert.Equal(t, 2, coll.Stats().Indexes)
}

func TestCollection_DistinctAndGroupMax(t *testing.T) {
    ctx := context.Background()
    coll := NewStore().Open("Market.snapshots")
    seed(t, coll,
        doc{ID: "a", Version: 10},
        doc{ID: "b", Version: 10},
        doc{ID: "a", Version: 20},
        doc{ID: "c", Version: 5},
    )

    ids, err := coll.Distinct(ctx, "id", nil)
    require.NoError(t, err)
    assert.ElementsMatch(t, []string{"a", "b", "c"}, ids)

    groups, err := coll.GroupMax(ctx, repository.Match(repository.OneOf("id", []string{"a", "b"})), "id", "version")
    require.NoError(t, err)
    assert.Equal(t, []repository.GroupMax{{Key: "a", Max: 20}, {Key: "b", Max: 10}}, groups)
}

func TestCursor_BatchSizeOnlyChangesRoundTrips(t *testing.T) {
    coll := NewStore().Open("Market.events")
    for i := 1; i <= 10; i++ {
        seed(t, coll, doc{ID: "a", Version: i})
    }
    sortByVersion := []repository.SortField{{Field: "version"}}

    before := coll.Stats()
    all := findAll(t, coll, nil, repository.FindOptions{Sort: sortByVersion, BatchSize: 3})
    after := coll.Stats()

    assert.Len(t, all, 10)
    assert.Equal(t, 1, after.Finds-before.Finds)
    assert.Equal(t, 3, after.GetMores-before.GetMores)

    assert.Equal(t, all, findAll(t, coll, nil, repository.FindOptions{Sort: sortByVersion}))
}

func TestCursor_StopsOnCancelledContext(t *testing.T) {
    coll := NewStore().Open("Market.events")
    seed(t, coll, doc{ID: "a", Version: 1})

    cursor, err := coll.Find(context.Background(), nil, repository.FindOptions{})
    require.NoError(t, err)

    ctx, cancel := context.WithCancel(context.Background())
    cancel()

    assert.False(t, cursor.Next(ctx))
    assert.ErrorIs(t, cursor.Err(), context.Canceled)
}

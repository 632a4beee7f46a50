package repository_test

import (
    "context"
    "errors"
    "sync/atomic"
    "testing"

    "github.com/walletera/sourced-repository/pkg/adapters/memory"
    "github.com/walletera/sourced-repository/pkg/repository"
    "github.com/walletera/sourced-repository/pkg/sourced"

    "github.com/stretchr/testify/require"
    "go.mongodb.org/mongo-driver/v2/bson"
)

const (
    marketInitialized = "market.initialized"
    orderCreated      = "order.created"
    orderPlaced       = "order.placed"
)

type Order struct {
    Side     string  `bson:"side"`
    Price    float64 `bson:"price"`
    Quantity int     `bson:"quantity"`
}

type marketInit struct {
    Ticker   string `bson:"ticker"`
    Exchange string `bson:"exchange"`
}

type marketState struct {
    Exchange string  `bson:"exchange"`
    Price    float64 `bson:"price"`
    Orders   []Order `bson:"orders"`
}

// Market averages the price of the orders placed on it.
type Market struct {
    sourced.Entity
    Exchange string
    Price    float64
    Orders   []Order
}

func NewMarket() *Market {
    return &Market{}
}

func (m *Market) Root() *sourced.Entity { return &m.Entity }

func (m *Market) Init(ticker string, exchange string) error {
    m.SetID(ticker)
    m.Exchange = exchange
    return m.Digest(marketInitialized, marketInit{Ticker: ticker, Exchange: exchange})
}

func (m *Market) CreateOrder(order Order) error {
    m.addOrder(order)
    if err := m.Digest(orderCreated, order); err != nil {
        return err
    }
    m.Enqueue(orderPlaced, order)
    return nil
}

func (m *Market) addOrder(order Order) {
    m.Orders = append(m.Orders, order)
    total := 0.0
    for _, o := range m.Orders {
        total += o.Price
    }
    m.Price = total / float64(len(m.Orders))
}

func (m *Market) Apply(event sourced.Event) error {
    switch event.Type {
    case marketInitialized:
        var payload marketInit
        if err := event.Decode(&payload); err != nil {
            return err
        }
        m.Exchange = payload.Exchange
    case orderCreated:
        var order Order
        if err := event.Decode(&order); err != nil {
            return err
        }
        m.addOrder(order)
    default:
        return errors.New("unknown market event " + event.Type)
    }
    return nil
}

func (m *Market) Snapshot() (any, error) {
    return marketState{Exchange: m.Exchange, Price: m.Price, Orders: m.Orders}, nil
}

func (m *Market) Restore(state bson.Raw) error {
    var s marketState
    if err := bson.Unmarshal(state, &s); err != nil {
        return err
    }
    m.Exchange = s.Exchange
    m.Price = s.Price
    m.Orders = s.Orders
    return nil
}

func (m *Market) IndexValue(field string) (any, bool) {
    if field == "exchange" {
        return m.Exchange, true
    }
    return nil, false
}

// newMarket builds a market at version 1 + len(prices).
func newMarket(t *testing.T, ticker string, prices ...float64) *Market {
    t.Helper()
    market := NewMarket()
    require.NoError(t, market.Init(ticker, "nyse"))
    for _, price := range prices {
        require.NoError(t, market.CreateOrder(Order{Side: "buy", Price: price, Quantity: 1}))
    }
    return market
}

func repeat(price float64, n int) []float64 {
    prices := make([]float64, n)
    for i := range prices {
        prices[i] = price
    }
    return prices
}

func newMarketRepository(t *testing.T, store repository.Store, opts ...repository.Option) *repository.Repository[*Market] {
    t.Helper()
    opts = append([]repository.Option{repository.WithIndices("exchange")}, opts...)
    repo, err := repository.New(store, "Market", NewMarket, opts...)
    require.NoError(t, err)
    require.NoError(t, repo.Init(context.Background()))
    return repo
}

// failingStore fails every insert while fail is set.
type failingStore struct {
    repository.Store
    fail atomic.Bool
}

func (s *failingStore) Collection(name string) repository.Collection {
    return &failingCollection{Collection: s.Store.Collection(name), fail: &s.fail}
}

type failingCollection struct {
    repository.Collection
    fail *atomic.Bool
}

var errUnavailable = errors.New("store unavailable")

func (c *failingCollection) InsertOne(ctx context.Context, document any) error {
    if c.fail.Load() {
        return errUnavailable
    }
    return c.Collection.InsertOne(ctx, document)
}

func (c *failingCollection) InsertMany(ctx context.Context, documents []any) error {
    if c.fail.Load() {
        return errUnavailable
    }
    return c.Collection.InsertMany(ctx, documents)
}

func newFailingStore() *failingStore {
    return &failingStore{Store: memory.NewStore()}
}

package app

import (
    "context"
    "fmt"
    "log/slog"
    "time"

    "github.com/walletera/sourced-repository/pkg/adapters/mongodb"
    "github.com/walletera/sourced-repository/pkg/logattr"
    "github.com/walletera/sourced-repository/pkg/relay"
    "github.com/walletera/sourced-repository/pkg/repository"

    "github.com/walletera/eventskit/rabbitmq"
    "go.mongodb.org/mongo-driver/v2/mongo"
    "go.mongodb.org/mongo-driver/v2/mongo/options"
    "go.uber.org/zap"
    "go.uber.org/zap/exp/zapslog"
    "go.uber.org/zap/zapcore"
)

const (
    ServiceName          = "sourced-repository"
    RabbitMQExchangeType = rabbitmq.ExchangeTypeTopic
)

type ReplayConfig struct {
    ExchangeName string
    BatchSize    int
}

type App struct {
    rabbitmqHost      string
    rabbitmqPort      int
    rabbitmqUser      string
    rabbitmqPassword  string
    mongodbURL        string
    mongodbDatabase   string
    aggregateType     string
    indices           []string
    snapshotFrequency int
    replayConfig      Optional[ReplayConfig]
    mongoClient       *mongo.Client
    logHandler        slog.Handler
    logger            *slog.Logger
}

func NewApp(opts ...Option) (*App, error) {
    app := &App{}
    err := setDefaultOpts(app)
    if err != nil {
        return nil, fmt.Errorf("failed setting default options: %w", err)
    }
    for _, opt := range opts {
        opt(app)
    }
    if app.aggregateType == "" {
        return nil, fmt.Errorf("aggregate type is required")
    }
    app.logger = slog.
        New(app.logHandler).
        With(logattr.ServiceName(ServiceName))
    return app, nil
}

// Run declares the indexes of the configured aggregate type and, when a
// replay exchange is configured, republishes its whole event log there.
func (app *App) Run(ctx context.Context) error {
    gateway, err := app.createGateway(ctx)
    if err != nil {
        return fmt.Errorf("error creating %s gateway: %w", app.aggregateType, err)
    }

    err = gateway.Init(ctx)
    if err != nil {
        return fmt.Errorf("error initializing %s entity store: %w", app.aggregateType, err)
    }

    app.logger.Info(ServiceName + " started")

    if app.replayConfig.Set {
        err = app.replay(ctx, gateway)
        if err != nil {
            return fmt.Errorf("error replaying %s events: %w", app.aggregateType, err)
        }
    }

    return nil
}

func (app *App) Stop(ctx context.Context) {
    if app.mongoClient != nil {
        err := app.mongoClient.Disconnect(ctx)
        if err != nil {
            app.logger.Error("error disconnecting from mongo", logattr.Error(err.Error()))
        }
    }
    app.logger.Info(ServiceName + " stopped")
}

func (app *App) createGateway(ctx context.Context) (*repository.Gateway, error) {
    // Use the SetServerAPIOptions() method to set the Stable API version to 1
    serverAPI := options.ServerAPI(options.ServerAPIVersion1)
    opts := options.Client().ApplyURI(app.mongodbURL).SetServerAPIOptions(serverAPI)

    client, err := mongo.Connect(opts)
    if err != nil {
        return nil, fmt.Errorf("error connecting to mongodb: %w", err)
    }
    app.mongoClient = client

    err = client.Ping(ctx, nil)
    if err != nil {
        return nil, fmt.Errorf("error pinging mongodb: %w", err)
    }

    store, err := mongodb.NewStore(client, app.mongodbDatabase)
    if err != nil {
        return nil, err
    }

    return repository.NewGateway(
        store,
        app.aggregateType,
        repository.WithIndices(app.indices...),
        repository.WithSnapshotFrequency(app.snapshotFrequency),
        repository.WithLogger(app.logger.With(logattr.Component("repository.Gateway"))),
    )
}

func (app *App) replay(ctx context.Context, gateway *repository.Gateway) error {
    config := app.replayConfig.Value
    rabbitMQClient, err := rabbitmq.NewClient(
        rabbitmq.WithHost(app.rabbitmqHost),
        rabbitmq.WithPort(uint(app.rabbitmqPort)),
        rabbitmq.WithUser(app.rabbitmqUser),
        rabbitmq.WithPassword(app.rabbitmqPassword),
        rabbitmq.WithExchangeName(config.ExchangeName),
        rabbitmq.WithExchangeType(RabbitMQExchangeType),
    )
    if err != nil {
        return fmt.Errorf("creating rabbitmq client: %w", err)
    }
    defer func() {
        err := rabbitMQClient.Close()
        if err != nil {
            app.logger.Error("error closing rabbitmq client", logattr.Error(err.Error()))
        }
    }()

    r := relay.New(rabbitMQClient, config.ExchangeName, app.aggregateType, app.logger)
    started := time.Now()
    count, werr := r.Replay(ctx, gateway.GetAllEvents(ctx, repository.WithBatchSize(config.BatchSize)))
    if werr != nil {
        return werr
    }
    app.logger.Info("events replayed",
        logattr.Count(count),
        slog.Duration("elapsed", time.Since(started)))
    return nil
}

func setDefaultOpts(app *App) error {
    zapLogger, err := newZapLogger()
    if err != nil {
        return err
    }
    app.logHandler = zapslog.NewHandler(zapLogger.Core())
    app.mongodbDatabase = ServiceName
    app.snapshotFrequency = repository.DefaultSnapshotFrequency
    app.rabbitmqHost = rabbitmq.DefaultHost
    app.rabbitmqPort = rabbitmq.DefaultPort
    app.rabbitmqUser = rabbitmq.DefaultUser
    app.rabbitmqPassword = rabbitmq.DefaultPassword
    return nil
}

func newZapLogger() (*zap.Logger, error) {
    encoderConfig := zap.NewProductionEncoderConfig()
    encoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout(time.RFC3339)
    zapConfig := zap.Config{
        Level:             zap.NewAtomicLevelAt(zap.DebugLevel),
        Development:       false,
        DisableStacktrace: true,
        Sampling: &zap.SamplingConfig{
            Initial:    100,
            Thereafter: 100,
        },
        Encoding:         "json",
        EncoderConfig:    encoderConfig,
        OutputPaths:      []string{"stderr"},
        ErrorOutputPaths: []string{"stderr"},
    }
    return zapConfig.Build()
}

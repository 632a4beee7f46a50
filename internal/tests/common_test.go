package tests

import (
    "context"
    "fmt"
    "log/slog"
    "time"

    "github.com/walletera/sourced-repository/internal/app"
    "github.com/walletera/sourced-repository/pkg/adapters/mongodb"
    "github.com/walletera/sourced-repository/pkg/repository"

    "github.com/cucumber/godog"
    slogwatcher "github.com/walletera/logs-watcher/slog"
    "go.mongodb.org/mongo-driver/v2/mongo"
    "go.mongodb.org/mongo-driver/v2/mongo/options"
    "go.uber.org/zap"
    "go.uber.org/zap/exp/zapslog"
    "go.uber.org/zap/zapcore"
)

const (
    appKey                    = "app"
    logsWatcherKey            = "logsWatcher"
    repositoryKey             = "repository"
    accountsKey               = "accounts"
    logsWatcherWaitForTimeout = 5 * time.Second
    mongodbURL                = "mongodb://localhost:27017/?retryWrites=true&w=majority"
    mongodbDatabase           = "sourced-repository-tests"
    accountType               = "Account"
    ownerIndex                = "owner"
)

var mongodbClient *mongo.Client

func beforeScenarioHook(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
    handler, err := newZapHandler()
    if err != nil {
        return ctx, err
    }
    logsWatcher := slogwatcher.NewWatcher(handler)
    ctx = context.WithValue(ctx, logsWatcherKey, logsWatcher)
    ctx = context.WithValue(ctx, accountsKey, map[string]*Account{})

    client, err := getMongodbClient()
    if err != nil {
        return ctx, err
    }

    // cleanup database before each scenario
    err = client.Database(mongodbDatabase).Drop(ctx)
    if err != nil {
        return nil, err
    }

    return ctx, nil
}

func afterScenarioHook(ctx context.Context, _ *godog.Scenario, err error) (context.Context, error) {
    logsWatcher := logsWatcherFromCtx(ctx)

    if sourcedApp, ok := ctx.Value(appKey).(*app.App); ok {
        sourcedApp.Stop(ctx)
        foundLogEntry := logsWatcher.WaitFor(app.ServiceName+" stopped", logsWatcherWaitForTimeout)
        if !foundLogEntry {
            return ctx, fmt.Errorf("app termination failed (didn't find expected log entry)")
        }
    }

    if consumer, ok := ctx.Value(consumerKey).(*replayConsumer); ok {
        err := consumer.client.Close()
        if err != nil {
            return ctx, fmt.Errorf("failed closing the replay consumer: %w", err)
        }
    }

    err = logsWatcher.Stop()
    if err != nil {
        return ctx, fmt.Errorf("failed stopping the logsWatcher: %w", err)
    }

    return ctx, nil
}

func startApp(ctx context.Context, aggregateType string, opts ...app.Option) (context.Context, error) {
    logHandler := logsWatcherFromCtx(ctx).DecoratedHandler()

    opts = append([]app.Option{
        app.WithMongoDBURL(mongodbURL),
        app.WithMongoDBDatabase(mongodbDatabase),
        app.WithAggregateType(aggregateType),
        app.WithIndices(ownerIndex),
        app.WithLogHandler(logHandler),
    }, opts...)

    sourcedApp, err := app.NewApp(opts...)
    if err != nil {
        return ctx, fmt.Errorf("failed initializing app: %w", err)
    }

    ctx = context.WithValue(ctx, appKey, sourcedApp)

    err = sourcedApp.Run(ctx)
    if err != nil {
        return ctx, fmt.Errorf("failed running app: %w", err)
    }

    foundLogEntry := logsWatcherFromCtx(ctx).WaitFor(app.ServiceName+" started", logsWatcherWaitForTimeout)
    if !foundLogEntry {
        return ctx, fmt.Errorf("app startup failed (didn't find expected log entry)")
    }

    return ctx, nil
}

func aRunningSourcedRepository(ctx context.Context, aggregateType string) (context.Context, error) {
    return startApp(ctx, aggregateType)
}

func anAccountRepository(ctx context.Context) (context.Context, error) {
    client, err := getMongodbClient()
    if err != nil {
        return ctx, err
    }
    store, err := mongodb.NewStore(client, mongodbDatabase)
    if err != nil {
        return ctx, fmt.Errorf("failed creating mongodb store: %w", err)
    }
    logger := slog.New(logsWatcherFromCtx(ctx).DecoratedHandler())
    repo, err := repository.New(
        store,
        accountType,
        NewAccount,
        repository.WithIndices(ownerIndex),
        repository.WithLogger(logger),
    )
    if err != nil {
        return ctx, fmt.Errorf("failed creating account repository: %w", err)
    }
    err = repo.Init(ctx)
    if err != nil {
        return ctx, fmt.Errorf("failed initializing account repository: %w", err)
    }
    return context.WithValue(ctx, repositoryKey, repo), nil
}

func theSourcedRepositoryProducesTheFollowingLog(ctx context.Context, logMsg *godog.DocString) (context.Context, error) {
    logsWatcher := logsWatcherFromCtx(ctx)
    foundLogEntry := logsWatcher.WaitFor(logMsg.Content, logsWatcherWaitForTimeout)
    if !foundLogEntry {
        return ctx, fmt.Errorf("didn't find expected log entry: %s", logMsg.Content)
    }
    return ctx, nil
}

func logsWatcherFromCtx(ctx context.Context) *slogwatcher.Watcher {
    value := ctx.Value(logsWatcherKey)
    if value == nil {
        panic("logs watcher not found in context")
    }
    watcher, ok := value.(*slogwatcher.Watcher)
    if !ok {
        panic("logs watcher has invalid type")
    }
    return watcher
}

func repositoryFromCtx(ctx context.Context) *repository.Repository[*Account] {
    value := ctx.Value(repositoryKey)
    if value == nil {
        panic("account repository not found in context")
    }
    repo, ok := value.(*repository.Repository[*Account])
    if !ok {
        panic("account repository has invalid type")
    }
    return repo
}

func accountsFromCtx(ctx context.Context) map[string]*Account {
    accounts, ok := ctx.Value(accountsKey).(map[string]*Account)
    if !ok {
        panic("accounts not found in context")
    }
    return accounts
}

func newZapHandler() (slog.Handler, error) {
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
    zapLogger, err := zapConfig.Build()
    if err != nil {
        return nil, err
    }
    if zapLogger.Core() == nil {
        return nil, fmt.Errorf("zapLogger.Core() is nil")
    }
    return zapslog.NewHandler(zapLogger.Core()), nil
}

func getMongodbClient() (*mongo.Client, error) {
    if mongodbClient != nil {
        return mongodbClient, nil
    }

    // Use the SetServerAPIOptions() method to set the Stable API version to 1
    serverAPI := options.ServerAPI(options.ServerAPIVersion1)
    opts := options.Client().ApplyURI(mongodbURL).SetServerAPIOptions(serverAPI)

    // Create a new client and connect to the server
    client, err := mongo.Connect(opts)
    if err != nil {
        return nil, err
    }
    mongodbClient = client

    return mongodbClient, nil
}

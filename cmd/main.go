package main

import (
    "context"
    "os"
    "os/signal"
    "strconv"
    "strings"
    "syscall"
    "time"

    "github.com/walletera/sourced-repository/internal/app"
    "github.com/walletera/sourced-repository/pkg/repository"
)

const shutdownTimeout = 10 * time.Second

func main() {
    ctx, ctxCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
    defer ctxCancel()

    opts := []app.Option{
        app.WithMongoDBURL(mustGetEnv("MONGODB_URL")),
        app.WithMongoDBDatabase(mustGetEnv("MONGODB_DATABASE")),
        app.WithAggregateType(mustGetEnv("AGGREGATE_TYPE")),
        app.WithSnapshotFrequency(getIntEnv("SNAPSHOT_FREQUENCY", repository.DefaultSnapshotFrequency)),
    }
    if indices, found := os.LookupEnv("AGGREGATE_INDICES"); found && indices != "" {
        opts = append(opts, app.WithIndices(strings.Split(indices, ",")...))
    }
    if exchange, found := os.LookupEnv("REPLAY_EXCHANGE"); found && exchange != "" {
        opts = append(opts,
            app.WithRabbitmqHost(mustGetEnv("RABBITMQ_HOST")),
            app.WithRabbitmqPort(mustGetIntEnv("RABBITMQ_PORT")),
            app.WithRabbitmqUser(mustGetEnv("RABBITMQ_USER")),
            app.WithRabbitmqPassword(mustGetEnv("RABBITMQ_PASSWORD")),
            app.WithReplayConfig(app.ReplayConfig{
                ExchangeName: exchange,
                BatchSize:    getIntEnv("EXPORT_BATCH_SIZE", repository.DefaultBatchSize),
            }),
        )
    }

    app, err := app.NewApp(opts...)
    if err != nil {
        panic(err)
    }

    runErr := app.Run(ctx)

    shutdownCtx, shutdownCtxCancel := context.WithTimeout(context.Background(), shutdownTimeout)
    defer shutdownCtxCancel()

    app.Stop(shutdownCtx)

    if runErr != nil {
        panic(runErr)
    }
}

func mustGetEnv(envName string) string {
    value, found := os.LookupEnv(envName)
    if !found {
        panic("env var not defined: " + envName)
    }
    return value
}

func mustGetIntEnv(envName string) int {
    strEnvValue := mustGetEnv(envName)
    intEnvValue, err := strconv.Atoi(strEnvValue)
    if err != nil {
        panic("env var is not an int: " + envName)
    }
    return intEnvValue
}

func getIntEnv(envName string, defaultValue int) int {
    if _, found := os.LookupEnv(envName); !found {
        return defaultValue
    }
    return mustGetIntEnv(envName)
}

package app

import "log/slog"

type Option func(app *App)

func WithReplayConfig(config ReplayConfig) func(a *App) {
    return func(a *App) {
        a.replayConfig = NewOptional[ReplayConfig](config)
    }
}

func WithRabbitmqHost(host string) func(a *App) { return func(a *App) { a.rabbitmqHost = host } }

func WithRabbitmqPort(port int) func(a *App) { return func(a *App) { a.rabbitmqPort = port } }

func WithRabbitmqUser(user string) func(a *App) { return func(a *App) { a.rabbitmqUser = user } }

func WithRabbitmqPassword(password string) func(a *App) {
    return func(a *App) { a.rabbitmqPassword = password }
}

func WithMongoDBURL(url string) func(a *App) { return func(a *App) { a.mongodbURL = url } }

func WithMongoDBDatabase(database string) func(a *App) {
    return func(a *App) { a.mongodbDatabase = database }
}

func WithAggregateType(aggregateType string) func(a *App) {
    return func(a *App) { a.aggregateType = aggregateType }
}

func WithIndices(indices ...string) func(a *App) {
    return func(a *App) { a.indices = append(a.indices, indices...) }
}

func WithSnapshotFrequency(frequency int) func(a *App) {
    return func(a *App) { a.snapshotFrequency = frequency }
}

func WithLogHandler(handler slog.Handler) func(app *App) {
    return func(app *App) { app.logHandler = handler }
}

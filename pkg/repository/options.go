package repository

import (
    "log/slog"

    "go.uber.org/zap"
    "go.uber.org/zap/exp/zapslog"
)

const (
    DefaultSnapshotFrequency = 10
    DefaultBatchSize         = 1000
)

type Option func(g *Gateway)

// WithIndices registers extra fields to index and query by. The id is always indexed.
func WithIndices(indices ...string) Option {
    return func(g *Gateway) { g.indices = append(g.indices, indices...) }
}

func WithSnapshotFrequency(frequency int) Option {
    return func(g *Gateway) { g.snapshotFrequency = frequency }
}

func WithLogger(logger *slog.Logger) Option {
    return func(g *Gateway) { g.logger = logger }
}

type commitOpts struct {
    forceSnapshot bool
}

type CommitOption func(opts *commitOpts)

func WithForceSnapshot() CommitOption {
    return func(opts *commitOpts) { opts.forceSnapshot = true }
}

type exportOpts struct {
    batchSize int
}

type ExportOption func(opts *exportOpts)

// WithBatchSize sets how many events are transferred per round trip.
func WithBatchSize(batchSize int) ExportOption {
    return func(opts *exportOpts) { opts.batchSize = batchSize }
}

func nopLogger() *slog.Logger {
    return slog.New(zapslog.NewHandler(zap.NewNop().Core()))
}

// Package relay republishes an aggregate type's event log to a message
// broker so downstream projections can be rebuilt from scratch.
package relay

import (
    "context"
    "iter"
    "log/slog"

    "github.com/walletera/sourced-repository/pkg/logattr"
    "github.com/walletera/sourced-repository/pkg/sourced"

    "github.com/walletera/eventskit/events"
    "github.com/walletera/werrors"
)

type Relay struct {
    publisher events.Publisher
    exchange  string
    typeName  string
    logger    *slog.Logger
}

func New(publisher events.Publisher, exchange string, typeName string, logger *slog.Logger) *Relay {
    return &Relay{
        publisher: publisher,
        exchange:  exchange,
        typeName:  typeName,
        logger: logger.With(
            logattr.Component("relay.Relay"),
            logattr.Exchange(exchange),
            logattr.AggregateType(typeName),
        ),
    }
}

// RoutingKey is "<aggregate type>.<event type>".
func (r *Relay) RoutingKey(eventType string) string {
    return r.typeName + "." + eventType
}

// Replay publishes every event of the sequence in order and returns how many
// were published. It stops at the first failure.
func (r *Relay) Replay(ctx context.Context, seq iter.Seq2[sourced.Event, error]) (int, werrors.WError) {
    r.logger.Info("replay started")
    published := 0
    for event, err := range seq {
        if err != nil {
            r.logger.Error("failed reading event log", logattr.Error(err.Error()), logattr.Count(published))
            return published, werrors.NewRetryableInternalError("failed reading %s event log: %s", r.typeName, err.Error())
        }
        err = r.publisher.Publish(ctx, NewEvent(r.typeName, event), events.RoutingInfo{
            Topic:      r.exchange,
            RoutingKey: r.RoutingKey(event.Type),
        })
        if err != nil {
            r.logger.Error("failed publishing event",
                logattr.AggregateId(event.ID),
                logattr.Version(event.Version),
                logattr.EventType(event.Type),
                logattr.Error(err.Error()))
            return published, werrors.NewRetryableInternalError("failed publishing %s event %s/%d: %s", r.typeName, event.ID, event.Version, err.Error())
        }
        published++
    }
    r.logger.Info("replay finished", logattr.Count(published))
    return published, nil
}

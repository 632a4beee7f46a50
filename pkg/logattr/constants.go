package logattr

import "log/slog"

func ServiceName(serviceName string) slog.Attr {
    return slog.String("service_name", serviceName)
}

func Component(component string) slog.Attr {
    return slog.String("component", component)
}

func AggregateType(aggregateType string) slog.Attr {
    return slog.String("aggregate_type", aggregateType)
}

func AggregateId(aggregateId string) slog.Attr {
    return slog.String("aggregate_id", aggregateId)
}

func AggregateIds(aggregateIds []string) slog.Attr {
    return slog.Any("aggregate_ids", aggregateIds)
}

func Version(version int) slog.Attr {
    return slog.Int("version", version)
}

func SnapshotVersion(snapshotVersion int) slog.Attr {
    return slog.Int("snapshot_version", snapshotVersion)
}

func EventType(eventType string) slog.Attr {
    return slog.String("event_type", eventType)
}

func Index(index string) slog.Attr {
    return slog.String("index", index)
}

func Count(count int) slog.Attr {
    return slog.Int("count", count)
}

func BatchSize(batchSize int) slog.Attr {
    return slog.Int("batch_size", batchSize)
}

func Error(err string) slog.Attr {
    return slog.String("error", err)
}

func Exchange(exchange string) slog.Attr {
    return slog.String("exchange", exchange)
}

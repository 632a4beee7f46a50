// Package repository persists event-sourced aggregates as an append-only
// event log plus periodic snapshots, and rebuilds them on read from the
// newest snapshot and the events committed after it.
package repository

import (
    "github.com/walletera/sourced-repository/pkg/sourced"
)

// Repository commits and loads aggregates of a single type.
type Repository[A sourced.Aggregate] struct {
    *Gateway
    newAggregate func() A
}

// New builds a repository for the aggregate type typeName. newAggregate must
// return an aggregate in its default initial state.
func New[A sourced.Aggregate](store Store, typeName string, newAggregate func() A, opts ...Option) (*Repository[A], error) {
    if newAggregate == nil {
        return nil, newError(ErrConfiguration, nil, "aggregate constructor is required for %q", typeName)
    }
    gateway, err := NewGateway(store, typeName, opts...)
    if err != nil {
        return nil, err
    }
    return &Repository[A]{
        Gateway:      gateway,
        newAggregate: newAggregate,
    }, nil
}

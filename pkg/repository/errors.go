package repository

import (
    "errors"
    "fmt"

    "github.com/walletera/werrors"
)

var (
    ErrConfiguration = errors.New("configuration error")
    ErrIdentity      = errors.New("identity error")
    ErrIndex         = errors.New("index error")
    ErrConflict      = errors.New("conflict error")
    ErrStore         = errors.New("store error")

    // ErrDuplicateKey is wrapped by store adapters when a write violates a unique index.
    ErrDuplicateKey = errors.New("duplicate key")
)

// Error is returned by every repository operation. Kind is one of the
// Err* sentinels above and is matched by errors.Is.
type Error struct {
    Kind    error
    Message string
    Err     error
}

func (e *Error) Error() string {
    if e.Err != nil {
        return fmt.Sprintf("%s: %s: %s", e.Kind, e.Message, e.Err)
    }
    return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Is(target error) bool {
    return e.Kind == target
}

func (e *Error) Unwrap() error {
    return e.Err
}

// Retryable reports whether the same call may succeed without reloading the aggregate.
func (e *Error) Retryable() bool {
    return e.Kind == ErrStore
}

func newError(kind error, err error, format string, args ...any) *Error {
    return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// storeError classifies an adapter failure: unique index violations become
// conflicts, anything else is a store error.
func storeError(err error, format string, args ...any) *Error {
    if errors.Is(err, ErrDuplicateKey) {
        return newError(ErrConflict, err, format, args...)
    }
    return newError(ErrStore, err, format, args...)
}

// ToWError maps a repository error onto a werrors.WError so it can be returned
// from eventskit handlers.
func ToWError(err error) werrors.WError {
    if err == nil {
        return nil
    }
    var repoErr *Error
    if errors.As(err, &repoErr) && !repoErr.Retryable() {
        return werrors.NewNonRetryableInternalError("%s", err.Error())
    }
    return werrors.NewRetryableInternalError("%s", err.Error())
}

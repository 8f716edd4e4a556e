package storage

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Get when no value is stored under the key.
var ErrNotFound = errors.New("storage: key not found")

// Storage is a flat durable key-value store.
//
// Remove on a missing key succeeds. Implementations must be safe for
// concurrent use.
type Storage interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Remove(ctx context.Context, key string) error
}

// Closer is implemented by backends that hold an open file or connection.
type Closer interface {
	Close() error
}

package session

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key is absent or its TTL has passed.
var ErrNotFound = errors.New("session: key not found")

// Store is a TTL-backed key-value store holding opaque serialized records.
// Every component of the upload pipeline shares one Store.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	// ListKeys returns all live keys starting with prefix. Used by the expiry sweep.
	ListKeys(ctx context.Context, prefix string) ([]string, error)
}

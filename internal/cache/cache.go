package cache

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a key is absent or expired.
var ErrNotFound = errors.New("cache: key not found")

// Store is a shared key-value cache. A zero TTL means the entry never
// expires; resolution results rely on this to stay pinned for as long as
// the backing store lives.
type Store interface {
	// Get retrieves a value and unmarshals it into the 'dest' pointer.
	Get(ctx context.Context, key string, dest interface{}) error

	// Set stores a value. ttl == 0 stores it without expiry.
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error

	// Delete removes a value.
	Delete(ctx context.Context, key string) error
}

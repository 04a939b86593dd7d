package cache

import (
	"context"
	"errors"
	"time"
)

// ErrStoreUnavailable is returned by methods called on a nil store.
var ErrStoreUnavailable = errors.New("cache: store not initialised")

// Store is the key/value cache shared by every portal instance: login rate
// limit counters and the cached partner network. DatabaseStore and
// RedisStore implement it.
type Store interface {
	// IncrementWithTTL bumps a fixed-window counter. The window starts with
	// the first increment and later increments never extend it; the returned
	// duration is the time left in the window.
	IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
	// Set stores value; ttl <= 0 keeps it until deleted.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Get reports ok=false for missing and expired keys.
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Delete(ctx context.Context, keys ...string) error
}

var (
	_ Store = (*DatabaseStore)(nil)
	_ Store = (*RedisStore)(nil)
)

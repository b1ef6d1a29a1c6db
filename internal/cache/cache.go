package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with per-entry TTL. Implementations
// must be safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

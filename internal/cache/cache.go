// Package cache is a small TTL cache abstraction used for positive
// verification results.
package cache

import (
	"time"
)

// Cache is a TTL key/value store.
type Cache interface {
	Get(key string) (any, bool)
	Set(key string, value any, cost int64, ttl time.Duration) bool
	Del(key string)
}

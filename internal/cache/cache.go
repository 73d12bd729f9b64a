// Package cache provides a JSON key/value cache used to memoize retrieval results.
package cache

import (
	"context"
	"time"
)

// Cache stores JSON values under string keys. A value that no longer
// decodes is reported as a miss.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (hit bool, err error)
	SetJSON(ctx context.Context, key string, val any, ttl time.Duration) error
}

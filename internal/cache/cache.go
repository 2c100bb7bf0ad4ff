// Package cache stores rendered upstream payloads (district boundaries, for
// now) so that slow third-party APIs are hit at most once per TTL.
package cache

import (
	"context"
	"time"
)

type Cache interface {
	// Get reports a miss with ok=false and a nil error.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Close() error
}

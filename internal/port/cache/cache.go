// Package cache defines the port interface for byte-valued caching.
// Implementations: ristretto (in-process L1), redis (remote L2), tiered (L1+L2).
package cache

import (
	"context"
	"time"
)

// Cache is the port interface for key-value caching. A miss is reported as
// ok == false with a nil error; err is reserved for backend failures.
type Cache interface {
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Package kvstore is the shared key-value store backing the API response
// cache and the rate limiter windows.
package kvstore

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned by Get when the key is absent or expired.
var ErrNotFound = errors.New("kvstore: key not found")

// Store is a key-value store with per-key expiry.
//
// Any error other than ErrNotFound means the store is unavailable, callers are
// expected to degrade (cache miss, no throttling) rather than fail.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	// Put stores value under key, ttl <= 0 means no expiry.
	Put(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Has(ctx context.Context, key string) (bool, error)
}

// Package kvstore abstracts the TTL-capable key/value store used for token
// revocation state, refresh-token slots, and cached user snapshots.
package kvstore

import (
	"context"
	"time"
)

// Store is the contract the session core depends on. A missing key is
// reported as common.ErrorNotFound; any other error is a transport failure
// and must never be mistaken for key absence.
type Store interface {
	// Get returns the value stored at key.
	Get(ctx context.Context, key string) (string, error)
	// Set stores value at key. A positive ttl makes the key expire on its
	// own; zero means no expiration.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Del removes the key. Deleting an absent key is not an error.
	Del(ctx context.Context, key string) error
	// Exists reports whether the key is present.
	Exists(ctx context.Context, key string) (bool, error)
}

// Package cache provides the ephemeral key/value contract that holds guest sessions,
// plus an in-process LRU implementation of it.
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrMiss is returned when a key is absent or its TTL has elapsed.
var ErrMiss = errors.New("cache: miss")

// EphemeralStore is a TTL key/value store. Reads never extend a TTL.
// Implementations return ErrMiss for absent keys; any other error is a connectivity failure.
type EphemeralStore interface {
	// Get retrieves a value.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores a value and (re)starts its TTL.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Update replaces the value of an existing key, keeping its remaining TTL.
	// Returns ErrMiss if the key is absent.
	Update(ctx context.Context, key string, value []byte) error

	// Delete removes a key. Deleting an absent key is not an error.
	Delete(ctx context.Context, key string) error
}

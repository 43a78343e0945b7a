// Package kv defines the key-value storage interface backing durable bot state.
package kv

import "context"

// Store is a minimal durable key-value store.
// Implementations must make Save durable before returning.
type Store interface {
	// Load returns the value stored under key, or nil with a nil error if
	// the key has never been saved.
	Load(ctx context.Context, key string) ([]byte, error)
	// Save durably stores value under key, replacing any previous value.
	Save(ctx context.Context, key string, value []byte) error
}

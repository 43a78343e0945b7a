package kv

import (
	"context"
	"sync"
)

// Memory is an in-memory [Store]. It is primarily useful for tests and for
// running without a configured database.
type Memory struct {
	mu sync.Mutex
	m  map[string][]byte
}

var _ Store = (*Memory)(nil)

// InMemory creates an empty in-memory store.
func InMemory() *Memory {
	return &Memory{m: make(map[string][]byte)}
}

// Load returns the value stored under key.
func (s *Memory) Load(ctx context.Context, key string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.m[key]
	if !ok {
		return nil, nil
	}
	r := make([]byte, len(v))
	copy(r, v)
	return r, nil
}

// Save stores value under key.
func (s *Memory) Save(ctx context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	s.m[key] = v
	return nil
}

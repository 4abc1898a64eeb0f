package memory

import (
	"context"
	"sync"
)

// Storage is a map-backed key-value store.
type Storage struct {
	mu    sync.RWMutex
	items map[string][]byte
}

// NewStorage creates an empty store.
func NewStorage() *Storage {
	return &Storage{items: make(map[string][]byte)}
}

// Get returns the value for key, or found=false.
func (s *Storage) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	value, ok := s.items[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(value))
	copy(out, value)
	return out, true, nil
}

// Set stores value under key.
func (s *Storage) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored := make([]byte, len(value))
	copy(stored, value)
	s.items[key] = stored
	return nil
}

// Remove deletes key. Removing an absent key is a no-op.
func (s *Storage) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.items, key)
	return nil
}

// Len returns the number of stored keys.
func (s *Storage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Package memory provides a process-local [storage.Storage]. Nothing survives
// a restart unless the same Store value is reused, which is what tests do to
// simulate one.
package memory

import (
	"context"
	"sync"

	"github.com/gofinances/sessionkit/storage"
)

// Store is a map-backed storage.Storage.
type Store struct {
	mu     sync.RWMutex
	values map[string][]byte
}

// New returns an empty Store.
func New() *Store {
	return &Store{values: make(map[string][]byte)}
}

// Get returns a copy of the value under key.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.values[key]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return append([]byte(nil), v...), nil
}

// Set stores a copy of value under key.
func (s *Store) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.values[key] = append([]byte(nil), value...)
	return nil
}

// Remove deletes key. A missing key is not an error.
func (s *Store) Remove(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	return nil
}

// Len reports how many keys are stored.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.values)
}

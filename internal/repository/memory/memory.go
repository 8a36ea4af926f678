// Package memory provides an in-process repository.Store.
//
// Nothing survives a restart. It backs the CLI's --ephemeral mode and the
// service tests, where a real database would only add noise.
package memory

import (
	"context"
	"sync"

	"github.com/sakif/social-analytics/internal/apperror"
	"github.com/sakif/social-analytics/internal/repository"
)

var _ repository.Store = (*Store)(nil)

// Store is a map guarded by a RWMutex. The zero value is not usable; call New.
type Store struct {
	mu   sync.RWMutex
	data map[string]string
}

func New() *Store {
	return &Store{data: make(map[string]string)}
}

func (s *Store) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[key]
	if !ok {
		return "", apperror.NotFound("key", key)
	}
	return v, nil
}

func (s *Store) Set(_ context.Context, key, value string) error {
	s.mu.Lock()
	s.data[key] = value
	s.mu.Unlock()
	return nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.data, key)
	s.mu.Unlock()
	return nil
}

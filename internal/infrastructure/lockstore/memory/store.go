// Package memory provides a process-local expiring key store for advisory
// locks. It is only shared between goroutines of one process.
package memory

import (
	"context"
	"sync"
	"time"
)

type Store struct {
	mu      sync.Mutex
	entries map[string]time.Time
	now     func() time.Time
}

func New() *Store {
	return &Store{
		entries: make(map[string]time.Time),
		now:     time.Now,
	}
}

// AddIfAbsent creates key unless a live entry exists. Expired entries are
// treated as absent and replaced.
func (s *Store) AddIfAbsent(_ context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if expiresAt, ok := s.entries[key]; ok && now.Before(expiresAt) {
		return false, nil
	}
	s.entries[key] = now.Add(ttl)
	s.sweep(now)
	return true, nil
}

func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, key)
	return nil
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) sweep(now time.Time) {
	for key, expiresAt := range s.entries {
		if !now.Before(expiresAt) {
			delete(s.entries, key)
		}
	}
}

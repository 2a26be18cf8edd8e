package kv

import (
	"context"
	"strings"
	"sync"
	"time"
)

// InMemory provides a simple in-memory Store implementation with TTL
type InMemory struct {
	data map[string]*entry
	mu   sync.RWMutex
	stop chan struct{}
	once sync.Once
}

type entry struct {
	data     []byte
	deadline time.Time // zero means no expiry
}

func (e *entry) expired(now time.Time) bool {
	return !e.deadline.IsZero() && now.After(e.deadline)
}

// NewInMemory creates a new in-memory store.
//
// A background goroutine sweeps expired entries every 5 minutes until
// Close is called. Expired entries are also dropped lazily on read.
func NewInMemory() *InMemory {
	store := &InMemory{
		data: make(map[string]*entry),
		stop: make(chan struct{}),
	}

	go store.backgroundCleanup()

	return store
}

// Get retrieves data for a key
func (s *InMemory) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, exists := s.data[key]
	if !exists || e.expired(time.Now()) {
		return nil, false, nil
	}

	// Return copy to prevent external modification
	result := make([]byte, len(e.data))
	copy(result, e.data)
	return result, true, nil
}

// Set stores data for a key with TTL
func (s *InMemory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// Store copy to prevent external modification
	dataCopy := make([]byte, len(value))
	copy(dataCopy, value)

	var deadline time.Time
	if ttl > 0 {
		deadline = time.Now().Add(ttl)
	}

	s.data[key] = &entry{data: dataCopy, deadline: deadline}
	return nil
}

// Delete removes data for a key
func (s *InMemory) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, key)
	return nil
}

// List returns all non-expired keys matching the prefix
func (s *InMemory) List(_ context.Context, prefix string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	now := time.Now()

	for key, e := range s.data {
		if e.expired(now) {
			continue
		}
		if strings.HasPrefix(key, prefix) {
			keys = append(keys, key)
		}
	}

	return keys, nil
}

// Close stops the background cleanup goroutine
func (s *InMemory) Close() error {
	s.once.Do(func() { close(s.stop) })
	return nil
}

// backgroundCleanup runs periodically to remove expired entries
func (s *InMemory) backgroundCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stop:
			return
		}
	}
}

// cleanup removes expired entries (internal method)
func (s *InMemory) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for key, e := range s.data {
		if e.expired(now) {
			delete(s.data, key)
		}
	}
}

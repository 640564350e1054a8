package repo

import (
	"context"
	"errors"
	"strings"
	"sync"
)

// ErrStoreUnavailable is returned by MemoryStore when failure injection is on.
var ErrStoreUnavailable = errors.New("store unavailable")

// MemoryStore is a process-local key/value store. It backs STORE_DRIVER=memory
// and doubles as a test double: FailGet/FailSet make the matching operations
// fail, and Writes counts successful and failed Set/Remove attempts.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]string

	FailGet bool
	FailSet bool

	writes int
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string]string)}
}

// Get returns the value under key. ok is false when the key is absent.
func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	if strings.TrimSpace(key) == "" {
		return "", false, ErrEmptyKey
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.FailGet {
		return "", false, ErrStoreUnavailable
	}
	v, ok := s.data[key]
	return v, ok, nil
}

// Set stores value under key.
func (s *MemoryStore) Set(_ context.Context, key, value string) error {
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	if s.FailSet {
		return ErrStoreUnavailable
	}
	s.data[key] = value
	return nil
}

// Remove deletes key; removing an absent key succeeds.
func (s *MemoryStore) Remove(_ context.Context, key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes++
	if s.FailSet {
		return ErrStoreUnavailable
	}
	delete(s.data, key)
	return nil
}

// Writes reports how many Set/Remove calls were attempted.
func (s *MemoryStore) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

// SetFailures toggles failure injection under the store lock.
func (s *MemoryStore) SetFailures(get, set bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.FailGet = get
	s.FailSet = set
}

package notify

import (
	"context"
	"sync"
)

// InMemoryPreferenceStore is a local-only preference store used for tests
// and single-box deployments without a shared redis.
type InMemoryPreferenceStore struct {
	mu    sync.RWMutex
	prefs map[string]Preferences
}

// NewInMemoryPreferenceStore creates an empty in-memory store.
func NewInMemoryPreferenceStore() *InMemoryPreferenceStore {
	return &InMemoryPreferenceStore{
		prefs: make(map[string]Preferences),
	}
}

// Get returns the stored preferences, or defaults when no record exists.
func (s *InMemoryPreferenceStore) Get(_ context.Context, userID string) (Preferences, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if prefs, ok := s.prefs[userID]; ok {
		return prefs, nil
	}
	return DefaultPreferences(), nil
}

// Set stores preferences for a user.
func (s *InMemoryPreferenceStore) Set(userID string, prefs Preferences) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if prefs.ListUpdates == "" {
		prefs.ListUpdates = ListUpdatesAlways
	}
	s.prefs[userID] = prefs
}

package relay

import (
	"sync"

	"office-relay/domain"
)

// SessionStore maps normalized employee ids to their live attendance timer.
// It is a transient cache with process lifetime: no persistence, no TTL.
// A record whose checkout is never relayed (backend crash, network failure)
// stays in memory until the relay restarts.
//
// Only the Translator mutates it; readers get copies. The mutex protects
// map integrity under the multi-goroutine HTTP transport, nothing more:
// two relay calls racing for the same employee are applied in whatever
// order they reach the handler.
type SessionStore struct {
	mu     sync.RWMutex
	timers map[string]domain.SessionRecord
}

func NewSessionStore() *SessionStore {
	return &SessionStore{timers: make(map[string]domain.SessionRecord)}
}

// Put creates or replaces the timer for a normalized employee id.
func (s *SessionStore) Put(employeeID string, rec domain.SessionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timers[employeeID] = rec
}

// Delete removes the timer if present. Deleting an unknown id is a no-op,
// so a checkout relayed after a relay restart still succeeds.
func (s *SessionStore) Delete(employeeID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.timers, employeeID)
}

// Get returns the timer for a normalized employee id.
func (s *SessionStore) Get(employeeID string) (domain.SessionRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.timers[employeeID]
	return rec, ok
}

// Snapshot returns a copy of all live timers for inspection.
func (s *SessionStore) Snapshot() map[string]domain.SessionRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]domain.SessionRecord, len(s.timers))
	for id, rec := range s.timers {
		out[id] = rec
	}
	return out
}

// Len returns the number of live timers.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.timers)
}

package session

import "sync"

// Store provides thread-safe storage for live sessions, keyed by payment
// reference. Sessions are removed once they reach a terminal state.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewStore creates a new empty session store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*Session)}
}

// Save stores a session under its reference.
func (s *Store) Save(sess *Session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.Reference()] = sess
}

// Get retrieves a session by reference.
func (s *Store) Get(ref string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[ref]
	return sess, ok
}

// Remove drops a session. Removing an unknown reference is a no-op, so
// teardown stays idempotent.
func (s *Store) Remove(ref string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, ref)
}

// Len returns the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

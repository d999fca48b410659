package auth

import "sync"

// Session is an authenticated dashboard session keyed by its token.
type Session struct {
	Token string
	User  User
}

// Sessions is the in-process registry of active sessions. Created on login,
// consulted by the API middleware, removed on logout or forced sign-out.
type Sessions struct {
	mu       sync.RWMutex
	byToken  map[string]Session
	onRemove func(token string)
}

// NewSessions creates an empty session registry.
func NewSessions() *Sessions {
	return &Sessions{
		byToken: make(map[string]Session),
	}
}

// SetRemoveCallback registers a callback invoked whenever a session is
// removed, with the removed token.
func (s *Sessions) SetRemoveCallback(cb func(token string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onRemove = cb
}

// Add registers a session.
func (s *Sessions) Add(token string, user User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byToken[token] = Session{Token: token, User: user}
}

// Get returns the session for a token.
func (s *Sessions) Get(token string) (Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.byToken[token]
	return sess, ok
}

// Remove deletes the session for a token. No-op when absent.
func (s *Sessions) Remove(token string) {
	s.mu.Lock()
	_, ok := s.byToken[token]
	delete(s.byToken, token)
	cb := s.onRemove
	s.mu.Unlock()

	if ok && cb != nil {
		cb(token)
	}
}

// Count returns the number of active sessions.
func (s *Sessions) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byToken)
}

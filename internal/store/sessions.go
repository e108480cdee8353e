package store

import "github.com/google/uuid"

// CreateSession mints a fresh random token, binds it to the user and
// marks the user online. Sessions do not survive a restart.
func (s *Store) CreateSession(userID string) string {
	token := uuid.NewString()

	s.sessionsMu.Lock()
	s.sessions[token] = userID
	s.sessionsMu.Unlock()

	s.setUserOnline(userID, true)
	return token
}

// ResolveSession maps a token back to the user id it was minted for.
func (s *Store) ResolveSession(token string) (string, bool) {
	s.sessionsMu.RLock()
	defer s.sessionsMu.RUnlock()
	userID, ok := s.sessions[token]
	return userID, ok
}

// RemoveSession drops the token and marks its user offline. An unknown
// token is a no-op.
func (s *Store) RemoveSession(token string) {
	s.sessionsMu.Lock()
	userID, ok := s.sessions[token]
	if ok {
		delete(s.sessions, token)
	}
	s.sessionsMu.Unlock()

	if ok {
		s.setUserOnline(userID, false)
	}
}

package webui

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// DefaultSessionTTL is how long a browser session stays valid without
// activity before the server forgets it.
const DefaultSessionTTL = 24 * time.Hour

// Sessions tracks browser sessions server-side. A cookie only names a
// session; the server decides whether it is still alive.
type Sessions struct {
	mu       sync.Mutex
	ttl      time.Duration
	lastSeen map[string]time.Time
}

func NewSessions(ttl time.Duration) *Sessions {
	if ttl <= 0 {
		ttl = DefaultSessionTTL
	}
	return &Sessions{
		ttl:      ttl,
		lastSeen: make(map[string]time.Time),
	}
}

// Issue creates a new session and returns its token.
func (s *Sessions) Issue() string {
	token := uuid.NewString()
	s.mu.Lock()
	s.lastSeen[token] = time.Now()
	s.mu.Unlock()
	return token
}

// Touch refreshes a session's activity timestamp. It reports false when
// the token is unknown or has expired, in which case the caller should
// issue a fresh session.
func (s *Sessions) Touch(token string) bool {
	if token == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	seen, ok := s.lastSeen[token]
	if !ok {
		return false
	}
	if time.Since(seen) > s.ttl {
		delete(s.lastSeen, token)
		return false
	}
	s.lastSeen[token] = time.Now()
	return true
}

// Revoke forgets a session.
func (s *Sessions) Revoke(token string) {
	s.mu.Lock()
	delete(s.lastSeen, token)
	s.mu.Unlock()
}

// Sweep drops expired sessions and returns their tokens so the caller can
// release whatever state hangs off them (chat transcripts).
func (s *Sessions) Sweep() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []string
	for token, seen := range s.lastSeen {
		if time.Since(seen) > s.ttl {
			delete(s.lastSeen, token)
			removed = append(removed, token)
		}
	}
	return removed
}

// Len reports the number of live sessions.
func (s *Sessions) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.lastSeen)
}

package session

import (
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is the server-side record behind an opaque session id,
// associating an empty key/value map with each issued id.
type Session struct {
	ID        string
	CreatedAt time.Time
	ExpiresAt time.Time
	Values    map[string]string
}

// Store owns the id -> Session map. It is only ever mutated from the event
// loop goroutine, so it deliberately has no internal locking beyond a
// defensive mutex for the rare case a CGI-feeder goroutine needs read-only
// access to render HTTP_COOKIE-equivalent state; the event loop is still
// the sole mutator.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	ttl      time.Duration
}

// NewStore returns an empty store whose issued sessions live for ttl.
func NewStore(ttl time.Duration) *Store {
	return &Store{sessions: make(map[string]*Session), ttl: ttl}
}

// Issue creates a new session with a 128-bit, hex-encoded random id,
// sourced from google/uuid's random generator rather than hand-rolled
// crypto/rand plumbing.
func (s *Store) Issue() *Session {
	id := uuid.New()
	now := time.Now()
	sess := &Session{
		ID:        hex.EncodeToString(id[:]),
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
		Values:    make(map[string]string),
	}
	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess
}

// Get returns the session for id if present and not expired.
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok || time.Now().After(sess.ExpiresAt) {
		return nil, false
	}
	return sess, true
}

// Sweep removes expired sessions; invoked from the event loop's per-tick
// timer sweep.
func (s *Store) Sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, sess := range s.sessions {
		if now.After(sess.ExpiresAt) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// SetCookieHeader renders the Set-Cookie directive for a freshly issued
// session.
func SetCookieHeader(cookieName string, sess *Session, ttl time.Duration) string {
	return fmt.Sprintf("%s=%s; Path=/; HttpOnly; Max-Age=%d", cookieName, sess.ID, int(ttl.Seconds()))
}

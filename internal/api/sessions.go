package api

import (
	"sync"
	"time"

	"studiobook/internal/cart"
)

// session is a cart held for a client between requests. mu serialises all access
// to the cart.
type session struct {
	mu        sync.Mutex
	cart      *cart.Cart
	updatedAt time.Time

	// conflicting remembers which bookings were last seen conflicting, so snapshot
	// updates only report slots that changed.
	conflicting map[string]bool
}

func (s *session) touch(now time.Time) {
	s.updatedAt = now
}

// SessionStore keeps carts in memory until they sit idle longer than the timeout.
type SessionStore struct {
	sessions map[string]*session
	mu       sync.RWMutex
	timeout  time.Duration
	now      func() time.Time
}

// NewSessionStore creates a new session store.
func NewSessionStore(timeout time.Duration, now func() time.Time) *SessionStore {
	if timeout <= 0 {
		timeout = 2 * time.Hour
	}
	if now == nil {
		now = time.Now
	}
	return &SessionStore{
		sessions: make(map[string]*session),
		timeout:  timeout,
		now:      now,
	}
}

// Add stores a new cart and returns its session.
func (ss *SessionStore) Add(c *cart.Cart) *session {
	s := &session{cart: c, updatedAt: ss.now(), conflicting: map[string]bool{}}

	ss.mu.Lock()
	defer ss.mu.Unlock()
	ss.sessions[c.ID()] = s
	return s
}

// Get returns a live session. Expired sessions are treated as missing.
func (ss *SessionStore) Get(id string) (*session, bool) {
	ss.mu.RLock()
	s, ok := ss.sessions[id]
	ss.mu.RUnlock()
	if !ok {
		return nil, false
	}

	s.mu.Lock()
	expired := ss.now().Sub(s.updatedAt) > ss.timeout
	s.mu.Unlock()
	if expired {
		ss.Delete(id)
		return nil, false
	}
	return s, true
}

// Delete removes a session.
func (ss *SessionStore) Delete(id string) {
	ss.mu.Lock()
	defer ss.mu.Unlock()
	delete(ss.sessions, id)
}

// Cleanup removes expired sessions.
func (ss *SessionStore) Cleanup() int {
	ss.mu.Lock()
	defer ss.mu.Unlock()

	removed := 0
	now := ss.now()
	for id, s := range ss.sessions {
		s.mu.Lock()
		expired := now.Sub(s.updatedAt) > ss.timeout
		s.mu.Unlock()
		if expired {
			delete(ss.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of stored sessions.
func (ss *SessionStore) Len() int {
	ss.mu.RLock()
	defer ss.mu.RUnlock()
	return len(ss.sessions)
}

// each calls fn for every session with the session locked.
func (ss *SessionStore) each(fn func(s *session)) {
	ss.mu.RLock()
	all := make([]*session, 0, len(ss.sessions))
	for _, s := range ss.sessions {
		all = append(all, s)
	}
	ss.mu.RUnlock()

	for _, s := range all {
		s.mu.Lock()
		fn(s)
		s.mu.Unlock()
	}
}

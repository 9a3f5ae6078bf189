// Package memory holds in-process adapters used when Valkey is not
// configured and in tests.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/samirrijal/hiitroute/internal/core/domain"
)

type entry struct {
	session   domain.Session
	expiresAt time.Time
}

// SessionStore implements ports.SessionStore in memory. Sessions expire ttl
// after their last write; a zero ttl keeps them forever.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[string]entry
	ttl      time.Duration
	now      func() time.Time
}

// NewSessionStore creates an empty store.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[string]entry),
		ttl:      ttl,
		now:      time.Now,
	}
}

func (s *SessionStore) Get(ctx context.Context, id string) (*domain.Session, error) {
	s.mu.RLock()
	e, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok || s.expired(e) {
		return nil, domain.ErrNotFound
	}
	return copySession(e.session), nil
}

func (s *SessionStore) Save(ctx context.Context, sess *domain.Session) error {
	e := entry{session: *copySession(*sess)}
	if s.ttl > 0 {
		e.expiresAt = s.now().Add(s.ttl)
	}
	s.mu.Lock()
	s.sessions[sess.ID] = e
	s.mu.Unlock()
	return nil
}

func (s *SessionStore) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		return domain.ErrNotFound
	}
	delete(s.sessions, id)
	if s.expired(e) {
		return domain.ErrNotFound
	}
	return nil
}

// Len returns the number of live sessions.
func (s *SessionStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, e := range s.sessions {
		if !s.expired(e) {
			n++
		}
	}
	return n
}

// Sweep drops expired sessions and returns how many were removed.
func (s *SessionStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for id, e := range s.sessions {
		if s.expired(e) {
			delete(s.sessions, id)
			n++
		}
	}
	return n
}

// RunJanitor sweeps every interval until ctx is done.
func (s *SessionStore) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}

func (s *SessionStore) expired(e entry) bool {
	return !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt)
}

// copySession copies the pointer fields so callers cannot reach stored
// state. Route slices are shared: route snapshots are never mutated.
func copySession(sess domain.Session) *domain.Session {
	if sess.MeetingLocation != nil {
		loc := *sess.MeetingLocation
		sess.MeetingLocation = &loc
	}
	if sess.Route.Warmup != nil {
		w := *sess.Route.Warmup
		sess.Route.Warmup = &w
	}
	return &sess
}

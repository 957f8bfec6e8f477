package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Errors
var (
	ErrNotFound        = errors.New("session does not exist")
	ErrTooManySessions = errors.New("too many sessions")
)

const expireInterval = time.Minute

type entry struct {
	mutex   sync.Mutex
	session *Session

	// Guarded by the store mutex
	lastUsed time.Time
	deleted  bool
}

// Store keeps sessions by id and serializes access to each of them
type Store struct {
	ttl         time.Duration
	maxSessions int
	now         func() time.Time

	mutex    sync.Mutex
	sessions map[string]*entry
}

// NewStore returns a store that drops sessions idle for longer than ttl.
// A maxSessions of 0 means unlimited.
func NewStore(ttl time.Duration, maxSessions int) *Store {
	return &Store{
		ttl:         ttl,
		maxSessions: maxSessions,
		now:         time.Now,
		sessions:    make(map[string]*entry),
	}
}

// Create adds an empty session and returns its id
func (s *Store) Create() (string, error) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.maxSessions > 0 && len(s.sessions) >= s.maxSessions {
		return "", ErrTooManySessions
	}

	id := uuid.NewString()
	s.sessions[id] = &entry{
		session:  New(),
		lastUsed: s.now(),
	}

	return id, nil
}

// Do calls fn with the session for id. Calls for the same session never run concurrently.
func (s *Store) Do(id string, fn func(*Session) error) error {
	s.mutex.Lock()
	e, ok := s.sessions[id]
	s.mutex.Unlock()

	if !ok {
		return ErrNotFound
	}

	e.mutex.Lock()
	defer e.mutex.Unlock()

	// The session may have been removed while we waited for it
	if !s.touch(e) {
		return ErrNotFound
	}

	err := fn(e.session)
	s.touch(e)

	return err
}

// touch marks the entry as used now, and reports whether it is still in the store
func (s *Store) touch(e *entry) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if e.deleted {
		return false
	}

	e.lastUsed = s.now()
	return true
}

// Delete removes a session
func (s *Store) Delete(id string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}

	e.deleted = true
	delete(s.sessions, id)

	return nil
}

// Len returns the number of sessions
func (s *Store) Len() int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	return len(s.sessions)
}

// Expire removes sessions that have been idle since before now minus the ttl, and returns how many were removed
func (s *Store) Expire(now time.Time) int {
	if s.ttl <= 0 {
		return 0
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	removed := 0
	for id, e := range s.sessions {
		if now.Sub(e.lastUsed) > s.ttl {
			e.deleted = true
			delete(s.sessions, id)
			removed++
		}
	}

	return removed
}

// Run expires idle sessions periodically until the context is cancelled
func (s *Store) Run(ctx context.Context, expired func(count int)) {
	ticker := time.NewTicker(expireInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if count := s.Expire(s.now()); count > 0 && expired != nil {
				expired(count)
			}
		case <-ctx.Done():
			return
		}
	}
}

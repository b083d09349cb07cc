package drivers

import (
	"context"
	"sync"

	"github.com/creastat/sessionstore/session"
)

// InMemoryStore implements session.Store using an in-memory map.
// Sessions are kept serialized so callers never share state with the store.
type InMemoryStore struct {
	mu       sync.RWMutex
	sessions map[string][]byte
}

// NewInMemoryStore creates a new in-memory session store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[string][]byte),
	}
}

// Load implements session.Store.
// Returns nil if the session is not found (not an error).
func (s *InMemoryStore) Load(ctx context.Context, cookieValue string) (*session.Session, error) {
	id, err := session.IDFromCookieValue(cookieValue)
	if err != nil {
		return nil, err
	}

	s.mu.RLock()
	data, exists := s.sessions[id]
	s.mu.RUnlock()

	if !exists {
		return nil, nil // Not found
	}
	return session.Decode("load", id, data)
}

// Store implements session.Store.
func (s *InMemoryStore) Store(ctx context.Context, sess *session.Session) (string, error) {
	id, data, err := session.Encode("store", sess)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	s.sessions[id] = data
	s.mu.Unlock()

	return sess.CookieValue(), nil
}

// Destroy implements session.Store.
func (s *InMemoryStore) Destroy(ctx context.Context, sess *session.Session) error {
	id, err := session.IDOf("destroy", sess)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.sessions, id)
	return nil
}

// Clear implements session.Store.
func (s *InMemoryStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions = make(map[string][]byte)
	return nil
}

// Len returns the number of stored sessions.
func (s *InMemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

var _ session.Store = (*InMemoryStore)(nil)

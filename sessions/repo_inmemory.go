package sessions

import (
	"context"
	"maps"
	"sync"

	apperrors "github.com/jrsteele09/go-auth-exchange/internal/errors"
)

var _ Store = (*InMemoryStore)(nil)

// InMemoryStore is a thread-safe in-memory implementation of Store
type InMemoryStore struct {
	sessions map[string]Session
	lock     sync.RWMutex
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		sessions: make(map[string]Session),
	}
}

func (s *InMemoryStore) Save(_ context.Context, session Session) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	session.Data = maps.Clone(session.Data)
	s.sessions[session.Token] = session
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, token string) (*Session, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	session, ok := s.sessions[token]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	session.Data = maps.Clone(session.Data)
	return &session, nil
}

func (s *InMemoryStore) Delete(_ context.Context, token string) (bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.sessions[token]; !ok {
		return false, nil
	}
	delete(s.sessions, token)
	return true, nil
}

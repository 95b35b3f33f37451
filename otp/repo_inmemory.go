package otp

import (
	"context"
	"sync"

	apperrors "github.com/jrsteele09/go-auth-exchange/internal/errors"
)

var _ Store = (*InMemoryStore)(nil)

type InMemoryStore struct {
	passwords map[string]Password
	lock      sync.Mutex
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		passwords: make(map[string]Password),
	}
}

func (s *InMemoryStore) Save(_ context.Context, p Password) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.passwords[p.ID] = p
	return nil
}

func (s *InMemoryStore) Get(_ context.Context, id string) (*Password, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	p, ok := s.passwords[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return &p, nil
}

func (s *InMemoryStore) IncrementAttempts(_ context.Context, id string) (int, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	p, ok := s.passwords[id]
	if !ok {
		return 0, apperrors.ErrNotFound
	}
	p.Attempts++
	s.passwords[id] = p
	return p.Attempts, nil
}

func (s *InMemoryStore) Delete(_ context.Context, id string) (bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()
	if _, ok := s.passwords[id]; !ok {
		return false, nil
	}
	delete(s.passwords, id)
	return true, nil
}

package ephemeral

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/go-auth-exchange/internal/errors"
)

var _ Store = (*InMemoryStore)(nil)

// InMemoryStore is a thread-safe in-memory implementation of Store
type InMemoryStore struct {
	tokens map[string]Token
	lock   sync.RWMutex
}

// NewInMemoryStore creates a new in-memory ephemeral token store
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		tokens: make(map[string]Token),
	}
}

func (s *InMemoryStore) Save(_ context.Context, t Token) error {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, exists := s.tokens[t.Token]; exists {
		return ErrDuplicateToken
	}
	s.tokens[t.Token] = clone(t)
	return nil
}

func (s *InMemoryStore) GetByToken(_ context.Context, value string) (*Token, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()

	t, ok := s.tokens[value]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	c := clone(t)
	return &c, nil
}

func (s *InMemoryStore) Delete(_ context.Context, value string) (bool, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	if _, ok := s.tokens[value]; !ok {
		return false, nil
	}
	delete(s.tokens, value)
	return true, nil
}

// DeleteExpired removes tokens that expired before now and returns how many
// were removed.
func (s *InMemoryStore) DeleteExpired(now time.Time) int {
	s.lock.Lock()
	defer s.lock.Unlock()

	n := 0
	for value, t := range s.tokens {
		if t.Expired(now) {
			delete(s.tokens, value)
			n++
		}
	}
	return n
}

// Len returns the number of stored tokens.
func (s *InMemoryStore) Len() int {
	s.lock.RLock()
	defer s.lock.RUnlock()
	return len(s.tokens)
}

func clone(t Token) Token {
	t.Restrictions.Permissions = slices.Clone(t.Restrictions.Permissions)
	t.Restrictions.Scopes = slices.Clone(t.Restrictions.Scopes)
	t.AdditionalInformation = maps.Clone(t.AdditionalInformation)
	return t
}

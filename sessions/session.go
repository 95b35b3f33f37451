// Package sessions issues and checks server-side session tokens. Sessions
// are not consumed when verified.
package sessions

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/jrsteele09/go-auth-exchange/internal/errors"
	"github.com/jrsteele09/go-auth-exchange/token"
)

// Session is an authenticated server-side session
type Session struct {
	Token     string            // Opaque value held by the client
	AccountID string            // Account the session belongs to
	Domain    string            // Domain the account authenticated in
	CreatedAt time.Time         // When the session was created
	ExpiresAt time.Time         // When the session expires
	Data      map[string]string // Provenance (client, device, source exchange)
}

// Store defines session storage. Get fails with apperrors.ErrNotFound when
// the session does not exist.
type Store interface {
	Save(ctx context.Context, s Session) error
	Get(ctx context.Context, token string) (*Session, error)
	Delete(ctx context.Context, token string) (bool, error)
}

// Manager issues session tokens and verifies them
type Manager struct {
	store    Store
	lifetime time.Duration
	nowTime  func() time.Time
}

var _ token.Issuer = (*Manager)(nil)

type ManagerOption func(*Manager)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowTime func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowTime = nowTime
	}
}

func NewManager(store Store, lifetime time.Duration, options ...ManagerOption) *Manager {
	m := &Manager{
		store:    store,
		lifetime: lifetime,
		nowTime:  time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// Issue creates a session for p and returns its token. Sessions carry no
// restrictions of their own.
func (m *Manager) Issue(ctx context.Context, p token.Principal, _ token.Restrictions, opts token.Options) (*token.AuthResponse, error) {
	value, err := token.RandomString(token.DefaultOpaqueLength)
	if err != nil {
		return nil, err
	}

	now := m.nowTime()
	s := Session{
		Token:     value,
		AccountID: p.ID,
		Domain:    p.Domain,
		CreatedAt: now,
		ExpiresAt: now.Add(m.lifetime),
		Data: map[string]string{
			"source":   opts.Source,
			"clientId": opts.ClientID,
			"deviceId": opts.DeviceID,
		},
	}
	if err := m.store.Save(ctx, s); err != nil {
		return nil, apperrors.Wrapf(err, "save session")
	}

	return &token.AuthResponse{
		EntityType: p.EntityType,
		EntityID:   p.ID,
		Type:       token.SessionToken,
		Token:      token.StringToken(value),
		ValidFor:   m.lifetime,
	}, nil
}

// Verify returns the live session for value. Unknown tokens fail with
// apperrors.ErrInvalidToken; expired sessions are deleted and fail with
// apperrors.ErrExpiredOrConsumedToken.
func (m *Manager) Verify(ctx context.Context, value string) (*Session, error) {
	if value == "" {
		return nil, apperrors.ErrInvalidToken
	}
	s, err := m.store.Get(ctx, value)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.ErrInvalidToken
	}
	if err != nil {
		return nil, apperrors.Wrapf(err, "get session")
	}

	if !m.nowTime().Before(s.ExpiresAt) {
		if _, err := m.store.Delete(ctx, value); err != nil {
			return nil, apperrors.Wrapf(err, "delete expired session")
		}
		return nil, apperrors.WithEntity(s.AccountID, apperrors.ErrExpiredOrConsumedToken)
	}
	return s, nil
}

// Revoke ends a session.
func (m *Manager) Revoke(ctx context.Context, value string) error {
	_, err := m.store.Delete(ctx, value)
	return err
}

package otp

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/jrsteele09/go-auth-exchange/internal/config"
	apperrors "github.com/jrsteele09/go-auth-exchange/internal/errors"
	"github.com/jrsteele09/go-auth-exchange/token"
)

// Manager issues one-time passwords and verifies presented ones
type Manager struct {
	store       Store
	sender      Sender
	length      int
	mode        string
	maxAttempts int
	lifetime    time.Duration
	nowTime     func() time.Time
}

var _ token.Issuer = (*Manager)(nil)

type ManagerOption func(*Manager)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowTime func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowTime = nowTime
	}
}

func NewManager(store Store, sender Sender, cfg config.OTPConfig, lifetime time.Duration, options ...ManagerOption) *Manager {
	m := &Manager{
		store:       store,
		sender:      sender,
		length:      cfg.Length,
		mode:        cfg.Mode,
		maxAttempts: cfg.MaxAttempts,
		lifetime:    lifetime,
		nowTime:     time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	return m
}

// Issue creates a password for p, hands it to the sender and returns the
// password id as the response token.
func (m *Manager) Issue(ctx context.Context, p token.Principal, _ token.Restrictions, _ token.Options) (*token.AuthResponse, error) {
	value, err := Generate(m.length, m.mode)
	if err != nil {
		return nil, err
	}

	pw := Password{
		ID:        NewID(),
		AccountID: p.ID,
		Value:     value,
		ExpiresAt: m.nowTime().Add(m.lifetime),
	}
	if err := m.store.Save(ctx, pw); err != nil {
		return nil, apperrors.Wrapf(err, "save otp")
	}

	if err := m.sender.Send(ctx, Delivery{
		PasswordID: pw.ID,
		AccountID:  p.ID,
		Email:      p.Email,
		Value:      value,
		ExpiresAt:  pw.ExpiresAt,
	}); err != nil {
		_, _ = m.store.Delete(ctx, pw.ID)
		return nil, apperrors.Wrapf(err, "send otp")
	}

	return &token.AuthResponse{
		EntityType: p.EntityType,
		EntityID:   p.ID,
		Type:       token.OTP,
		Token:      token.StringToken(pw.ID),
		ValidFor:   m.lifetime,
	}, nil
}

// Verify checks a presented "<passwordId>:<value>" and consumes the password
// on success. Every presentation reserves one attempt before the value is
// compared, so at most maxAttempts values are ever evaluated per password. A
// password that reaches the limit or expires is deleted.
func (m *Manager) Verify(ctx context.Context, presented string) (*Password, error) {
	id, value, ok := strings.Cut(presented, ":")
	if !ok || id == "" || value == "" {
		return nil, apperrors.ErrInvalidCredentials
	}

	pw, err := m.store.Get(ctx, id)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.ErrExpiredOrConsumedToken
	}
	if err != nil {
		return nil, apperrors.Wrapf(err, "get otp")
	}

	if !m.nowTime().Before(pw.ExpiresAt) {
		return nil, m.discard(ctx, pw)
	}

	attempt, err := m.store.IncrementAttempts(ctx, id)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.WithEntity(pw.AccountID, apperrors.ErrExpiredOrConsumedToken)
	}
	if err != nil {
		return nil, apperrors.Wrapf(err, "count otp attempt")
	}
	if m.maxAttempts > 0 && attempt > m.maxAttempts {
		return nil, m.discard(ctx, pw)
	}

	if subtle.ConstantTimeCompare([]byte(value), []byte(pw.Value)) != 1 {
		if m.maxAttempts > 0 && attempt >= m.maxAttempts {
			if _, err := m.store.Delete(ctx, id); err != nil {
				return nil, apperrors.Wrapf(err, "delete otp")
			}
		}
		return nil, apperrors.WithEntity(pw.AccountID, apperrors.ErrInvalidCredentials)
	}

	deleted, err := m.store.Delete(ctx, id)
	if err != nil {
		return nil, apperrors.Wrapf(err, "delete otp")
	}
	if !deleted {
		return nil, apperrors.WithEntity(pw.AccountID, apperrors.ErrExpiredOrConsumedToken)
	}
	return pw, nil
}

// discard deletes a password that can no longer be used
func (m *Manager) discard(ctx context.Context, pw *Password) error {
	if _, err := m.store.Delete(ctx, pw.ID); err != nil {
		return apperrors.Wrapf(err, "delete otp")
	}
	return apperrors.WithEntity(pw.AccountID, apperrors.ErrExpiredOrConsumedToken)
}

// Package redisstore keeps ephemeral tokens in Redis.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/go-auth-exchange/ephemeral"
	apperrors "github.com/jrsteele09/go-auth-exchange/internal/errors"
	"github.com/jrsteele09/go-auth-exchange/token"
	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "ephemeral:"
	// expired rows outlive their expiry briefly so a late presentation is
	// still seen, rejected and deleted
	expiryGrace = time.Minute
)

var _ ephemeral.Store = (*Store)(nil)

type record struct {
	Kind                  token.Kind         `json:"kind"`
	AssociatedAccountID   string             `json:"associatedAccountId"`
	ExpiresAt             time.Time          `json:"expiresAt"`
	Restrictions          token.Restrictions `json:"tokenRestrictions"`
	AdditionalInformation map[string]string  `json:"additionalInformation,omitempty"`
}

type Store struct {
	rdb     redis.UniversalClient
	nowTime func() time.Time
}

func New(rdb redis.UniversalClient) *Store {
	return &Store{rdb: rdb, nowTime: time.Now}
}

func (s *Store) Save(ctx context.Context, t ephemeral.Token) error {
	data, err := json.Marshal(record{
		Kind:                  t.Kind,
		AssociatedAccountID:   t.AssociatedAccountID,
		ExpiresAt:             t.ExpiresAt,
		Restrictions:          t.Restrictions,
		AdditionalInformation: t.AdditionalInformation,
	})
	if err != nil {
		return fmt.Errorf("marshal ephemeral token: %w", err)
	}

	ttl := t.ExpiresAt.Sub(s.nowTime()) + expiryGrace
	if ttl < time.Second {
		ttl = time.Second
	}
	ok, err := s.rdb.SetNX(ctx, keyPrefix+t.Token, data, ttl).Result()
	if err != nil {
		return fmt.Errorf("save ephemeral token: %w", err)
	}
	if !ok {
		return ephemeral.ErrDuplicateToken
	}
	return nil
}

func (s *Store) GetByToken(ctx context.Context, value string) (*ephemeral.Token, error) {
	data, err := s.rdb.Get(ctx, keyPrefix+value).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get ephemeral token: %w", err)
	}

	var r record
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("unmarshal ephemeral token: %w", err)
	}
	return &ephemeral.Token{
		Token:                 value,
		Kind:                  r.Kind,
		AssociatedAccountID:   r.AssociatedAccountID,
		ExpiresAt:             r.ExpiresAt,
		Restrictions:          r.Restrictions,
		AdditionalInformation: r.AdditionalInformation,
	}, nil
}

func (s *Store) Delete(ctx context.Context, value string) (bool, error) {
	n, err := s.rdb.Del(ctx, keyPrefix+value).Result()
	if err != nil {
		return false, fmt.Errorf("delete ephemeral token: %w", err)
	}
	return n == 1, nil
}

// Package ephemeral defines the store for opaque, single-use, time-bounded
// tokens: refresh tokens, authorization codes and passwordless links.
package ephemeral

import (
	"context"
	"errors"
	"time"

	"github.com/jrsteele09/go-auth-exchange/token"
)

// Keys of Token.AdditionalInformation
const (
	InfoCodeChallenge       = "codeChallenge"
	InfoCodeChallengeMethod = "codeChallengeMethod"
	InfoSourceExchange      = "sourceExchange"
	InfoClientID            = "clientId"
	InfoDeviceID            = "deviceId"
	InfoDomain              = "domain"
)

var ErrDuplicateToken = errors.New("ephemeral token already exists")

// Token is a persisted opaque token. Kind records which token kind the value
// was minted as so it cannot be redeemed as another kind.
type Token struct {
	Token                 string
	Kind                  token.Kind
	AssociatedAccountID   string
	ExpiresAt             time.Time
	Restrictions          token.Restrictions
	AdditionalInformation map[string]string
}

// Expired reports whether the token is past its expiry at now.
func (t *Token) Expired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

// Info returns an additional information value, or "".
func (t *Token) Info(key string) string {
	return t.AdditionalInformation[key]
}

// Store persists ephemeral tokens. Token values are unique: Save fails with
// ErrDuplicateToken for a value already present. GetByToken fails with
// apperrors.ErrNotFound when absent. Delete reports whether this call removed
// the row; when two callers race, exactly one sees true. That delete is the
// serialization point for single-use consumption.
type Store interface {
	Save(ctx context.Context, t Token) error
	GetByToken(ctx context.Context, value string) (*Token, error)
	Delete(ctx context.Context, value string) (bool, error)
}

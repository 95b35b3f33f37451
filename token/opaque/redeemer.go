package opaque

import (
	"context"
	"errors"
	"time"

	"github.com/jrsteele09/go-auth-exchange/ephemeral"
	apperrors "github.com/jrsteele09/go-auth-exchange/internal/errors"
	"github.com/jrsteele09/go-auth-exchange/token"
	"github.com/jrsteele09/go-auth-exchange/token/cipher"
)

// Policy decides when a redeemed token is deleted.
type Policy int

const (
	// DeleteOnSuccess removes the token only once every check has passed, so
	// a failed proof (a wrong PKCE verifier) leaves it redeemable.
	DeleteOnSuccess Policy = iota
	// DeleteAlways removes the token as soon as it is found. Refresh tokens
	// use it so a leaked token dies on first presentation.
	DeleteAlways
)

// Validator is an extra check run against the stored token, such as PKCE.
type Validator func(stored *ephemeral.Token, req token.AuthRequest) error

// Redeemer verifies and consumes opaque tokens of one kind.
type Redeemer struct {
	kind      token.Kind
	store     ephemeral.Store
	cipher    cipher.Cipher
	policy    Policy
	validator Validator
	nowTime   func() time.Time
}

type RedeemerOption func(*Redeemer)

// WithRedeemerNowTime sets the now time function (primarily for testing)
func WithRedeemerNowTime(nowTime func() time.Time) RedeemerOption {
	return func(r *Redeemer) {
		r.nowTime = nowTime
	}
}

// WithValidator adds a check run after expiry and before consumption.
func WithValidator(v Validator) RedeemerOption {
	return func(r *Redeemer) {
		r.validator = v
	}
}

// NewRedeemer creates a redeemer for kind. A nil cipher disables decryption.
func NewRedeemer(kind token.Kind, store ephemeral.Store, c cipher.Cipher, policy Policy, options ...RedeemerOption) *Redeemer {
	if c == nil {
		c = cipher.Disabled{}
	}
	r := &Redeemer{
		kind:    kind,
		store:   store,
		cipher:  c,
		policy:  policy,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Redeem looks up the token in req.Token, checks it and consumes it. It
// returns the stored token, which is gone from the store when Redeem
// succeeds. Unknown, expired, already consumed or wrong-kind tokens fail with
// apperrors.ErrExpiredOrConsumedToken; expired tokens are deleted.
func (r *Redeemer) Redeem(ctx context.Context, req token.AuthRequest) (*ephemeral.Token, error) {
	value, err := r.plainValue(req.Token)
	if err != nil {
		return nil, err
	}

	stored, err := r.store.GetByToken(ctx, value)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.ErrExpiredOrConsumedToken
	}
	if err != nil {
		return nil, apperrors.Wrapf(err, "get %s", r.kind)
	}
	if stored.Kind != r.kind {
		return nil, apperrors.ErrExpiredOrConsumedToken
	}
	entity := stored.AssociatedAccountID

	if r.policy == DeleteAlways {
		if err := r.consume(ctx, value, entity); err != nil {
			return nil, err
		}
	}

	if stored.Expired(r.nowTime()) {
		if r.policy != DeleteAlways {
			if _, err := r.store.Delete(ctx, value); err != nil {
				return nil, apperrors.Wrapf(err, "delete expired %s", r.kind)
			}
		}
		return nil, apperrors.WithEntity(entity, apperrors.ErrExpiredOrConsumedToken)
	}

	if r.validator != nil {
		if err := r.validator(stored, req); err != nil {
			return nil, apperrors.WithEntity(entity, err)
		}
	}

	if r.policy == DeleteOnSuccess {
		if err := r.consume(ctx, value, entity); err != nil {
			return nil, err
		}
	}
	return stored, nil
}

// consume deletes the token. Losing the delete to a concurrent caller means
// the token was already used.
func (r *Redeemer) consume(ctx context.Context, value, entity string) error {
	deleted, err := r.store.Delete(ctx, value)
	if err != nil {
		return apperrors.Wrapf(err, "delete %s", r.kind)
	}
	if !deleted {
		return apperrors.WithEntity(entity, apperrors.ErrExpiredOrConsumedToken)
	}
	return nil
}

func (r *Redeemer) plainValue(presented string) (string, error) {
	if presented == "" {
		return "", apperrors.ErrInvalidToken
	}
	if !r.cipher.Enabled() {
		return presented, nil
	}
	plain, err := r.cipher.Decrypt(presented)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}

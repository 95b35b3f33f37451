// Package opaque mints and redeems the single-use opaque token kinds:
// refresh tokens, authorization codes and passwordless links.
package opaque

import (
	"context"
	"maps"
	"time"

	"github.com/jrsteele09/go-auth-exchange/ephemeral"
	apperrors "github.com/jrsteele09/go-auth-exchange/internal/errors"
	"github.com/jrsteele09/go-auth-exchange/token"
	"github.com/jrsteele09/go-auth-exchange/token/cipher"
)

// Issuer creates opaque tokens of one kind and persists them in the
// ephemeral store. When the cipher is enabled the value handed out is the
// encrypted form; the store always holds the plain value.
type Issuer struct {
	kind     token.Kind
	store    ephemeral.Store
	cipher   cipher.Cipher
	lifetime time.Duration
	length   int
	nowTime  func() time.Time
}

var _ token.Issuer = (*Issuer)(nil)

type Option func(*Issuer)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowTime func() time.Time) Option {
	return func(i *Issuer) {
		i.nowTime = nowTime
	}
}

// WithLength sets the number of random bytes per token
func WithLength(n int) Option {
	return func(i *Issuer) {
		if n > 0 {
			i.length = n
		}
	}
}

// NewIssuer creates an issuer for kind. A nil cipher disables encryption.
func NewIssuer(kind token.Kind, store ephemeral.Store, c cipher.Cipher, lifetime time.Duration, options ...Option) *Issuer {
	if c == nil {
		c = cipher.Disabled{}
	}
	i := &Issuer{
		kind:     kind,
		store:    store,
		cipher:   c,
		lifetime: lifetime,
		length:   token.DefaultOpaqueLength,
		nowTime:  time.Now,
	}
	for _, opt := range options {
		opt(i)
	}
	return i
}

func (i *Issuer) Kind() token.Kind {
	return i.kind
}

// Issue mints a token for p carrying r.
func (i *Issuer) Issue(ctx context.Context, p token.Principal, r token.Restrictions, opts token.Options) (*token.AuthResponse, error) {
	return i.IssueWithInfo(ctx, p, r, opts, nil)
}

// IssueWithInfo mints a token with extra additional information, such as a
// PKCE challenge bound to an authorization code.
func (i *Issuer) IssueWithInfo(ctx context.Context, p token.Principal, r token.Restrictions, opts token.Options, info map[string]string) (*token.AuthResponse, error) {
	value, err := token.RandomString(i.length)
	if err != nil {
		return nil, err
	}

	additional := maps.Clone(info)
	if additional == nil {
		additional = make(map[string]string)
	}
	setIfPresent(additional, ephemeral.InfoSourceExchange, opts.Source)
	setIfPresent(additional, ephemeral.InfoClientID, opts.ClientID)
	setIfPresent(additional, ephemeral.InfoDeviceID, opts.DeviceID)
	setIfPresent(additional, ephemeral.InfoDomain, p.Domain)

	stored := ephemeral.Token{
		Token:                 value,
		Kind:                  i.kind,
		AssociatedAccountID:   p.ID,
		ExpiresAt:             i.nowTime().Add(i.lifetime),
		Restrictions:          r.Snapshot(),
		AdditionalInformation: additional,
	}
	if err := i.store.Save(ctx, stored); err != nil {
		return nil, apperrors.Wrapf(err, "save %s", i.kind)
	}

	out := value
	if i.cipher.Enabled() {
		if out, err = i.cipher.Encrypt([]byte(value)); err != nil {
			return nil, apperrors.Wrapf(err, "encrypt %s", i.kind)
		}
	}

	return &token.AuthResponse{
		EntityType: p.EntityType,
		EntityID:   p.ID,
		Type:       i.kind,
		Token:      token.StringToken(out),
		ValidFor:   i.lifetime,
	}, nil
}

func setIfPresent(m map[string]string, key, value string) {
	if value != "" {
		m[key] = value
	}
}

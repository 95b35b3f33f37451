// Package jwt mints and verifies the signed token kinds: access tokens, ID
// tokens and application API keys.
package jwt

import (
	"context"
	"fmt"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-auth-exchange/internal/config"
	"github.com/jrsteele09/go-auth-exchange/token"
	"github.com/jrsteele09/go-auth-exchange/token/jti"
	"github.com/jrsteele09/go-auth-exchange/token/keys"
)

// Private claim names
const (
	ClaimDomain      = "domain"
	ClaimSource      = "src"
	ClaimTokenType   = "token_type"
	ClaimEntityType  = "entity_type"
	ClaimPermissions = "permissions"
	ClaimScopes      = "scopes"
	ClaimEmail       = "email"
	ClaimNonce       = "nonce"
	ClaimClientID    = "client_id"
	ClaimDeviceID    = "device_id"
)

// Issuer creates signed tokens of a single kind
type Issuer struct {
	kind     token.Kind
	signer   keys.Signer
	issuer   string
	strategy config.Strategy
	nowTime  func() time.Time
}

var _ token.Issuer = (*Issuer)(nil)

type IssuerOption func(*Issuer)

// WithIssuerNowTime sets the clock used for iat/exp (primarily for testing)
func WithIssuerNowTime(nowTime func() time.Time) IssuerOption {
	return func(i *Issuer) {
		i.nowTime = nowTime
	}
}

func newIssuer(kind token.Kind, signer keys.Signer, cfg config.JWTConfig, options []IssuerOption) *Issuer {
	i := &Issuer{
		kind:     kind,
		signer:   signer,
		issuer:   cfg.Issuer,
		strategy: cfg.StrategyFor(string(kind)),
		nowTime:  time.Now,
	}
	for _, opt := range options {
		opt(i)
	}
	return i
}

// NewAccessTokenIssuer creates the issuer for access tokens
func NewAccessTokenIssuer(signer keys.Signer, cfg config.JWTConfig, options ...IssuerOption) *Issuer {
	return newIssuer(token.AccessToken, signer, cfg, options)
}

// NewIDTokenIssuer creates the issuer for OpenID Connect ID tokens, which add
// the email and nonce claims.
func NewIDTokenIssuer(signer keys.Signer, cfg config.JWTConfig, options ...IssuerOption) *Issuer {
	return newIssuer(token.IDToken, signer, cfg, options)
}

// NewAPIKeyIssuer creates the issuer for long-lived application API keys
func NewAPIKeyIssuer(signer keys.Signer, cfg config.JWTConfig, options ...IssuerOption) *Issuer {
	return newIssuer(token.APIKey, signer, cfg, options)
}

// Kind returns the token kind this issuer mints
func (i *Issuer) Kind() token.Kind {
	return i.kind
}

// Lifetime returns how long minted tokens are valid
func (i *Issuer) Lifetime() time.Duration {
	return i.strategy.TokenLife
}

// Issue signs a token for p carrying restrictions r.
func (i *Issuer) Issue(_ context.Context, p token.Principal, r token.Restrictions, opts token.Options) (*token.AuthResponse, error) {
	now := i.nowTime()
	domain := p.Domain
	if domain == "" {
		domain = opts.Domain
	}

	claims := jwtlib.MapClaims{
		"sub":           p.ID,
		"iat":           now.Unix(),
		"exp":           now.Add(i.strategy.TokenLife).Unix(),
		ClaimTokenType:  string(i.kind), // one signed kind is never accepted as another
		ClaimEntityType: string(p.EntityType),
		ClaimDomain:     domain,
		ClaimSource:     opts.Source,
	}
	if i.issuer != "" {
		claims["iss"] = i.issuer
	}
	if opts.ClientID != "" {
		claims["aud"] = opts.ClientID
		claims[ClaimClientID] = opts.ClientID
	}
	if opts.DeviceID != "" {
		claims[ClaimDeviceID] = opts.DeviceID
	}
	if i.strategy.UseJti {
		claims["jti"] = jti.NewID()
	}
	if i.strategy.IncludePermissions {
		claims[ClaimPermissions] = nonNil(r.Permissions)
	}
	if i.strategy.IncludeScopes {
		claims[ClaimScopes] = nonNil(r.Scopes)
	}

	if i.kind == token.IDToken {
		if p.Email != "" {
			claims[ClaimEmail] = p.Email
		}
		if opts.Nonce != "" {
			claims[ClaimNonce] = opts.Nonce
		}
	}

	signed, err := i.signer.Sign(claims)
	if err != nil {
		return nil, fmt.Errorf("failed to sign %s: %w", i.kind, err)
	}

	return &token.AuthResponse{
		EntityType: p.EntityType,
		EntityID:   p.ID,
		Type:       i.kind,
		Token:      token.StringToken(signed),
		ValidFor:   i.strategy.TokenLife,
	}, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

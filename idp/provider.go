// Package idp is the client boundary to an upstream OpenID Connect provider.
package idp

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/go-auth-exchange/internal/config"
	apperrors "github.com/jrsteele09/go-auth-exchange/internal/errors"
	"golang.org/x/oauth2"
)

// Identity is what an upstream ID token asserts about its subject.
type Identity struct {
	Issuer        string
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}

// ExternalID is the key accounts are linked to upstream identities by.
func (i *Identity) ExternalID() string {
	return i.Subject
}

// Provider verifies upstream ID tokens.
type Provider interface {
	VerifyIDToken(ctx context.Context, rawIDToken, nonce string) (*Identity, error)
}

// OIDCProvider verifies ID tokens issued by one upstream provider and
// redeems its authorization codes.
type OIDCProvider struct {
	verifier     *oidc.IDTokenVerifier
	oauth2Config *oauth2.Config
}

var _ Provider = (*OIDCProvider)(nil)

// NewOIDCProvider discovers the upstream provider named by cfg.Issuer.
func NewOIDCProvider(ctx context.Context, cfg config.IdPConfig) (*OIDCProvider, error) {
	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return nil, fmt.Errorf("failed to create OIDC provider: %w", err)
	}

	return NewOIDCProviderFromParts(
		provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		&oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
	), nil
}

// NewOIDCProviderFromParts builds a provider from an existing verifier and
// OAuth2 client configuration. oauth2Config may be nil when codes are never
// redeemed.
func NewOIDCProviderFromParts(verifier *oidc.IDTokenVerifier, oauth2Config *oauth2.Config) *OIDCProvider {
	return &OIDCProvider{
		verifier:     verifier,
		oauth2Config: oauth2Config,
	}
}

// VerifyIDToken checks signature, issuer, audience and expiry of rawIDToken,
// and its nonce when one is expected. Every failure is ErrInvalidToken.
func (p *OIDCProvider) VerifyIDToken(ctx context.Context, rawIDToken, nonce string) (*Identity, error) {
	idToken, err := p.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "upstream id token: %v", err)
	}

	var claims struct {
		Nonce         string `json:"nonce"`
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "upstream id token claims: %v", err)
	}

	if nonce != "" && subtle.ConstantTimeCompare([]byte(claims.Nonce), []byte(nonce)) != 1 {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "upstream id token nonce mismatch")
	}

	return &Identity{
		Issuer:        idToken.Issuer,
		Subject:       idToken.Subject,
		Email:         claims.Email,
		EmailVerified: claims.EmailVerified,
		Name:          claims.Name,
	}, nil
}

// ExchangeCode redeems an upstream authorization code, with its PKCE
// verifier when one was used, and verifies the returned ID token.
func (p *OIDCProvider) ExchangeCode(ctx context.Context, code, codeVerifier, nonce string) (*Identity, error) {
	if p.oauth2Config == nil {
		return nil, errors.New("oidc provider has no oauth2 client configuration")
	}

	var opts []oauth2.AuthCodeOption
	if codeVerifier != "" {
		opts = append(opts, oauth2.VerifierOption(codeVerifier))
	}
	oauth2Token, err := p.oauth2Config.Exchange(ctx, code, opts...)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidCredentials, "upstream code exchange: %v", err)
	}

	rawIDToken, ok := oauth2Token.Extra("id_token").(string)
	if !ok {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "no id_token in upstream response")
	}
	return p.VerifyIDToken(ctx, rawIDToken, nonce)
}

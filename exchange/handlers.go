package exchange

import (
	"context"
	"errors"

	"github.com/jrsteele09/go-auth-exchange/accounts"
	"github.com/jrsteele09/go-auth-exchange/ephemeral"
	"github.com/jrsteele09/go-auth-exchange/idp"
	apperrors "github.com/jrsteele09/go-auth-exchange/internal/errors"
	"github.com/jrsteele09/go-auth-exchange/otp"
	"github.com/jrsteele09/go-auth-exchange/sessions"
	"github.com/jrsteele09/go-auth-exchange/token"
	"github.com/jrsteele09/go-auth-exchange/token/jwt"
	"github.com/jrsteele09/go-auth-exchange/token/opaque"
)

// CredentialsHandler authenticates an identifier and password and mints the
// target kind for the account.
type CredentialsHandler struct {
	to          token.Kind
	credentials accounts.CredentialsVerifier
	mint        mintFunc
}

func (h *CredentialsHandler) Exchange(ctx context.Context, req token.AuthRequest) (*token.AuthResponse, error) {
	if req.Identifier == "" || req.Password == "" {
		return nil, apperrors.ErrInvalidCredentials
	}
	account, err := h.credentials.Authenticate(ctx, req.Identifier, req.Password, req.Domain)
	if err != nil {
		return nil, err
	}

	p := account.Principal()
	r := token.Narrow(p.Grants(), req.Restrictions)
	resp, err := h.mint(ctx, p, r, req, token.OptionsFrom(req, token.Basic, h.to))
	return resp, apperrors.WithEntity(account.ID, err)
}

// RedeemHandler consumes a single-use opaque token and mints the target
// kind for the account it was issued to, keeping the token's restrictions.
type RedeemHandler struct {
	from     token.Kind
	to       token.Kind
	redeemer *opaque.Redeemer
	accounts accounts.Lookup
	mint     mintFunc
}

func (h *RedeemHandler) Exchange(ctx context.Context, req token.AuthRequest) (*token.AuthResponse, error) {
	stored, err := h.redeemer.Redeem(ctx, req)
	if err != nil {
		return nil, err
	}

	account, err := activeAccount(ctx, h.accounts, stored.AssociatedAccountID)
	if err != nil {
		return nil, err
	}

	p := account.Principal()
	base := token.Narrow(p.Grants(), &stored.Restrictions)
	r := token.Narrow(base, req.Restrictions)

	opts := token.OptionsFrom(req, h.from, h.to)
	if opts.ClientID == "" {
		opts.ClientID = stored.Info(ephemeral.InfoClientID)
	}
	resp, err := h.mint(ctx, p, r, req, opts)
	return resp, apperrors.WithEntity(account.ID, err)
}

// OTPHandler checks a one-time password presented as "<id>:<value>" in
// req.Token, or as identifier and password.
type OTPHandler struct {
	to       token.Kind
	otps     *otp.Manager
	accounts accounts.Lookup
	mint     mintFunc
}

func (h *OTPHandler) Exchange(ctx context.Context, req token.AuthRequest) (*token.AuthResponse, error) {
	presented := req.Token
	if presented == "" && req.Identifier != "" {
		presented = req.Identifier + ":" + req.Password
	}

	pw, err := h.otps.Verify(ctx, presented)
	if err != nil {
		return nil, err
	}
	account, err := activeAccount(ctx, h.accounts, pw.AccountID)
	if err != nil {
		return nil, err
	}

	p := account.Principal()
	r := token.Narrow(p.Grants(), req.Restrictions)
	resp, err := h.mint(ctx, p, r, req, token.OptionsFrom(req, token.OTP, h.to))
	return resp, apperrors.WithEntity(account.ID, err)
}

// ExternalIDTokenHandler trusts an upstream ID token for the account linked
// to its subject.
type ExternalIDTokenHandler struct {
	to       token.Kind
	provider idp.Provider
	accounts accounts.Lookup
	mint     mintFunc
}

func (h *ExternalIDTokenHandler) Exchange(ctx context.Context, req token.AuthRequest) (*token.AuthResponse, error) {
	identity, err := h.provider.VerifyIDToken(ctx, req.Token, req.ExtraValue(token.ExtraNonce))
	if err != nil {
		return nil, err
	}

	account, err := h.accounts.GetByExternalID(ctx, identity.ExternalID())
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, apperrors.Wrapf(err, "get account by external id")
	}
	if !account.CanAuthenticate() {
		return nil, apperrors.WithEntity(account.ID, apperrors.ErrInvalidCredentials)
	}

	p := account.Principal()
	r := token.Narrow(p.Grants(), req.Restrictions)
	resp, err := h.mint(ctx, p, r, req, token.OptionsFrom(req, token.ExternalIDToken, h.to))
	return resp, apperrors.WithEntity(account.ID, err)
}

// SessionHandler resolves a live session to its account. The session is
// left in place.
type SessionHandler struct {
	sessions *sessions.Manager
}

func (h *SessionHandler) Exchange(ctx context.Context, req token.AuthRequest) (*token.AuthResponse, error) {
	s, err := h.sessions.Verify(ctx, req.Token)
	if err != nil {
		return nil, err
	}
	return accountIDResponse(token.EntityAccount, s.AccountID), nil
}

// SignedTokenHandler resolves a signed token to the entity it was issued for.
type SignedTokenHandler struct {
	verifier *jwt.Verifier
}

func (h *SignedTokenHandler) Exchange(ctx context.Context, req token.AuthRequest) (*token.AuthResponse, error) {
	in, err := h.verifier.Verify(ctx, req.Token)
	if err != nil {
		return nil, err
	}
	entityType := in.EntityType
	if entityType == "" {
		entityType = token.EntityAccount
	}
	return accountIDResponse(entityType, in.Subject), nil
}

// APIKeyHandler resolves an API key to its application.
type APIKeyHandler struct {
	verifier *jwt.APIKeyVerifier
}

func (h *APIKeyHandler) Exchange(ctx context.Context, req token.AuthRequest) (*token.AuthResponse, error) {
	p, err := h.verifier.Verify(ctx, req.Token)
	if err != nil {
		return nil, err
	}
	return accountIDResponse(p.EntityType, p.ID), nil
}

func accountIDResponse(entityType token.EntityType, id string) *token.AuthResponse {
	return &token.AuthResponse{
		EntityType: entityType,
		EntityID:   id,
		Type:       token.AccountID,
		Token:      token.StringToken(id),
	}
}

// activeAccount loads the account a stored token belongs to. Accounts that
// were removed, locked or deactivated since the token was issued are refused.
func activeAccount(ctx context.Context, lookup accounts.Lookup, id string) (*accounts.Account, error) {
	account, err := lookup.GetByID(ctx, id)
	if errors.Is(err, apperrors.ErrNotFound) {
		return nil, apperrors.WithEntity(id, apperrors.ErrInvalidCredentials)
	}
	if err != nil {
		return nil, apperrors.Wrapf(err, "get account")
	}
	if !account.CanAuthenticate() {
		return nil, apperrors.WithEntity(account.ID, apperrors.ErrInvalidCredentials)
	}
	return account, nil
}

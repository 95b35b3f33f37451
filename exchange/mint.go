package exchange

import (
	"context"
	"strings"

	"github.com/jrsteele09/go-auth-exchange/ephemeral"
	apperrors "github.com/jrsteele09/go-auth-exchange/internal/errors"
	"github.com/jrsteele09/go-auth-exchange/pkce"
	"github.com/jrsteele09/go-auth-exchange/token"
	"github.com/jrsteele09/go-auth-exchange/token/opaque"
)

// mintFunc issues the target of an exchange for a verified principal. r is
// already narrowed.
type mintFunc func(ctx context.Context, p token.Principal, r token.Restrictions, req token.AuthRequest, opts token.Options) (*token.AuthResponse, error)

func issueOnly(i token.Issuer) mintFunc {
	return func(ctx context.Context, p token.Principal, r token.Restrictions, _ token.AuthRequest, opts token.Options) (*token.AuthResponse, error) {
		return i.Issue(ctx, p, r, opts)
	}
}

// withRefresh issues primary and, when refresh is set, a refresh token
// carrying the same restrictions.
func withRefresh(primary, refresh token.Issuer) mintFunc {
	return func(ctx context.Context, p token.Principal, r token.Restrictions, _ token.AuthRequest, opts token.Options) (*token.AuthResponse, error) {
		resp, err := primary.Issue(ctx, p, r, opts)
		if err != nil {
			return nil, err
		}
		if refresh == nil {
			return resp, nil
		}
		rt, err := refresh.Issue(ctx, p, r, opts)
		if err != nil {
			return nil, err
		}
		value := rt.TokenString()
		resp.RefreshToken = &value
		return resp, nil
	}
}

func oidcBundle(access, id, refresh token.Issuer) mintFunc {
	return func(ctx context.Context, p token.Principal, r token.Restrictions, _ token.AuthRequest, opts token.Options) (*token.AuthResponse, error) {
		at, err := access.Issue(ctx, p, r, opts)
		if err != nil {
			return nil, err
		}
		it, err := id.Issue(ctx, p, r, opts)
		if err != nil {
			return nil, err
		}

		bundle := &token.OIDCBundle{
			AccessToken: at.TokenString(),
			IDToken:     it.TokenString(),
			TokenType:   "Bearer",
			ExpiresIn:   int(at.ValidFor.Seconds()),
			Scope:       strings.Join(r.Scopes, " "),
		}
		resp := &token.AuthResponse{
			EntityType: p.EntityType,
			EntityID:   p.ID,
			Type:       token.OIDC,
			Token:      bundle,
			ValidFor:   at.ValidFor,
		}

		if refresh != nil {
			rt, err := refresh.Issue(ctx, p, r, opts)
			if err != nil {
				return nil, err
			}
			value := rt.TokenString()
			bundle.RefreshToken = value
			resp.RefreshToken = &value
		}
		return resp, nil
	}
}

// authorizationCode binds the PKCE challenge sent with the request to the
// code. A challenge without a method defaults to plain.
func authorizationCode(codes *opaque.Issuer) mintFunc {
	return func(ctx context.Context, p token.Principal, r token.Restrictions, req token.AuthRequest, opts token.Options) (*token.AuthResponse, error) {
		challenge := req.ExtraValue(token.ExtraCodeChallenge)
		method := req.ExtraValue(token.ExtraCodeChallengeMethod)

		info := map[string]string{}
		switch {
		case challenge != "":
			if method == "" {
				method = pkce.MethodPlain
			}
			if !pkce.ValidMethod(method) {
				return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "unsupported code_challenge_method %q", method)
			}
			info[ephemeral.InfoCodeChallenge] = challenge
			info[ephemeral.InfoCodeChallengeMethod] = method
		case method != "":
			return nil, apperrors.Wrapf(apperrors.ErrInvalidToken, "code_challenge_method without code_challenge")
		}
		return codes.IssueWithInfo(ctx, p, r, opts, info)
	}
}

package exchange

import (
	"github.com/jrsteele09/go-auth-exchange/accounts"
	"github.com/jrsteele09/go-auth-exchange/idp"
	"github.com/jrsteele09/go-auth-exchange/otp"
	"github.com/jrsteele09/go-auth-exchange/sessions"
	"github.com/jrsteele09/go-auth-exchange/token"
	"github.com/jrsteele09/go-auth-exchange/token/jwt"
	"github.com/jrsteele09/go-auth-exchange/token/opaque"
)

// Dependencies are the collaborators handlers are built from. Handlers
// whose collaborators are nil are not offered.
type Dependencies struct {
	Credentials accounts.CredentialsVerifier
	Accounts    accounts.Lookup

	AccessTokens *jwt.Issuer
	IDTokens     *jwt.Issuer

	RefreshTokens        *opaque.Issuer
	RefreshRedeemer      *opaque.Redeemer
	AuthCodes            *opaque.Issuer
	AuthCodeRedeemer     *opaque.Redeemer
	Passwordless         *opaque.Issuer
	PasswordlessRedeemer *opaque.Redeemer

	Sessions *sessions.Manager
	OTPs     *otp.Manager

	AccessVerifier *jwt.Verifier
	IDVerifier     *jwt.Verifier
	APIKeys        *jwt.APIKeyVerifier

	IdP idp.Provider
}

// Available lists every exchange the dependencies can serve.
func Available(d Dependencies) []Registration {
	var regs []Registration
	add := func(from, to token.Kind, h Handler) {
		regs = append(regs, Registration{From: from, To: to, Handler: h})
	}

	// a nil refresh issuer must stay a nil interface
	var refresh token.Issuer
	if d.RefreshTokens != nil {
		refresh = d.RefreshTokens
	}

	if d.Credentials != nil {
		basic := func(to token.Kind, mint mintFunc) {
			add(token.Basic, to, &CredentialsHandler{to: to, credentials: d.Credentials, mint: mint})
		}
		if d.AccessTokens != nil {
			basic(token.AccessToken, withRefresh(d.AccessTokens, refresh))
		}
		if d.IDTokens != nil {
			basic(token.IDToken, withRefresh(d.IDTokens, refresh))
		}
		if d.AccessTokens != nil && d.IDTokens != nil {
			basic(token.OIDC, oidcBundle(d.AccessTokens, d.IDTokens, refresh))
		}
		if d.Sessions != nil {
			basic(token.SessionToken, issueOnly(d.Sessions))
		}
		if d.OTPs != nil {
			basic(token.OTP, issueOnly(d.OTPs))
		}
		if d.Passwordless != nil {
			basic(token.Passwordless, issueOnly(d.Passwordless))
		}
		if d.AuthCodes != nil {
			basic(token.AuthorizationCode, authorizationCode(d.AuthCodes))
		}
	}

	if d.Accounts != nil && d.AccessTokens != nil {
		redeem := func(from, to token.Kind, r *opaque.Redeemer, mint mintFunc) {
			if r != nil {
				add(from, to, &RedeemHandler{from: from, to: to, redeemer: r, accounts: d.Accounts, mint: mint})
			}
		}
		redeem(token.AuthorizationCode, token.AccessToken, d.AuthCodeRedeemer, withRefresh(d.AccessTokens, refresh))
		redeem(token.Refresh, token.AccessToken, d.RefreshRedeemer, withRefresh(d.AccessTokens, refresh))
		redeem(token.Passwordless, token.AccessToken, d.PasswordlessRedeemer, withRefresh(d.AccessTokens, refresh))
		if d.IDTokens != nil {
			redeem(token.AuthorizationCode, token.OIDC, d.AuthCodeRedeemer, oidcBundle(d.AccessTokens, d.IDTokens, refresh))
		}

		if d.OTPs != nil {
			add(token.OTP, token.AccessToken, &OTPHandler{to: token.AccessToken, otps: d.OTPs, accounts: d.Accounts, mint: withRefresh(d.AccessTokens, refresh)})
		}
		if d.IdP != nil {
			add(token.ExternalIDToken, token.AccessToken, &ExternalIDTokenHandler{to: token.AccessToken, provider: d.IdP, accounts: d.Accounts, mint: withRefresh(d.AccessTokens, refresh)})
		}
	}

	if d.Sessions != nil {
		add(token.SessionToken, token.AccountID, &SessionHandler{sessions: d.Sessions})
	}
	if d.AccessVerifier != nil {
		add(token.AccessToken, token.AccountID, &SignedTokenHandler{verifier: d.AccessVerifier})
	}
	if d.IDVerifier != nil {
		add(token.IDToken, token.AccountID, &SignedTokenHandler{verifier: d.IDVerifier})
	}
	if d.APIKeys != nil {
		add(token.APIKey, token.AccountID, &APIKeyHandler{verifier: d.APIKeys})
	}
	return regs
}

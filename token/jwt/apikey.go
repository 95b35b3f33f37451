package jwt

import (
	"context"
	"errors"

	"github.com/jrsteele09/go-auth-exchange/accounts"
	apperrors "github.com/jrsteele09/go-auth-exchange/internal/errors"
	"github.com/jrsteele09/go-auth-exchange/token"
)

// APIKeyVerifier resolves an API key back to the application it was
// issued for. Keys of deleted or inactive applications are rejected.
type APIKeyVerifier struct {
	verifier *Verifier
	apps     accounts.ApplicationLookup
}

func NewAPIKeyVerifier(verifier *Verifier, apps accounts.ApplicationLookup) *APIKeyVerifier {
	return &APIKeyVerifier{
		verifier: verifier,
		apps:     apps,
	}
}

// Verify returns the application principal behind raw.
func (a *APIKeyVerifier) Verify(ctx context.Context, raw string) (token.Principal, error) {
	in, err := a.verifier.Verify(ctx, raw)
	if err != nil {
		return token.Principal{}, err
	}
	if in.EntityType != token.EntityApplication {
		return token.Principal{}, apperrors.WithEntity(in.Subject, apperrors.ErrInvalidToken)
	}

	app, err := a.apps.GetApplication(ctx, in.Subject)
	if errors.Is(err, apperrors.ErrNotFound) {
		return token.Principal{}, apperrors.WithEntity(in.Subject, apperrors.ErrInvalidToken)
	}
	if err != nil {
		return token.Principal{}, apperrors.Wrapf(err, "get application")
	}
	if !app.Active {
		return token.Principal{}, apperrors.WithEntity(app.ID, apperrors.ErrInvalidToken)
	}

	p := app.Principal()
	if in.Restrictions != nil {
		narrowed := token.Narrow(p.Grants(), in.Restrictions)
		p.Permissions = narrowed.Permissions
		p.Scopes = narrowed.Scopes
	}
	return p, nil
}

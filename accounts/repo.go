package accounts

import "context"

// Lookup resolves accounts by id. Both methods fail with apperrors.ErrNotFound
// when there is no match.
type Lookup interface {
	GetByID(ctx context.Context, id string) (*Account, error)
	GetByExternalID(ctx context.Context, externalID string) (*Account, error)
}

// CredentialsVerifier checks an identifier and password within a domain.
type CredentialsVerifier interface {
	Authenticate(ctx context.Context, identifier, password, domain string) (*Account, error)
}

type ApplicationLookup interface {
	GetApplication(ctx context.Context, id string) (*Application, error)
}

// Repo is the account store the default CredentialsVerifier reads from.
type Repo interface {
	Lookup
	ApplicationLookup
	GetByIdentifier(ctx context.Context, domain, identifier string) (*Account, error)
}

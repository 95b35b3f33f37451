package accounts

import (
	"context"
	"errors"
	"sync"

	apperrors "github.com/jrsteele09/go-auth-exchange/internal/errors"
)

var _ CredentialsVerifier = (*PasswordVerifier)(nil)

// PasswordVerifier authenticates identifier/password pairs against a Repo.
type PasswordVerifier struct {
	repo      Repo
	passwords SecurePassword

	// unknown identifiers are checked against this so they cost as much as known ones
	dummyOnce sync.Once
	dummyHash string
}

func NewPasswordVerifier(repo Repo, passwords SecurePassword) *PasswordVerifier {
	if passwords == nil {
		passwords = BcryptPassword{}
	}
	return &PasswordVerifier{repo: repo, passwords: passwords}
}

// Authenticate returns the account for valid credentials. Unknown identifiers
// and wrong passwords both fail with apperrors.ErrInvalidCredentials; failures
// for a known account carry its id.
func (v *PasswordVerifier) Authenticate(ctx context.Context, identifier, password, domain string) (*Account, error) {
	if identifier == "" || password == "" {
		return nil, apperrors.ErrInvalidCredentials
	}

	account, err := v.repo.GetByIdentifier(ctx, domain, identifier)
	if errors.Is(err, apperrors.ErrNotFound) {
		v.passwords.Verify(password, v.dummy())
		return nil, apperrors.ErrInvalidCredentials
	}
	if err != nil {
		return nil, apperrors.Wrapf(err, "lookup identifier")
	}

	if !v.passwords.Verify(password, account.PasswordHash) {
		return nil, apperrors.WithEntity(account.ID, apperrors.ErrInvalidCredentials)
	}
	if !account.CanAuthenticate() {
		return nil, apperrors.WithEntity(account.ID, apperrors.ErrInvalidCredentials)
	}
	return account, nil
}

func (v *PasswordVerifier) dummy() string {
	v.dummyOnce.Do(func() {
		v.dummyHash, _ = v.passwords.Hash("unused dummy password")
	})
	return v.dummyHash
}

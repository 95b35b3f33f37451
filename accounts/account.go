package accounts

import (
	"github.com/jrsteele09/go-auth-exchange/token"
	"golang.org/x/crypto/bcrypt"
)

// Account is a principal that logs in with identifiers and a password, or
// through an external identity provider.
type Account struct {
	ID           string   `json:"id,omitempty"`
	Domain       string   `json:"domain,omitempty"`
	Identifiers  []string `json:"identifiers,omitempty"` // usernames, emails, phone numbers
	ExternalID   string   `json:"external_id,omitempty"` // subject at the upstream identity provider
	Email        string   `json:"email,omitempty"`
	PasswordHash string   `json:"-"` // never serialize
	Permissions  []string `json:"permissions,omitempty"`
	Scopes       []string `json:"scopes,omitempty"`
	Active       bool     `json:"active,omitempty"`
	Locked       bool     `json:"locked,omitempty"`
}

// CanAuthenticate reports whether the account may obtain tokens.
func (a *Account) CanAuthenticate() bool {
	return a.Active && !a.Locked
}

// Principal returns the token principal for the account.
func (a *Account) Principal() token.Principal {
	return token.Principal{
		EntityType:  token.EntityAccount,
		ID:          a.ID,
		Domain:      a.Domain,
		Email:       a.Email,
		Permissions: a.Permissions,
		Scopes:      a.Scopes,
	}
}

// Application is a non-human principal identified by API keys.
type Application struct {
	ID          string   `json:"id,omitempty"`
	Domain      string   `json:"domain,omitempty"`
	Name        string   `json:"name,omitempty"`
	AccountID   string   `json:"account_id,omitempty"` // owning account
	Permissions []string `json:"permissions,omitempty"`
	Scopes      []string `json:"scopes,omitempty"`
	Active      bool     `json:"active,omitempty"`
}

func (a *Application) Principal() token.Principal {
	return token.Principal{
		EntityType:  token.EntityApplication,
		ID:          a.ID,
		Domain:      a.Domain,
		Permissions: a.Permissions,
		Scopes:      a.Scopes,
	}
}

// SecurePassword hashes and checks passwords.
type SecurePassword interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

// BcryptPassword is the bcrypt SecurePassword
type BcryptPassword struct {
	Cost int
}

var _ SecurePassword = BcryptPassword{}

func (b BcryptPassword) Hash(password string) (string, error) {
	cost := b.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	return string(bytes), err
}

func (BcryptPassword) Verify(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

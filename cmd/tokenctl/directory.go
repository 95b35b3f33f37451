package main

import (
	"fmt"
	"os"

	"github.com/jrsteele09/go-auth-exchange/accounts"
	fakeaccountrepo "github.com/jrsteele09/go-auth-exchange/accounts/repofake"
	"gopkg.in/yaml.v3"
)

// directorySeed is the YAML layout of -accounts. Plain passwords are hashed
// on load; passwordHash is taken as is.
type directorySeed struct {
	Accounts []struct {
		ID           string   `yaml:"id"`
		Domain       string   `yaml:"domain"`
		Identifiers  []string `yaml:"identifiers"`
		ExternalID   string   `yaml:"externalId"`
		Email        string   `yaml:"email"`
		Password     string   `yaml:"password"`
		PasswordHash string   `yaml:"passwordHash"`
		Permissions  []string `yaml:"permissions"`
		Scopes       []string `yaml:"scopes"`
		Locked       bool     `yaml:"locked"`
	} `yaml:"accounts"`
	Applications []struct {
		ID          string   `yaml:"id"`
		Domain      string   `yaml:"domain"`
		Name        string   `yaml:"name"`
		AccountID   string   `yaml:"accountId"`
		Permissions []string `yaml:"permissions"`
		Scopes      []string `yaml:"scopes"`
	} `yaml:"applications"`
}

// loadDirectory builds an in-memory account directory from the seed file at
// path. An empty path gives an empty directory.
func loadDirectory(path string) (*fakeaccountrepo.FakeAccountRepo, error) {
	repo := fakeaccountrepo.NewFakeAccountRepo()
	if path == "" {
		return repo, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read accounts %s: %w", path, err)
	}
	var seed directorySeed
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("parse accounts %s: %w", path, err)
	}

	passwords := accounts.BcryptPassword{}
	for i, a := range seed.Accounts {
		hash := a.PasswordHash
		if hash == "" && a.Password != "" {
			if hash, err = passwords.Hash(a.Password); err != nil {
				return nil, fmt.Errorf("hash password of accounts[%d]: %w", i, err)
			}
		}
		repo.Upsert(&accounts.Account{
			ID:           a.ID,
			Domain:       a.Domain,
			Identifiers:  a.Identifiers,
			ExternalID:   a.ExternalID,
			Email:        a.Email,
			PasswordHash: hash,
			Permissions:  a.Permissions,
			Scopes:       a.Scopes,
			Active:       true,
			Locked:       a.Locked,
		})
	}
	for _, app := range seed.Applications {
		repo.UpsertApplication(&accounts.Application{
			ID:          app.ID,
			Domain:      app.Domain,
			Name:        app.Name,
			AccountID:   app.AccountID,
			Permissions: app.Permissions,
			Scopes:      app.Scopes,
			Active:      true,
		})
	}
	return repo, nil
}

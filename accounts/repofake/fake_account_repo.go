package fakeaccountrepo

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-auth-exchange/accounts"
	apperrors "github.com/jrsteele09/go-auth-exchange/internal/errors"
)

var _ accounts.Repo = (*FakeAccountRepo)(nil)

type FakeAccountRepo struct {
	accounts     map[string]*accounts.Account
	identifiers  map[string]string // domain/identifier to account id
	externalIDs  map[string]string // external id to account id
	applications map[string]*accounts.Application
	lock         sync.RWMutex
}

func NewFakeAccountRepo() *FakeAccountRepo {
	return &FakeAccountRepo{
		accounts:     make(map[string]*accounts.Account),
		identifiers:  make(map[string]string),
		externalIDs:  make(map[string]string),
		applications: make(map[string]*accounts.Application),
	}
}

func identifierKey(domain, identifier string) string {
	return domain + "/" + identifier
}

func (r *FakeAccountRepo) Upsert(account *accounts.Account) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if account.ID == "" {
		account.ID = uuid.New().String()
	}
	r.accounts[account.ID] = account
	for _, identifier := range account.Identifiers {
		r.identifiers[identifierKey(account.Domain, identifier)] = account.ID
	}
	if account.ExternalID != "" {
		r.externalIDs[account.ExternalID] = account.ID
	}
}

func (r *FakeAccountRepo) UpsertApplication(app *accounts.Application) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if app.ID == "" {
		app.ID = uuid.New().String()
	}
	r.applications[app.ID] = app
}

func (r *FakeAccountRepo) GetByID(_ context.Context, id string) (*accounts.Account, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	account, ok := r.accounts[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return account, nil
}

func (r *FakeAccountRepo) GetByExternalID(_ context.Context, externalID string) (*accounts.Account, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	id, ok := r.externalIDs[externalID]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return r.accounts[id], nil
}

func (r *FakeAccountRepo) GetByIdentifier(_ context.Context, domain, identifier string) (*accounts.Account, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	id, ok := r.identifiers[identifierKey(domain, identifier)]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return r.accounts[id], nil
}

func (r *FakeAccountRepo) GetApplication(_ context.Context, id string) (*accounts.Application, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	app, ok := r.applications[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return app, nil
}

func (r *FakeAccountRepo) SetLocked(id string, locked bool) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	account, ok := r.accounts[id]
	if !ok {
		return apperrors.ErrNotFound
	}
	account.Locked = locked
	return nil
}

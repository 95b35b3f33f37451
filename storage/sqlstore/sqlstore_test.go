package sqlstore_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-exchange/audit"
	"github.com/jrsteele09/go-auth-exchange/ephemeral"
	apperrors "github.com/jrsteele09/go-auth-exchange/internal/errors"
	"github.com/jrsteele09/go-auth-exchange/otp"
	"github.com/jrsteele09/go-auth-exchange/sessions"
	"github.com/jrsteele09/go-auth-exchange/storage/sqlstore"
	"github.com/jrsteele09/go-auth-exchange/token"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *sqlstore.Store {
	t.Helper()
	store, err := sqlstore.Open(context.Background(), sqlstore.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

var expiry = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := sqlstore.Open(context.Background(), "oracle", "")
	require.Error(t, err)
}

func TestEphemeralRepo(t *testing.T) {
	ctx := context.Background()
	repo := setupTestStore(t).Ephemeral()

	tok := ephemeral.Token{
		Token:               "code-1",
		Kind:                token.AuthorizationCode,
		AssociatedAccountID: "101",
		ExpiresAt:           expiry,
		Restrictions:        token.Restrictions{Permissions: []string{"orders:read"}},
		AdditionalInformation: map[string]string{
			ephemeral.InfoCodeChallenge:       "E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM",
			ephemeral.InfoCodeChallengeMethod: "S256",
		},
	}
	require.NoError(t, repo.Save(ctx, tok))
	require.ErrorIs(t, repo.Save(ctx, tok), ephemeral.ErrDuplicateToken)

	got, err := repo.GetByToken(ctx, "code-1")
	require.NoError(t, err)
	require.Equal(t, tok.Kind, got.Kind)
	require.Equal(t, "101", got.AssociatedAccountID)
	require.True(t, expiry.Equal(got.ExpiresAt))
	require.Equal(t, []string{"orders:read"}, got.Restrictions.Permissions)
	require.Nil(t, got.Restrictions.Scopes)
	require.Equal(t, "S256", got.Info(ephemeral.InfoCodeChallengeMethod))

	deleted, err := repo.Delete(ctx, "code-1")
	require.NoError(t, err)
	require.True(t, deleted)

	deleted, err = repo.Delete(ctx, "code-1")
	require.NoError(t, err)
	require.False(t, deleted)

	_, err = repo.GetByToken(ctx, "code-1")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestEphemeralRepo_ConcurrentDelete(t *testing.T) {
	ctx := context.Background()
	repo := setupTestStore(t).Ephemeral()
	require.NoError(t, repo.Save(ctx, ephemeral.Token{Token: "r-1", Kind: token.Refresh, AssociatedAccountID: "101", ExpiresAt: expiry}))

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, err := repo.Delete(ctx, "r-1"); err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), wins.Load())
}

func TestEphemeralRepo_DeleteExpired(t *testing.T) {
	ctx := context.Background()
	repo := setupTestStore(t).Ephemeral()
	require.NoError(t, repo.Save(ctx, ephemeral.Token{Token: "old", Kind: token.Refresh, ExpiresAt: expiry.Add(-time.Hour)}))
	require.NoError(t, repo.Save(ctx, ephemeral.Token{Token: "new", Kind: token.Refresh, ExpiresAt: expiry.Add(time.Hour)}))

	n, err := repo.DeleteExpired(ctx, expiry)
	require.NoError(t, err)
	require.Equal(t, int64(1), n)

	_, err = repo.GetByToken(ctx, "new")
	require.NoError(t, err)
}

func TestSessionRepo(t *testing.T) {
	ctx := context.Background()
	repo := setupTestStore(t).Sessions()

	s := sessions.Session{
		Token:     "s-1",
		AccountID: "101",
		Domain:    "main",
		CreatedAt: expiry.Add(-time.Hour),
		ExpiresAt: expiry,
		Data:      map[string]string{"clientId": "web"},
	}
	require.NoError(t, repo.Save(ctx, s))

	got, err := repo.Get(ctx, "s-1")
	require.NoError(t, err)
	require.Equal(t, "101", got.AccountID)
	require.Equal(t, "web", got.Data["clientId"])
	require.True(t, expiry.Equal(got.ExpiresAt))

	deleted, err := repo.Delete(ctx, "s-1")
	require.NoError(t, err)
	require.True(t, deleted)

	_, err = repo.Get(ctx, "s-1")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestOTPRepo(t *testing.T) {
	ctx := context.Background()
	repo := setupTestStore(t).OTPs()

	require.NoError(t, repo.Save(ctx, otp.Password{ID: "pw-1", AccountID: "101", Value: "123456", ExpiresAt: expiry}))

	n, err := repo.IncrementAttempts(ctx, "pw-1")
	require.NoError(t, err)
	require.Equal(t, 1, n)
	n, err = repo.IncrementAttempts(ctx, "pw-1")
	require.NoError(t, err)
	require.Equal(t, 2, n)

	got, err := repo.Get(ctx, "pw-1")
	require.NoError(t, err)
	require.Equal(t, "123456", got.Value)
	require.Equal(t, 2, got.Attempts)

	_, err = repo.IncrementAttempts(ctx, "missing")
	require.ErrorIs(t, err, apperrors.ErrNotFound)

	deleted, err := repo.Delete(ctx, "pw-1")
	require.NoError(t, err)
	require.True(t, deleted)
}

func TestStore_RecordAttempts(t *testing.T) {
	ctx := context.Background()
	store := setupTestStore(t)

	for i, ok := range []bool{false, true} {
		require.NoError(t, store.Record(ctx, audit.Attempt{
			ID:           []string{"a1", "a2"}[i],
			EntityID:     "101",
			ExchangeFrom: "basic",
			ExchangeTo:   "accessToken",
			Successful:   ok,
			ClientID:     "web",
			CreatedAt:    expiry.Add(time.Duration(i) * time.Minute),
		}))
	}

	attempts, err := store.AttemptsFor(ctx, "101", 10)
	require.NoError(t, err)
	require.Len(t, attempts, 2)
	require.Equal(t, "a2", attempts[0].ID)
	require.True(t, attempts[0].Successful)
	require.False(t, attempts[1].Successful)
	require.Equal(t, "web", attempts[1].ClientID)
}

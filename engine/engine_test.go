package engine_test

import (
	"context"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-exchange/accounts"
	fakeaccountrepo "github.com/jrsteele09/go-auth-exchange/accounts/repofake"
	"github.com/jrsteele09/go-auth-exchange/audit"
	"github.com/jrsteele09/go-auth-exchange/engine"
	"github.com/jrsteele09/go-auth-exchange/exchange"
	"github.com/jrsteele09/go-auth-exchange/internal/config"
	apperrors "github.com/jrsteele09/go-auth-exchange/internal/errors"
	"github.com/jrsteele09/go-auth-exchange/token"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// the allowed list comes last so tests can append to it
const baseYAML = `
jwt:
  algorithm: HMAC256
  key: 0123456789abcdef0123456789abcdef
  issuer: https://auth.example.com
exchange:
  allowed:
    - from: basic
      to: accessToken
    - from: refresh
      to: accessToken
    - from: apiKey
      to: accountId
`

type testFixture struct {
	directory *fakeaccountrepo.FakeAccountRepo
	sink      *audit.MemorySink
	registry  *prometheus.Registry
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	hash, err := accounts.BcryptPassword{Cost: 4}.Hash("correct")
	require.NoError(t, err)

	f := &testFixture{
		directory: fakeaccountrepo.NewFakeAccountRepo(),
		sink:      audit.NewMemorySink(),
		registry:  prometheus.NewRegistry(),
	}
	f.directory.Upsert(&accounts.Account{
		ID:           "101",
		Domain:       "main",
		Identifiers:  []string{"alice"},
		PasswordHash: hash,
		Permissions:  []string{"orders:read"},
		Active:       true,
	})
	f.directory.UpsertApplication(&accounts.Application{ID: "app-7", Domain: "main", AccountID: "101", Active: true})
	return f
}

func (f *testFixture) build(t *testing.T, yaml string) (*engine.Engine, error) {
	t.Helper()
	cfg, err := config.Parse([]byte(yaml))
	require.NoError(t, err)

	e, err := engine.New(context.Background(), cfg, f.directory,
		engine.WithLogger(zerolog.Nop()),
		engine.WithAuditSink(f.sink),
		engine.WithRegisterer(f.registry),
	)
	if e != nil {
		t.Cleanup(func() { _ = e.Close() })
	}
	return e, err
}

func TestNew_EnablesOnlyAllowedExchanges(t *testing.T) {
	f := setupTestFixture(t)
	e, err := f.build(t, baseYAML)
	require.NoError(t, err)

	require.Equal(t, []exchange.Pair{
		{From: token.APIKey, To: token.AccountID},
		{From: token.Basic, To: token.AccessToken},
		{From: token.Refresh, To: token.AccessToken},
	}, e.Registry.Pairs())
	require.False(t, e.Service.SupportsExchange(token.Basic, token.SessionToken))

	_, err = e.Service.Exchange(context.Background(), token.AuthRequest{Identifier: "alice", Password: "correct", Domain: "main"},
		token.Basic, token.SessionToken)
	require.ErrorIs(t, err, apperrors.ErrUnsupportedExchange)
}

func TestNew_EndToEnd(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	e, err := f.build(t, baseYAML)
	require.NoError(t, err)

	resp, err := e.Service.Exchange(ctx, token.AuthRequest{Identifier: "alice", Password: "correct", Domain: "main"},
		token.Basic, token.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "101", resp.EntityID)
	require.NotNil(t, resp.RefreshToken)

	rotated, err := e.Service.Exchange(ctx, token.AuthRequest{Token: *resp.RefreshToken}, token.Refresh, token.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "101", rotated.EntityID)

	_, err = e.Service.Exchange(ctx, token.AuthRequest{Token: *resp.RefreshToken}, token.Refresh, token.AccessToken)
	require.ErrorIs(t, err, apperrors.ErrExpiredOrConsumedToken)

	attempts := f.sink.Attempts()
	require.Len(t, attempts, 3)
	require.False(t, attempts[2].Successful)

	// basic success, refresh success, refresh failure
	series, err := testutil.GatherAndCount(f.registry, "authx_exchange_attempts_total")
	require.NoError(t, err)
	require.Equal(t, 3, series)
}

func TestNew_APIKeys(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	e, err := f.build(t, baseYAML)
	require.NoError(t, err)

	app, err := f.directory.GetApplication(ctx, "app-7")
	require.NoError(t, err)
	key, err := e.APIKeyIssuer().Issue(ctx, app.Principal(), app.Principal().Grants(), token.Options{})
	require.NoError(t, err)

	resp, err := e.Service.Exchange(ctx, token.AuthRequest{Token: key.TokenString()}, token.APIKey, token.AccountID)
	require.NoError(t, err)
	require.Equal(t, token.EntityApplication, resp.EntityType)
	require.Equal(t, "app-7", resp.EntityID)
}

func TestNew_SQLiteStorage(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	e, err := f.build(t, baseYAML+`
storage:
  driver: sqlite
  dsn: ":memory:"
`)
	require.NoError(t, err)
	require.NotNil(t, e.SQL)

	_, err = e.Service.Exchange(ctx, token.AuthRequest{Identifier: "alice", Password: "wrong", Domain: "main"},
		token.Basic, token.AccessToken)
	require.ErrorIs(t, err, apperrors.ErrInvalidCredentials)

	stored, err := e.SQL.AttemptsFor(ctx, "101", 10)
	require.NoError(t, err)
	require.Len(t, stored, 1)
	require.False(t, stored[0].Successful)
	require.Equal(t, "basic", stored[0].ExchangeFrom)
}

func TestEngine_Purge(t *testing.T) {
	ctx := context.Background()
	f := setupTestFixture(t)
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	cfg, err := config.Parse([]byte(baseYAML))
	require.NoError(t, err)
	e, err := engine.New(ctx, cfg, f.directory,
		engine.WithLogger(zerolog.Nop()),
		engine.WithNowTime(func() time.Time { return now }),
	)
	require.NoError(t, err)
	defer e.Close()

	resp, err := e.Service.Exchange(ctx, token.AuthRequest{Identifier: "alice", Password: "correct", Domain: "main"},
		token.Basic, token.AccessToken)
	require.NoError(t, err)

	removed, err := e.Purge(ctx)
	require.NoError(t, err)
	require.Zero(t, removed)

	now = now.Add(31 * 24 * time.Hour)
	removed, err = e.Purge(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), removed)

	_, err = e.Service.Exchange(ctx, token.AuthRequest{Token: *resp.RefreshToken}, token.Refresh, token.AccessToken)
	require.ErrorIs(t, err, apperrors.ErrExpiredOrConsumedToken)
}

func TestNew_Failures(t *testing.T) {
	t.Run("allowed exchange without implementation", func(t *testing.T) {
		f := setupTestFixture(t)
		_, err := f.build(t, baseYAML+`    - from: externalIdToken
      to: accessToken
`)
		require.ErrorIs(t, err, apperrors.ErrConfiguration)
	})

	t.Run("unknown pair", func(t *testing.T) {
		f := setupTestFixture(t)
		_, err := f.build(t, baseYAML+`    - from: accountId
      to: basic
`)
		require.ErrorIs(t, err, apperrors.ErrConfiguration)
	})

	t.Run("unreachable database", func(t *testing.T) {
		f := setupTestFixture(t)
		_, err := f.build(t, baseYAML+`
storage:
  driver: postgres
  dsn: "postgres://nobody@127.0.0.1:1/none?sslmode=disable&connect_timeout=1"
`)
		require.ErrorIs(t, err, apperrors.ErrConfiguration)
	})

	t.Run("account directory is required", func(t *testing.T) {
		cfg, err := config.Parse([]byte(baseYAML))
		require.NoError(t, err)
		_, err = engine.New(context.Background(), cfg, nil)
		require.Error(t, err)
	})
}

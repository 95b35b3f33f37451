package redisstore_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-auth-exchange/ephemeral"
	"github.com/jrsteele09/go-auth-exchange/ephemeral/redisstore"
	apperrors "github.com/jrsteele09/go-auth-exchange/internal/errors"
	"github.com/jrsteele09/go-auth-exchange/token"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) *redis.Client {
	t.Helper()
	url := os.Getenv("REDIS_URL")
	if url == "" {
		t.Skip("REDIS_URL not set")
	}
	opts, err := redis.ParseURL(url)
	require.NoError(t, err)
	rdb := redis.NewClient(opts)
	require.NoError(t, rdb.Ping(context.Background()).Err())
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := redisstore.New(newClient(t))
	value := uuid.NewString()

	tok := ephemeral.Token{
		Token:                 value,
		Kind:                  token.AuthorizationCode,
		AssociatedAccountID:   "101",
		ExpiresAt:             time.Now().Add(time.Minute).UTC().Truncate(time.Second),
		Restrictions:          token.Restrictions{Permissions: []string{"p1"}},
		AdditionalInformation: map[string]string{ephemeral.InfoCodeChallengeMethod: "S256"},
	}
	require.NoError(t, s.Save(ctx, tok))
	require.ErrorIs(t, s.Save(ctx, tok), ephemeral.ErrDuplicateToken)

	got, err := s.GetByToken(ctx, value)
	require.NoError(t, err)
	require.Equal(t, tok.Kind, got.Kind)
	require.True(t, tok.ExpiresAt.Equal(got.ExpiresAt))
	require.Equal(t, tok.Restrictions, got.Restrictions)
	require.Equal(t, "S256", got.Info(ephemeral.InfoCodeChallengeMethod))

	deleted, err := s.Delete(ctx, value)
	require.NoError(t, err)
	require.True(t, deleted)
	deleted, err = s.Delete(ctx, value)
	require.NoError(t, err)
	require.False(t, deleted)

	_, err = s.GetByToken(ctx, value)
	require.ErrorIs(t, err, apperrors.ErrNotFound)
}

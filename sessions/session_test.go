package sessions_test

import (
	"context"
	"testing"
	"time"

	apperrors "github.com/jrsteele09/go-auth-exchange/internal/errors"
	"github.com/jrsteele09/go-auth-exchange/sessions"
	"github.com/jrsteele09/go-auth-exchange/token"
	"github.com/stretchr/testify/require"
)

func TestManager(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	store := sessions.NewInMemoryStore()
	m := sessions.NewManager(store, time.Hour, sessions.WithNowTime(func() time.Time { return now }))

	principal := token.Principal{EntityType: token.EntityAccount, ID: "101", Domain: "main"}
	resp, err := m.Issue(ctx, principal, token.Restrictions{}, token.Options{Source: "basic->sessionToken", ClientID: "web"})
	require.NoError(t, err)
	require.Equal(t, token.SessionToken, resp.Type)
	require.Equal(t, "101", resp.EntityID)
	require.Equal(t, time.Hour, resp.ValidFor)

	t.Run("verify does not consume", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			s, err := m.Verify(ctx, resp.TokenString())
			require.NoError(t, err)
			require.Equal(t, "101", s.AccountID)
			require.Equal(t, "web", s.Data["clientId"])
		}
	})

	t.Run("unknown token", func(t *testing.T) {
		_, err := m.Verify(ctx, "nope")
		require.ErrorIs(t, err, apperrors.ErrInvalidToken)
		_, err = m.Verify(ctx, "")
		require.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})

	t.Run("expired session is deleted", func(t *testing.T) {
		later := sessions.NewManager(store, time.Hour, sessions.WithNowTime(func() time.Time { return now.Add(2 * time.Hour) }))
		_, err := later.Verify(ctx, resp.TokenString())
		require.ErrorIs(t, err, apperrors.ErrExpiredOrConsumedToken)
		require.Equal(t, "101", apperrors.EntityOf(err))

		_, err = store.Get(ctx, resp.TokenString())
		require.ErrorIs(t, err, apperrors.ErrNotFound)
	})
}

func TestManager_Revoke(t *testing.T) {
	ctx := context.Background()
	m := sessions.NewManager(sessions.NewInMemoryStore(), time.Hour)
	resp, err := m.Issue(ctx, token.Principal{ID: "101"}, token.Restrictions{}, token.Options{})
	require.NoError(t, err)

	require.NoError(t, m.Revoke(ctx, resp.TokenString()))
	_, err = m.Verify(ctx, resp.TokenString())
	require.ErrorIs(t, err, apperrors.ErrInvalidToken)
}

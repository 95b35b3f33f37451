package errors_test

import (
	"fmt"
	"testing"

	apperrors "github.com/jrsteele09/go-auth-exchange/internal/errors"
	"github.com/stretchr/testify/require"
)

func TestPublic(t *testing.T) {
	t.Run("authentication class shares one message", func(t *testing.T) {
		for _, err := range []error{
			apperrors.ErrInvalidCredentials,
			apperrors.ErrInvalidToken,
			apperrors.ErrExpiredOrConsumedToken,
			apperrors.ErrPkceMismatch,
			fmt.Errorf("lookup: %w", apperrors.ErrExpiredOrConsumedToken),
		} {
			require.Equal(t, apperrors.PublicAuthFailure, apperrors.Public(err))
		}
	})

	t.Run("configuration class surfaces distinctly", func(t *testing.T) {
		require.Equal(t, "encryption not supported", apperrors.Public(apperrors.ErrEncryptionNotSupported))
		require.Equal(t, "unsupported exchange", apperrors.Public(apperrors.ErrUnsupportedExchange))
	})

	t.Run("unknown errors are opaque", func(t *testing.T) {
		require.Equal(t, "internal error", apperrors.Public(fmt.Errorf("db down")))
		require.Empty(t, apperrors.Public(nil))
	})
}

func TestPkceMismatchIsInvalidToken(t *testing.T) {
	require.ErrorIs(t, apperrors.ErrPkceMismatch, apperrors.ErrInvalidToken)
}

func TestEntityError(t *testing.T) {
	err := apperrors.WithEntity("101", apperrors.ErrInvalidCredentials)
	wrapped := apperrors.Wrapf(err, "basic exchange")

	require.ErrorIs(t, wrapped, apperrors.ErrInvalidCredentials)
	require.Equal(t, "101", apperrors.EntityOf(wrapped))
	require.Empty(t, apperrors.EntityOf(apperrors.ErrInvalidToken))
	require.NoError(t, apperrors.WithEntity("101", nil))
}

package cipher_test

import (
	"encoding/base64"
	"testing"

	"github.com/jrsteele09/go-auth-exchange/internal/config"
	apperrors "github.com/jrsteele09/go-auth-exchange/internal/errors"
	"github.com/jrsteele09/go-auth-exchange/token/cipher"
	"github.com/jrsteele09/go-auth-exchange/token/keys"
	"github.com/stretchr/testify/require"
)

var aesKey = base64.StdEncoding.EncodeToString([]byte("0123456789abcdef0123456789abcdef"))

func TestDisabled_FailsClosed(t *testing.T) {
	c, err := cipher.New(config.EncryptionConfig{})
	require.NoError(t, err)
	require.False(t, c.Enabled())

	_, err = c.Encrypt([]byte("refresh-token"))
	require.ErrorIs(t, err, apperrors.ErrEncryptionNotSupported)
	_, err = c.Decrypt("anything")
	require.ErrorIs(t, err, apperrors.ErrEncryptionNotSupported)
}

func TestAESCBC(t *testing.T) {
	c, err := cipher.New(config.EncryptionConfig{Algorithm: config.EncryptionAESCBC, PrivateKey: aesKey})
	require.NoError(t, err)
	require.True(t, c.Enabled())

	for _, plain := range []string{"", "a", "exactly sixteen!", "an opaque refresh token value that spans blocks"} {
		enc, err := c.Encrypt([]byte(plain))
		require.NoError(t, err)

		dec, err := c.Decrypt(enc)
		require.NoError(t, err)
		require.Equal(t, plain, string(dec))
	}

	t.Run("random iv", func(t *testing.T) {
		a, err := c.Encrypt([]byte("same"))
		require.NoError(t, err)
		b, err := c.Encrypt([]byte("same"))
		require.NoError(t, err)
		require.NotEqual(t, a, b)
	})

	t.Run("tampered input is an invalid token", func(t *testing.T) {
		_, err := c.Decrypt("not base64 !!")
		require.ErrorIs(t, err, apperrors.ErrInvalidToken)
		_, err = c.Decrypt(base64.RawURLEncoding.EncodeToString([]byte("short")))
		require.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})

	t.Run("bad key size", func(t *testing.T) {
		_, err := cipher.New(config.EncryptionConfig{Algorithm: config.EncryptionAESCBC, PrivateKey: base64.StdEncoding.EncodeToString([]byte("short"))})
		require.ErrorIs(t, err, apperrors.ErrConfiguration)
	})
}

func TestEC(t *testing.T) {
	kp, err := keys.GenerateECDSAKeyPair("enc", "ES256")
	require.NoError(t, err)
	privatePEM, err := kp.ExportPrivateKeyPEM()
	require.NoError(t, err)
	publicPEM, err := kp.ExportPublicKeyPEM()
	require.NoError(t, err)

	c, err := cipher.New(config.EncryptionConfig{Algorithm: config.EncryptionEC, PrivateKey: privatePEM, PublicKey: publicPEM})
	require.NoError(t, err)
	require.True(t, c.Enabled())

	enc, err := c.Encrypt([]byte("authorization-code"))
	require.NoError(t, err)
	dec, err := c.Decrypt(enc)
	require.NoError(t, err)
	require.Equal(t, "authorization-code", string(dec))

	t.Run("tampered ciphertext", func(t *testing.T) {
		raw, err := base64.RawURLEncoding.DecodeString(enc)
		require.NoError(t, err)
		raw[len(raw)-1] ^= 0xff
		_, err = c.Decrypt(base64.RawURLEncoding.EncodeToString(raw))
		require.ErrorIs(t, err, apperrors.ErrInvalidToken)
	})

	t.Run("mismatched keys", func(t *testing.T) {
		other, err := keys.GenerateECDSAKeyPair("other", "ES256")
		require.NoError(t, err)
		otherPublic, err := other.ExportPublicKeyPEM()
		require.NoError(t, err)
		_, err = cipher.New(config.EncryptionConfig{Algorithm: config.EncryptionEC, PrivateKey: privatePEM, PublicKey: otherPublic})
		require.ErrorIs(t, err, apperrors.ErrConfiguration)
	})
}

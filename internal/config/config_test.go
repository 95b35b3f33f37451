package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jrsteele09/go-auth-exchange/internal/config"
	apperrors "github.com/jrsteele09/go-auth-exchange/internal/errors"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
appName: test-exchange
exchange:
  allowed:
    - from: basic
      to: accessToken
    - from: refresh
      to: accessToken
  attemptTimeout: 500ms
jwt:
  algorithm: HMAC512
  key: file-or-inline-secret
  issuer: https://auth.example.com
  strategies:
    accessToken:
      tokenLife: 10m
      useJti: true
      includePermissions: true
    refresh:
      tokenLife: 48h
otp:
  length: 8
  mode: ALPHANUMERIC
`

func TestParse(t *testing.T) {
	cfg, err := config.Parse([]byte(sampleYAML))
	require.NoError(t, err)

	require.Equal(t, "test-exchange", cfg.AppName)
	require.Len(t, cfg.Exchange.Allowed, 2)
	require.Equal(t, "basic->accessToken", cfg.Exchange.Allowed[0].String())
	require.Equal(t, 500*time.Millisecond, cfg.Exchange.AttemptTimeout)
	require.Equal(t, "HMAC512", cfg.JWT.Algorithm)

	access := cfg.JWT.StrategyFor("accessToken")
	require.Equal(t, 10*time.Minute, access.TokenLife)
	require.True(t, access.UseJti)
	require.True(t, access.IncludePermissions)
	require.False(t, access.IncludeScopes)

	require.Equal(t, 48*time.Hour, cfg.JWT.StrategyFor("refresh").TokenLife)
	require.Equal(t, 5*time.Minute, cfg.JWT.StrategyFor("authorizationCode").TokenLife)
	require.Equal(t, 8, cfg.OTP.Length)
	require.Equal(t, 5, cfg.OTP.MaxAttempts)
	require.Equal(t, "memory", cfg.Storage.Driver)
	require.False(t, cfg.JWT.Encryption.Enabled())
}

func TestParse_EnvOverlay(t *testing.T) {
	t.Setenv("AUTHX_JWT_ALGORITHM", "HMAC256")
	t.Setenv("AUTHX_JWT_ISSUER", "https://env.example.com")
	t.Setenv("AUTHX_EXCHANGE_ATTEMPT_TIMEOUT", "3s")

	cfg, err := config.Parse([]byte(sampleYAML))
	require.NoError(t, err)
	require.Equal(t, "HMAC256", cfg.JWT.Algorithm)
	require.Equal(t, "https://env.example.com", cfg.JWT.Issuer)
	require.Equal(t, 3*time.Second, cfg.Exchange.AttemptTimeout)
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"unknown algorithm", "jwt:\n  algorithm: NONE\n  key: k\n"},
		{"missing hmac key", "jwt:\n  algorithm: HMAC256\n"},
		{"missing private key", "jwt:\n  algorithm: RSA256\n"},
		{"half exchange pair", "jwt:\n  key: k\nexchange:\n  allowed:\n    - from: basic\n"},
		{"unknown encryption", "jwt:\n  key: k\n  encryption:\n    algorithm: ROT13\n"},
		{"ec encryption without public key", "jwt:\n  key: k\n  encryption:\n    algorithm: EC\n    privateKey: p\n"},
		{"sql without dsn", "jwt:\n  key: k\nstorage:\n  driver: postgres\n"},
		{"bad yaml", "jwt: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Parse([]byte(tt.yaml))
			require.ErrorIs(t, err, apperrors.ErrConfiguration)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleYAML), 0o600))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "test-exchange", cfg.AppName)

	_, err = config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, apperrors.ErrConfiguration)
}

func TestLoadDotEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("AUTHX_TEST_DOTENV=loaded\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("AUTHX_TEST_DOTENV") })

	config.LoadDotEnv(path, filepath.Join(t.TempDir(), "absent.env"))
	require.Equal(t, "loaded", config.GetEnv("AUTHX_TEST_DOTENV", "default"))
	require.Equal(t, "default", config.GetEnv("AUTHX_TEST_UNSET", "default"))
}

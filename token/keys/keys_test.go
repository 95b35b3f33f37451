package keys_test

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-auth-exchange/internal/config"
	apperrors "github.com/jrsteele09/go-auth-exchange/internal/errors"
	"github.com/jrsteele09/go-auth-exchange/token/keys"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/stretchr/testify/require"
)

func signAndVerify(t *testing.T, s keys.Signer) {
	t.Helper()

	raw, err := s.Sign(jwt.MapClaims{"sub": "101"})
	require.NoError(t, err)

	parsed, err := jwt.Parse(raw, s.GetVerificationKey, jwt.WithValidMethods([]string{s.GetSigningMethod().Alg()}))
	require.NoError(t, err)
	require.True(t, parsed.Valid)
	sub, err := parsed.Claims.GetSubject()
	require.NoError(t, err)
	require.Equal(t, "101", sub)
}

func TestResolveAlgorithm(t *testing.T) {
	tests := map[string]string{
		keys.HMAC256:  "HS256",
		keys.HMAC512:  "HS512",
		keys.RSA256:   "RS256",
		keys.RSA512:   "RS512",
		keys.ECDSA256: "ES256",
		keys.ECDSA512: "ES512",
	}
	for name, alg := range tests {
		m, err := keys.ResolveAlgorithm(name)
		require.NoError(t, err)
		require.Equal(t, alg, m.Alg())
	}

	_, err := keys.ResolveAlgorithm("none")
	require.ErrorIs(t, err, apperrors.ErrConfiguration)
	require.True(t, keys.IsSymmetric(keys.HMAC512))
	require.False(t, keys.IsSymmetric(keys.RSA256))
}

func TestNewSignerFromConfig_HMAC(t *testing.T) {
	s, err := keys.NewSignerFromConfig(config.JWTConfig{Algorithm: keys.HMAC512, Key: "super-secret"})
	require.NoError(t, err)
	require.Equal(t, "HS512", s.GetSigningMethod().Alg())
	signAndVerify(t, s)

	_, err = keys.MarshalJWKS(s)
	require.Error(t, err)
}

func TestNewSignerFromConfig_RSAFromFile(t *testing.T) {
	kp, err := keys.GenerateRSAKeyPair("kid-1", 2048, "RS512")
	require.NoError(t, err)
	privatePEM, err := kp.ExportPrivateKeyPEM()
	require.NoError(t, err)
	publicPEM, err := kp.ExportPublicKeyPEM()
	require.NoError(t, err)

	dir := t.TempDir()
	privPath := filepath.Join(dir, "private.pem")
	pubPath := filepath.Join(dir, "public.pem")
	require.NoError(t, os.WriteFile(privPath, []byte(privatePEM), 0o600))
	require.NoError(t, os.WriteFile(pubPath, []byte(publicPEM), 0o600))

	s, err := keys.NewSignerFromConfig(config.JWTConfig{
		Algorithm:  keys.RSA512,
		PrivateKey: "file:" + privPath,
		PublicKey:  "file:" + pubPath,
		KeyID:      "kid-1",
	})
	require.NoError(t, err)
	require.Equal(t, "RS512", s.GetSigningMethod().Alg())
	signAndVerify(t, s)
}

func TestNewSignerFromConfig_ECDSAInline(t *testing.T) {
	kp, err := keys.GenerateECDSAKeyPair("ec-1", "ES256")
	require.NoError(t, err)
	privatePEM, err := kp.ExportPrivateKeyPEM()
	require.NoError(t, err)

	s, err := keys.NewSignerFromConfig(config.JWTConfig{Algorithm: keys.ECDSA256, PrivateKey: privatePEM, KeyID: "ec-1"})
	require.NoError(t, err)
	signAndVerify(t, s)

	t.Run("curve must match algorithm", func(t *testing.T) {
		_, err := keys.NewSignerFromConfig(config.JWTConfig{Algorithm: keys.ECDSA512, PrivateKey: privatePEM})
		require.ErrorIs(t, err, apperrors.ErrConfiguration)
	})

	t.Run("key family must match algorithm", func(t *testing.T) {
		_, err := keys.NewSignerFromConfig(config.JWTConfig{Algorithm: keys.RSA256, PrivateKey: privatePEM})
		require.ErrorIs(t, err, apperrors.ErrConfiguration)
	})
}

func TestNewSignerFromConfig_Base64DER(t *testing.T) {
	kp, err := keys.GenerateRSAKeyPair("b64", 2048, "RS256")
	require.NoError(t, err)
	der, err := x509.MarshalPKCS8PrivateKey(kp.PrivateKey)
	require.NoError(t, err)

	s, err := keys.NewSignerFromConfig(config.JWTConfig{
		Algorithm:  keys.RSA256,
		PrivateKey: base64.StdEncoding.EncodeToString(der),
	})
	require.NoError(t, err)
	signAndVerify(t, s)
}

func TestNewSignerFromConfig_Failures(t *testing.T) {
	other, err := keys.GenerateRSAKeyPair("other", 2048, "RS256")
	require.NoError(t, err)
	otherPublic, err := other.ExportPublicKeyPEM()
	require.NoError(t, err)
	kp, err := keys.GenerateRSAKeyPair("main", 2048, "RS256")
	require.NoError(t, err)
	privatePEM, err := kp.ExportPrivateKeyPEM()
	require.NoError(t, err)

	tests := []struct {
		name string
		cfg  config.JWTConfig
	}{
		{"missing file", config.JWTConfig{Algorithm: keys.HMAC256, Key: "file:/does/not/exist"}},
		{"garbage private key", config.JWTConfig{Algorithm: keys.RSA256, PrivateKey: "not a key!"}},
		{"mismatched public key", config.JWTConfig{Algorithm: keys.RSA256, PrivateKey: privatePEM, PublicKey: otherPublic}},
		{"unknown algorithm", config.JWTConfig{Algorithm: "XYZ"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := keys.NewSignerFromConfig(tt.cfg)
			require.ErrorIs(t, err, apperrors.ErrConfiguration)
		})
	}
}

func TestVerificationRejectsOtherAlgorithm(t *testing.T) {
	hs := keys.NewHMACSigner([]byte("secret"), jwt.SigningMethodHS256)
	hs512 := keys.NewHMACSigner([]byte("secret"), jwt.SigningMethodHS512)

	raw, err := hs512.Sign(jwt.MapClaims{"sub": "x"})
	require.NoError(t, err)
	_, err = jwt.Parse(raw, hs.GetVerificationKey)
	require.Error(t, err)
}

func TestKeyPairSigner_JWKS(t *testing.T) {
	kp, err := keys.GenerateRSAKeyPair("jwks-kid", 2048, "RS256")
	require.NoError(t, err)
	s := keys.NewKeyPairSigner(kp)

	data, err := keys.MarshalJWKS(s)
	require.NoError(t, err)

	set, err := jwk.Parse(data)
	require.NoError(t, err)
	require.Equal(t, 1, set.Len())

	key, ok := set.LookupKeyID("jwks-kid")
	require.True(t, ok)
	require.Equal(t, "RS256", key.Algorithm().String())

	var pub rsa.PublicKey
	require.NoError(t, key.Raw(&pub))
	require.True(t, pub.Equal(kp.PublicKey))

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Len(t, doc["keys"], 1)

	// a token signed by the signer verifies with the published key
	raw, err := s.Sign(jwt.MapClaims{"sub": "101"})
	require.NoError(t, err)
	_, err = jwt.Parse(raw, func(*jwt.Token) (any, error) { return &pub, nil })
	require.NoError(t, err)
}

func TestExportPEM_RoundTrip(t *testing.T) {
	kp, err := keys.GenerateECDSAKeyPair("ec", "ES512")
	require.NoError(t, err)

	privatePEM, err := kp.ExportPrivateKeyPEM()
	require.NoError(t, err)
	publicPEM, err := kp.ExportPublicKeyPEM()
	require.NoError(t, err)

	priv, err := keys.ParsePrivateKey([]byte(privatePEM))
	require.NoError(t, err)
	pub, err := keys.ParsePublicKey([]byte(publicPEM))
	require.NoError(t, err)

	m, err := keys.ResolveAlgorithm(keys.ECDSA512)
	require.NoError(t, err)
	rebuilt, err := keys.NewKeyPair("ec", m, priv, pub)
	require.NoError(t, err)
	require.Equal(t, "ES512", rebuilt.Algorithm)
}

package keys

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

// KeyPair represents a public/private key pair for signing tokens
type KeyPair struct {
	KeyID      string
	PrivateKey crypto.PrivateKey
	PublicKey  crypto.PublicKey
	Algorithm  string // RS256, RS512, ES256, ES384, ES512
}

// GenerateRSAKeyPair generates a new RSA key pair for the given JWT algorithm
func GenerateRSAKeyPair(keyID string, bits int, alg string) (*KeyPair, error) {
	if bits < 2048 {
		bits = 2048
	}

	privateKey, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate RSA key: %w", err)
	}

	return &KeyPair{
		KeyID:      keyID,
		PrivateKey: privateKey,
		PublicKey:  &privateKey.PublicKey,
		Algorithm:  alg,
	}, nil
}

// GenerateECDSAKeyPair generates a new ECDSA key pair on the curve matching alg
func GenerateECDSAKeyPair(keyID, alg string) (*KeyPair, error) {
	curve, err := curveFor(alg)
	if err != nil {
		return nil, err
	}

	privateKey, err := ecdsa.GenerateKey(curve, rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("failed to generate ECDSA key: %w", err)
	}

	return &KeyPair{
		KeyID:      keyID,
		PrivateKey: privateKey,
		PublicKey:  &privateKey.PublicKey,
		Algorithm:  alg,
	}, nil
}

func curveFor(alg string) (elliptic.Curve, error) {
	switch alg {
	case "ES256":
		return elliptic.P256(), nil
	case "ES384":
		return elliptic.P384(), nil
	case "ES512":
		return elliptic.P521(), nil
	}
	return nil, fmt.Errorf("no curve for algorithm %s", alg)
}

// NewKeyPair assembles a key pair from loaded keys and checks they agree with
// each other and with the signing method. A nil public key is derived.
func NewKeyPair(keyID string, method jwt.SigningMethod, private crypto.PrivateKey, public crypto.PublicKey) (*KeyPair, error) {
	var derived crypto.PublicKey
	switch key := private.(type) {
	case *rsa.PrivateKey:
		if _, ok := method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("RSA key cannot sign %s", method.Alg())
		}
		derived = &key.PublicKey
	case *ecdsa.PrivateKey:
		m, ok := method.(*jwt.SigningMethodECDSA)
		if !ok {
			return nil, fmt.Errorf("ECDSA key cannot sign %s", method.Alg())
		}
		if key.Curve.Params().BitSize != m.CurveBits {
			return nil, fmt.Errorf("curve %s does not match %s", key.Curve.Params().Name, method.Alg())
		}
		derived = &key.PublicKey
	default:
		return nil, fmt.Errorf("unsupported private key type %T", private)
	}

	if public == nil {
		public = derived
	}
	type equaler interface{ Equal(crypto.PublicKey) bool }
	if eq, ok := public.(equaler); !ok || !eq.Equal(derived) {
		return nil, errors.New("public key does not match private key")
	}

	return &KeyPair{
		KeyID:      keyID,
		PrivateKey: private,
		PublicKey:  public,
		Algorithm:  method.Alg(),
	}, nil
}

// GetSigningMethod returns the JWT signing method for this key pair
func (kp *KeyPair) GetSigningMethod() jwt.SigningMethod {
	if m := jwt.GetSigningMethod(kp.Algorithm); m != nil {
		return m
	}
	return jwt.SigningMethodRS256
}

// ExportPublicKeyPEM exports the public key as PEM
func (kp *KeyPair) ExportPublicKeyPEM() (string, error) {
	pubKeyBytes, err := x509.MarshalPKIXPublicKey(kp.PublicKey)
	if err != nil {
		return "", fmt.Errorf("failed to marshal public key: %w", err)
	}

	pubKeyPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: pubKeyBytes,
	})

	return string(pubKeyPEM), nil
}

// ExportPrivateKeyPEM exports the private key as PEM
func (kp *KeyPair) ExportPrivateKeyPEM() (string, error) {
	var (
		der       []byte
		blockType string
		err       error
	)

	switch key := kp.PrivateKey.(type) {
	case *rsa.PrivateKey:
		der = x509.MarshalPKCS1PrivateKey(key)
		blockType = "RSA PRIVATE KEY"
	case *ecdsa.PrivateKey:
		der, err = x509.MarshalECPrivateKey(key)
		if err != nil {
			return "", fmt.Errorf("failed to marshal ECDSA private key: %w", err)
		}
		blockType = "EC PRIVATE KEY"
	default:
		return "", errors.New("unsupported private key type")
	}

	return string(pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: der})), nil
}

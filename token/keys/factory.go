package keys

import (
	"crypto"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-auth-exchange/internal/config"
	apperrors "github.com/jrsteele09/go-auth-exchange/internal/errors"
)

// NewSignerFromConfig resolves the configured algorithm and loads its key
// material. Every failure is a configuration error.
func NewSignerFromConfig(cfg config.JWTConfig) (Signer, error) {
	method, err := ResolveAlgorithm(cfg.Algorithm)
	if err != nil {
		return nil, err
	}

	if hm, ok := method.(*jwt.SigningMethodHMAC); ok {
		secret, err := LoadMaterial(cfg.Key)
		if err != nil {
			return nil, apperrors.Wrapf(apperrors.ErrConfiguration, "jwt.key: %v", err)
		}
		return NewHMACSigner(secret, hm), nil
	}

	privMaterial, err := LoadMaterial(cfg.PrivateKey)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrConfiguration, "jwt.privateKey: %v", err)
	}
	private, err := ParsePrivateKey(privMaterial)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrConfiguration, "jwt.privateKey: %v", err)
	}

	var public crypto.PublicKey
	if cfg.PublicKey != "" {
		pubMaterial, err := LoadMaterial(cfg.PublicKey)
		if err != nil {
			return nil, apperrors.Wrapf(apperrors.ErrConfiguration, "jwt.publicKey: %v", err)
		}
		if public, err = ParsePublicKey(pubMaterial); err != nil {
			return nil, apperrors.Wrapf(apperrors.ErrConfiguration, "jwt.publicKey: %v", err)
		}
	}

	keyPair, err := NewKeyPair(cfg.KeyID, method, private, public)
	if err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrConfiguration, "jwt keys: %v", err)
	}
	return NewKeyPairSigner(keyPair), nil
}

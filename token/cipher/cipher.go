// Package cipher encrypts opaque token values before they leave the process.
package cipher

import (
	"crypto/ecdsa"
	"fmt"

	"github.com/jrsteele09/go-auth-exchange/internal/config"
	apperrors "github.com/jrsteele09/go-auth-exchange/internal/errors"
	"github.com/jrsteele09/go-auth-exchange/token/keys"
)

// Cipher wraps opaque token values. Decrypt failures of any kind are
// reported as apperrors.ErrInvalidToken.
type Cipher interface {
	Enabled() bool
	Encrypt(plain []byte) (string, error)
	Decrypt(encoded string) ([]byte, error)
}

// Disabled is the cipher used when encryption is switched off. It fails
// closed instead of passing data through.
type Disabled struct{}

var _ Cipher = Disabled{}

func (Disabled) Enabled() bool { return false }

func (Disabled) Encrypt([]byte) (string, error) {
	return "", apperrors.ErrEncryptionNotSupported
}

func (Disabled) Decrypt(string) ([]byte, error) {
	return nil, apperrors.ErrEncryptionNotSupported
}

// New builds the cipher selected by configuration.
func New(cfg config.EncryptionConfig) (Cipher, error) {
	switch cfg.Algorithm {
	case "":
		return Disabled{}, nil

	case config.EncryptionAESCBC:
		material, err := keys.LoadMaterial(cfg.PrivateKey)
		if err != nil {
			return nil, apperrors.Wrapf(apperrors.ErrConfiguration, "jwt.encryption.privateKey: %v", err)
		}
		c, err := NewAESCBC(keys.DecodeBinary(material))
		if err != nil {
			return nil, apperrors.Wrapf(apperrors.ErrConfiguration, "jwt.encryption: %v", err)
		}
		return c, nil

	case config.EncryptionEC:
		private, public, err := loadECKeys(cfg)
		if err != nil {
			return nil, apperrors.Wrapf(apperrors.ErrConfiguration, "jwt.encryption: %v", err)
		}
		c, err := NewEC(private, public)
		if err != nil {
			return nil, apperrors.Wrapf(apperrors.ErrConfiguration, "jwt.encryption: %v", err)
		}
		return c, nil
	}
	return nil, apperrors.Wrapf(apperrors.ErrConfiguration, "unknown encryption algorithm %q", cfg.Algorithm)
}

func loadECKeys(cfg config.EncryptionConfig) (*ecdsa.PrivateKey, *ecdsa.PublicKey, error) {
	privMaterial, err := keys.LoadMaterial(cfg.PrivateKey)
	if err != nil {
		return nil, nil, err
	}
	priv, err := keys.ParsePrivateKey(privMaterial)
	if err != nil {
		return nil, nil, err
	}
	ecPriv, ok := priv.(*ecdsa.PrivateKey)
	if !ok {
		return nil, nil, fmt.Errorf("private key is %T, want ECDSA", priv)
	}

	pubMaterial, err := keys.LoadMaterial(cfg.PublicKey)
	if err != nil {
		return nil, nil, err
	}
	pub, err := keys.ParsePublicKey(pubMaterial)
	if err != nil {
		return nil, nil, err
	}
	ecPub, ok := pub.(*ecdsa.PublicKey)
	if !ok {
		return nil, nil, fmt.Errorf("public key is %T, want ECDSA", pub)
	}
	return ecPriv, ecPub, nil
}

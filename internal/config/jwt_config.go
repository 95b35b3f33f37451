package config

import (
	"time"

	apperrors "github.com/jrsteele09/go-auth-exchange/internal/errors"
)

// Encryption algorithms for opaque token values
const (
	EncryptionAESCBC = "AES_CBC"
	EncryptionEC     = "EC"
)

type JWTConfig struct {
	Algorithm  string              `yaml:"algorithm" env:"AUTHX_JWT_ALGORITHM"`
	Key        string              `yaml:"key" env:"AUTHX_JWT_KEY"`
	PublicKey  string              `yaml:"publicKey" env:"AUTHX_JWT_PUBLIC_KEY"`
	PrivateKey string              `yaml:"privateKey" env:"AUTHX_JWT_PRIVATE_KEY"`
	KeyID      string              `yaml:"keyId" env:"AUTHX_JWT_KEY_ID"`
	Issuer     string              `yaml:"issuer" env:"AUTHX_JWT_ISSUER"`
	Strategies map[string]Strategy `yaml:"strategies"`
	Encryption EncryptionConfig    `yaml:"encryption"`
}

// Strategy controls how tokens of one kind are minted.
type Strategy struct {
	TokenLife          time.Duration `yaml:"tokenLife"`
	UseJti             bool          `yaml:"useJti"`
	IncludePermissions bool          `yaml:"includePermissions"`
	IncludeScopes      bool          `yaml:"includeScopes"`
}

type EncryptionConfig struct {
	Algorithm  string `yaml:"algorithm" env:"AUTHX_JWT_ENCRYPTION_ALGORITHM"`
	PublicKey  string `yaml:"publicKey" env:"AUTHX_JWT_ENCRYPTION_PUBLIC_KEY"`
	PrivateKey string `yaml:"privateKey" env:"AUTHX_JWT_ENCRYPTION_PRIVATE_KEY"`
}

// Enabled reports whether opaque values are encrypted before leaving the process.
func (e EncryptionConfig) Enabled() bool {
	return e.Algorithm != ""
}

var defaultTokenLife = map[string]time.Duration{
	"accessToken":       15 * time.Minute,
	"idToken":           15 * time.Minute,
	"refresh":           30 * 24 * time.Hour,
	"authorizationCode": 5 * time.Minute,
	"passwordless":      15 * time.Minute,
	"sessionToken":      24 * time.Hour,
	"otp":               5 * time.Minute,
	"apiKey":            365 * 24 * time.Hour,
}

// StrategyFor returns the strategy for a token kind with its lifetime defaulted.
func (j JWTConfig) StrategyFor(kind string) Strategy {
	s := j.Strategies[kind]
	if s.TokenLife <= 0 {
		s.TokenLife = defaultTokenLife[kind]
	}
	if s.TokenLife <= 0 {
		s.TokenLife = 15 * time.Minute
	}
	return s
}

func (j JWTConfig) validate() error {
	switch j.Algorithm {
	case "HMAC256", "HMAC512":
		if j.Key == "" {
			return apperrors.Wrapf(apperrors.ErrConfiguration, "jwt.key is required for %s", j.Algorithm)
		}
	case "RSA256", "RSA512", "ECDSA256", "ECDSA512":
		if j.PrivateKey == "" {
			return apperrors.Wrapf(apperrors.ErrConfiguration, "jwt.privateKey is required for %s", j.Algorithm)
		}
	default:
		return apperrors.Wrapf(apperrors.ErrConfiguration, "unknown jwt.algorithm %q", j.Algorithm)
	}

	for kind, s := range j.Strategies {
		if s.TokenLife < 0 {
			return apperrors.Wrapf(apperrors.ErrConfiguration, "jwt.strategies.%s.tokenLife is negative", kind)
		}
	}

	switch j.Encryption.Algorithm {
	case "":
	case EncryptionAESCBC:
		if j.Encryption.PrivateKey == "" {
			return apperrors.Wrapf(apperrors.ErrConfiguration, "jwt.encryption.privateKey is required for %s", EncryptionAESCBC)
		}
	case EncryptionEC:
		if j.Encryption.PrivateKey == "" || j.Encryption.PublicKey == "" {
			return apperrors.Wrapf(apperrors.ErrConfiguration, "jwt.encryption.publicKey and privateKey are required for %s", EncryptionEC)
		}
	default:
		return apperrors.Wrapf(apperrors.ErrConfiguration, "unknown jwt.encryption.algorithm %q", j.Encryption.Algorithm)
	}
	return nil
}

package keys

import (
	"github.com/golang-jwt/jwt/v5"
	apperrors "github.com/jrsteele09/go-auth-exchange/internal/errors"
)

// Configured algorithm names
const (
	HMAC256  = "HMAC256"
	HMAC512  = "HMAC512"
	RSA256   = "RSA256"
	RSA512   = "RSA512"
	ECDSA256 = "ECDSA256"
	ECDSA512 = "ECDSA512"
)

var signingMethods = map[string]jwt.SigningMethod{
	HMAC256:  jwt.SigningMethodHS256,
	HMAC512:  jwt.SigningMethodHS512,
	RSA256:   jwt.SigningMethodRS256,
	RSA512:   jwt.SigningMethodRS512,
	ECDSA256: jwt.SigningMethodES256,
	ECDSA512: jwt.SigningMethodES512,
}

// ResolveAlgorithm maps a configured algorithm name to its JWT signing method.
func ResolveAlgorithm(name string) (jwt.SigningMethod, error) {
	m, ok := signingMethods[name]
	if !ok {
		return nil, apperrors.Wrapf(apperrors.ErrConfiguration, "unsupported signing algorithm %q", name)
	}
	return m, nil
}

// IsSymmetric reports whether the named algorithm uses a shared secret.
func IsSymmetric(name string) bool {
	return name == HMAC256 || name == HMAC512
}

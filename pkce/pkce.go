// Package pkce checks proof-of-possession for authorization codes.
package pkce

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"

	"github.com/jrsteele09/go-auth-exchange/ephemeral"
	apperrors "github.com/jrsteele09/go-auth-exchange/internal/errors"
	"github.com/jrsteele09/go-auth-exchange/token"
)

// Challenge methods
const (
	MethodS256  = "S256"
	MethodPlain = "plain"
)

// ComputeS256Challenge returns BASE64URL(SHA256(verifier)) without padding.
func ComputeS256Challenge(verifier string) string {
	hash := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(hash[:])
}

// VerifyIfPKCE checks the code verifier in req against the challenge stored
// with the code. A code without a challenge must be presented without a
// verifier and the other way round.
func VerifyIfPKCE(stored *ephemeral.Token, req token.AuthRequest) error {
	challenge := stored.Info(ephemeral.InfoCodeChallenge)
	method := stored.Info(ephemeral.InfoCodeChallengeMethod)
	verifier := req.ExtraValue(token.ExtraCodeVerifier)

	if challenge == "" && method == "" && verifier == "" {
		return nil
	}
	if challenge == "" || method == "" || verifier == "" {
		return apperrors.ErrPkceMismatch
	}

	var computed string
	switch method {
	case MethodS256:
		computed = ComputeS256Challenge(verifier)
	case MethodPlain:
		computed = verifier
	default:
		return apperrors.ErrPkceMismatch
	}

	if subtle.ConstantTimeCompare([]byte(computed), []byte(challenge)) != 1 {
		return apperrors.ErrPkceMismatch
	}
	return nil
}

// ValidMethod reports whether method is a supported challenge method.
func ValidMethod(method string) bool {
	return method == MethodS256 || method == MethodPlain
}

package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// DefaultOpaqueLength is the number of random bytes in an opaque token (256 bits).
const DefaultOpaqueLength = 32

// RandomString returns n bytes from crypto/rand, base64url encoded.
func RandomString(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// Package otp issues and checks one-time passwords. A password is presented
// as "<passwordId>:<value>" and is consumed by its first successful use.
package otp

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/google/uuid"
	apperrors "github.com/jrsteele09/go-auth-exchange/internal/errors"
)

// Generation modes
const (
	ModeNumeric      = "NUMERIC"
	ModeAlphanumeric = "ALPHANUMERIC"
	ModeAlphabetic   = "ALPHABETIC"
)

var alphabets = map[string]string{
	ModeNumeric:      "0123456789",
	ModeAlphanumeric: "ABCDEFGHJKLMNPQRSTUVWXYZ23456789",
	ModeAlphabetic:   "ABCDEFGHJKLMNPQRSTUVWXYZ",
}

// Password is a stored one-time password
type Password struct {
	ID        string    `db:"id"`
	AccountID string    `db:"account_id"`
	Value     string    `db:"value"`
	ExpiresAt time.Time `db:"expires_at"`
	Attempts  int       `db:"attempts"`
}

// Store persists one-time passwords. Get fails with apperrors.ErrNotFound
// when the id is unknown. Delete reports whether this call removed the row.
type Store interface {
	Save(ctx context.Context, p Password) error
	Get(ctx context.Context, id string) (*Password, error)
	IncrementAttempts(ctx context.Context, id string) (int, error)
	Delete(ctx context.Context, id string) (bool, error)
}

// Generate returns a random value of length characters drawn from mode's
// alphabet using crypto/rand.
func Generate(length int, mode string) (string, error) {
	alphabet, ok := alphabets[mode]
	if !ok {
		return "", apperrors.Wrapf(apperrors.ErrConfiguration, "unknown otp mode %q", mode)
	}
	if length <= 0 {
		return "", apperrors.Wrapf(apperrors.ErrConfiguration, "otp length must be positive")
	}

	limit := big.NewInt(int64(len(alphabet)))
	out := make([]byte, length)
	for i := range out {
		n, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("failed to generate otp: %w", err)
		}
		out[i] = alphabet[n.Int64()]
	}
	return string(out), nil
}

// NewID returns a fresh password id.
func NewID() string {
	return uuid.NewString()
}

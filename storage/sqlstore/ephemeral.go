package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jrsteele09/go-auth-exchange/ephemeral"
	apperrors "github.com/jrsteele09/go-auth-exchange/internal/errors"
	"github.com/jrsteele09/go-auth-exchange/token"
)

// EphemeralRepo is the ephemeral.Store over the ephemeral_tokens table
type EphemeralRepo struct {
	store *Store
}

var _ ephemeral.Store = (*EphemeralRepo)(nil)

func (s *Store) Ephemeral() *EphemeralRepo {
	return &EphemeralRepo{store: s}
}

type ephemeralRow struct {
	Token                 string `db:"token"`
	Kind                  string `db:"kind"`
	AssociatedAccountID   string `db:"associated_account_id"`
	ExpiresAt             int64  `db:"expires_at"`
	Restrictions          string `db:"restrictions"`
	AdditionalInformation string `db:"additional_information"`
}

func (r *EphemeralRepo) Save(ctx context.Context, t ephemeral.Token) error {
	restrictions, err := json.Marshal(t.Restrictions)
	if err != nil {
		return fmt.Errorf("failed to encode restrictions: %w", err)
	}
	info, err := json.Marshal(t.AdditionalInformation)
	if err != nil {
		return fmt.Errorf("failed to encode additional information: %w", err)
	}

	_, err = r.store.exec(ctx, `
		INSERT INTO ephemeral_tokens (token, kind, associated_account_id, expires_at, restrictions, additional_information)
		VALUES (?, ?, ?, ?, ?, ?)`,
		t.Token, string(t.Kind), t.AssociatedAccountID, toMillis(t.ExpiresAt), string(restrictions), string(info))
	if isUniqueViolation(err) {
		return ephemeral.ErrDuplicateToken
	}
	if err != nil {
		return fmt.Errorf("failed to save ephemeral token: %w", err)
	}
	return nil
}

func (r *EphemeralRepo) GetByToken(ctx context.Context, value string) (*ephemeral.Token, error) {
	var row ephemeralRow
	err := r.store.db.GetContext(ctx, &row, r.store.db.Rebind(`
		SELECT token, kind, associated_account_id, expires_at, restrictions, additional_information
		FROM ephemeral_tokens WHERE token = ?`), value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ephemeral token: %w", err)
	}

	t := &ephemeral.Token{
		Token:               row.Token,
		Kind:                token.Kind(row.Kind),
		AssociatedAccountID: row.AssociatedAccountID,
		ExpiresAt:           fromMillis(row.ExpiresAt),
	}
	if err := json.Unmarshal([]byte(row.Restrictions), &t.Restrictions); err != nil {
		return nil, fmt.Errorf("failed to decode restrictions: %w", err)
	}
	if err := json.Unmarshal([]byte(row.AdditionalInformation), &t.AdditionalInformation); err != nil {
		return nil, fmt.Errorf("failed to decode additional information: %w", err)
	}
	return t, nil
}

// Delete removes the row. Concurrent deletes of one token see exactly one
// affected row between them.
func (r *EphemeralRepo) Delete(ctx context.Context, value string) (bool, error) {
	n, err := r.store.exec(ctx, `DELETE FROM ephemeral_tokens WHERE token = ?`, value)
	if err != nil {
		return false, fmt.Errorf("failed to delete ephemeral token: %w", err)
	}
	return n == 1, nil
}

// DeleteExpired purges rows that expired at or before now
func (r *EphemeralRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	n, err := r.store.exec(ctx, `DELETE FROM ephemeral_tokens WHERE expires_at <= ?`, toMillis(now))
	if err != nil {
		return 0, fmt.Errorf("failed to purge ephemeral tokens: %w", err)
	}
	return n, nil
}

package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	apperrors "github.com/jrsteele09/go-auth-exchange/internal/errors"
	"github.com/jrsteele09/go-auth-exchange/otp"
)

// OTPRepo is the otp.Store over the one_time_passwords table
type OTPRepo struct {
	store *Store
}

var _ otp.Store = (*OTPRepo)(nil)

func (s *Store) OTPs() *OTPRepo {
	return &OTPRepo{store: s}
}

type otpRow struct {
	ID        string `db:"id"`
	AccountID string `db:"account_id"`
	Value     string `db:"value"`
	ExpiresAt int64  `db:"expires_at"`
	Attempts  int    `db:"attempts"`
}

func (r *OTPRepo) Save(ctx context.Context, p otp.Password) error {
	_, err := r.store.exec(ctx, `
		INSERT INTO one_time_passwords (id, account_id, value, expires_at, attempts)
		VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.AccountID, p.Value, toMillis(p.ExpiresAt), p.Attempts)
	if err != nil {
		return fmt.Errorf("failed to save one-time password: %w", err)
	}
	return nil
}

func (r *OTPRepo) Get(ctx context.Context, id string) (*otp.Password, error) {
	var row otpRow
	err := r.store.db.GetContext(ctx, &row, r.store.db.Rebind(`
		SELECT id, account_id, value, expires_at, attempts FROM one_time_passwords WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get one-time password: %w", err)
	}
	return &otp.Password{
		ID:        row.ID,
		AccountID: row.AccountID,
		Value:     row.Value,
		ExpiresAt: fromMillis(row.ExpiresAt),
		Attempts:  row.Attempts,
	}, nil
}

// IncrementAttempts bumps the counter and returns the new value in one
// statement, so concurrent callers each see a distinct count.
func (r *OTPRepo) IncrementAttempts(ctx context.Context, id string) (int, error) {
	var attempts int
	err := r.store.db.GetContext(ctx, &attempts, r.store.db.Rebind(`
		UPDATE one_time_passwords SET attempts = attempts + 1 WHERE id = ? RETURNING attempts`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, apperrors.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("failed to count one-time password attempt: %w", err)
	}
	return attempts, nil
}

func (r *OTPRepo) Delete(ctx context.Context, id string) (bool, error) {
	n, err := r.store.exec(ctx, `DELETE FROM one_time_passwords WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to delete one-time password: %w", err)
	}
	return n == 1, nil
}

package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	apperrors "github.com/jrsteele09/go-auth-exchange/internal/errors"
	"github.com/jrsteele09/go-auth-exchange/sessions"
)

// SessionRepo is the sessions.Store over the sessions table
type SessionRepo struct {
	store *Store
}

var _ sessions.Store = (*SessionRepo)(nil)

func (s *Store) Sessions() *SessionRepo {
	return &SessionRepo{store: s}
}

type sessionRow struct {
	Token     string `db:"token"`
	AccountID string `db:"account_id"`
	Domain    string `db:"domain"`
	CreatedAt int64  `db:"created_at"`
	ExpiresAt int64  `db:"expires_at"`
	Data      string `db:"data"`
}

func (r *SessionRepo) Save(ctx context.Context, session sessions.Session) error {
	data, err := json.Marshal(session.Data)
	if err != nil {
		return fmt.Errorf("failed to encode session data: %w", err)
	}
	_, err = r.store.exec(ctx, `
		INSERT INTO sessions (token, account_id, domain, created_at, expires_at, data)
		VALUES (?, ?, ?, ?, ?, ?)`,
		session.Token, session.AccountID, session.Domain, toMillis(session.CreatedAt), toMillis(session.ExpiresAt), string(data))
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *SessionRepo) Get(ctx context.Context, token string) (*sessions.Session, error) {
	var row sessionRow
	err := r.store.db.GetContext(ctx, &row, r.store.db.Rebind(`
		SELECT token, account_id, domain, created_at, expires_at, data FROM sessions WHERE token = ?`), token)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	s := &sessions.Session{
		Token:     row.Token,
		AccountID: row.AccountID,
		Domain:    row.Domain,
		CreatedAt: fromMillis(row.CreatedAt),
		ExpiresAt: fromMillis(row.ExpiresAt),
	}
	if err := json.Unmarshal([]byte(row.Data), &s.Data); err != nil {
		return nil, fmt.Errorf("failed to decode session data: %w", err)
	}
	return s, nil
}

func (r *SessionRepo) Delete(ctx context.Context, token string) (bool, error) {
	n, err := r.store.exec(ctx, `DELETE FROM sessions WHERE token = ?`, token)
	if err != nil {
		return false, fmt.Errorf("failed to delete session: %w", err)
	}
	return n == 1, nil
}

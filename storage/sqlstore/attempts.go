package sqlstore

import (
	"context"
	"fmt"

	"github.com/jrsteele09/go-auth-exchange/audit"
)

var _ audit.Sink = (*Store)(nil)

type attemptRow struct {
	ID                string `db:"id"`
	EntityID          string `db:"entity_id"`
	ExchangeFrom      string `db:"exchange_from"`
	ExchangeTo        string `db:"exchange_to"`
	Successful        bool   `db:"successful"`
	DeviceID          string `db:"device_id"`
	ClientID          string `db:"client_id"`
	SourceIP          string `db:"source_ip"`
	UserAgent         string `db:"user_agent"`
	TrackingSessionID string `db:"tracking_session_id"`
	CreatedAt         int64  `db:"created_at"`
}

// Record appends an exchange attempt
func (s *Store) Record(ctx context.Context, a audit.Attempt) error {
	_, err := s.db.NamedExecContext(ctx, `
		INSERT INTO exchange_attempts (
			id, entity_id, exchange_from, exchange_to, successful, device_id,
			client_id, source_ip, user_agent, tracking_session_id, created_at
		) VALUES (
			:id, :entity_id, :exchange_from, :exchange_to, :successful, :device_id,
			:client_id, :source_ip, :user_agent, :tracking_session_id, :created_at
		)`, attemptRow{
		ID:                a.ID,
		EntityID:          a.EntityID,
		ExchangeFrom:      a.ExchangeFrom,
		ExchangeTo:        a.ExchangeTo,
		Successful:        a.Successful,
		DeviceID:          a.DeviceID,
		ClientID:          a.ClientID,
		SourceIP:          a.SourceIP,
		UserAgent:         a.UserAgent,
		TrackingSessionID: a.TrackingSessionID,
		CreatedAt:         toMillis(a.CreatedAt),
	})
	if err != nil {
		return fmt.Errorf("failed to record exchange attempt: %w", err)
	}
	return nil
}

// AttemptsFor lists the most recent attempts for an entity, newest first
func (s *Store) AttemptsFor(ctx context.Context, entityID string, limit int) ([]audit.Attempt, error) {
	var rows []attemptRow
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`
		SELECT id, entity_id, exchange_from, exchange_to, successful, device_id,
			client_id, source_ip, user_agent, tracking_session_id, created_at
		FROM exchange_attempts WHERE entity_id = ? ORDER BY created_at DESC LIMIT ?`), entityID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list exchange attempts: %w", err)
	}

	out := make([]audit.Attempt, 0, len(rows))
	for _, row := range rows {
		out = append(out, audit.Attempt{
			ID:                row.ID,
			EntityID:          row.EntityID,
			ExchangeFrom:      row.ExchangeFrom,
			ExchangeTo:        row.ExchangeTo,
			Successful:        row.Successful,
			DeviceID:          row.DeviceID,
			ClientID:          row.ClientID,
			SourceIP:          row.SourceIP,
			UserAgent:         row.UserAgent,
			TrackingSessionID: row.TrackingSessionID,
			CreatedAt:         fromMillis(row.CreatedAt),
		})
	}
	return out, nil
}

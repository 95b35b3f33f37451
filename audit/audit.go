// Package audit records exchange attempts. Recording is best effort: it is
// bounded in time and never fails the exchange it describes.
package audit

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Attempt is one exchange attempt, successful or not. Rows are append-only.
type Attempt struct {
	ID                string    `db:"id" json:"id"`
	EntityID          string    `db:"entity_id" json:"entityId,omitempty"`
	ExchangeFrom      string    `db:"exchange_from" json:"exchangeFrom"`
	ExchangeTo        string    `db:"exchange_to" json:"exchangeTo"`
	Successful        bool      `db:"successful" json:"successful"`
	DeviceID          string    `db:"device_id" json:"deviceId,omitempty"`
	ClientID          string    `db:"client_id" json:"clientId,omitempty"`
	SourceIP          string    `db:"source_ip" json:"sourceIp,omitempty"`
	UserAgent         string    `db:"user_agent" json:"userAgent,omitempty"`
	TrackingSessionID string    `db:"tracking_session_id" json:"trackingSessionId,omitempty"`
	CreatedAt         time.Time `db:"created_at" json:"createdAt"`
}

// Sink persists attempts.
type Sink interface {
	Record(ctx context.Context, a Attempt) error
}

var _ Sink = (*MemorySink)(nil)

// MemorySink keeps attempts in memory
type MemorySink struct {
	attempts []Attempt
	lock     sync.Mutex
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (m *MemorySink) Record(_ context.Context, a Attempt) error {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.attempts = append(m.attempts, a)
	return nil
}

// Attempts returns a copy of everything recorded so far.
func (m *MemorySink) Attempts() []Attempt {
	m.lock.Lock()
	defer m.lock.Unlock()
	return slices.Clone(m.attempts)
}

// LogSink writes one structured audit line per attempt
type LogSink struct {
	logger zerolog.Logger
}

func NewLogSink(logger zerolog.Logger) *LogSink {
	return &LogSink{logger: logger.With().Str("component", "audit").Logger()}
}

func (l *LogSink) Record(_ context.Context, a Attempt) error {
	l.logger.Info().
		Str("attemptId", a.ID).
		Str("entityId", a.EntityID).
		Str("from", a.ExchangeFrom).
		Str("to", a.ExchangeTo).
		Bool("successful", a.Successful).
		Str("clientId", a.ClientID).
		Str("deviceId", a.DeviceID).
		Str("sourceIp", a.SourceIP).
		Str("userAgent", a.UserAgent).
		Str("trackingSessionId", a.TrackingSessionID).
		Time("createdAt", a.CreatedAt).
		Msg("exchange attempt")
	return nil
}

// MultiSink writes to every sink, continuing past failures
type MultiSink []Sink

func (m MultiSink) Record(ctx context.Context, a Attempt) error {
	var errs []error
	for _, s := range m {
		if err := s.Record(ctx, a); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

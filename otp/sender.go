package otp

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// Delivery is a one-time password ready to be sent to its owner.
type Delivery struct {
	PasswordID string
	AccountID  string
	Email      string
	Value      string
	ExpiresAt  time.Time
}

// Sender hands a password to the out-of-band channel (email, SMS).
type Sender interface {
	Send(ctx context.Context, d Delivery) error
}

// LogSender records deliveries in the log. The value itself is never logged.
type LogSender struct {
	logger zerolog.Logger
}

func NewLogSender(logger zerolog.Logger) *LogSender {
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, d Delivery) error {
	s.logger.Info().
		Str("passwordId", d.PasswordID).
		Str("accountId", d.AccountID).
		Bool("hasEmail", d.Email != "").
		Time("expiresAt", d.ExpiresAt).
		Msg("one-time password issued")
	return nil
}

package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-auth-exchange/internal/metrics"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DefaultTimeout bounds a single attempt write
const DefaultTimeout = 2 * time.Second

// Recorder writes attempts to a sink within a fixed time budget. The write
// is detached from the caller's cancellation so an exchange that was
// cancelled right after completing is still recorded.
type Recorder struct {
	sink    Sink
	timeout time.Duration
	logger  zerolog.Logger
	metrics *metrics.Exchange
	nowTime func() time.Time
}

type RecorderOption func(*Recorder)

func WithLogger(logger zerolog.Logger) RecorderOption {
	return func(r *Recorder) {
		r.logger = logger
	}
}

// WithMetrics counts failed writes
func WithMetrics(m *metrics.Exchange) RecorderOption {
	return func(r *Recorder) {
		r.metrics = m
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowTime func() time.Time) RecorderOption {
	return func(r *Recorder) {
		r.nowTime = nowTime
	}
}

func NewRecorder(sink Sink, timeout time.Duration, options ...RecorderOption) *Recorder {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	r := &Recorder{
		sink:    sink,
		timeout: timeout,
		logger:  log.Logger,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(r)
	}
	return r
}

// Record assigns the attempt an id and timestamp when missing and writes it.
// Failures and timeouts are logged and counted, never returned.
func (r *Recorder) Record(ctx context.Context, a Attempt) {
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = r.nowTime()
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- r.sink.Record(ctx, a)
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = ctx.Err()
	}
	if err != nil {
		r.metrics.RecordFailed()
		r.logger.Err(err).
			Str("from", a.ExchangeFrom).
			Str("to", a.ExchangeTo).
			Str("entityId", a.EntityID).
			Msg("failed to record exchange attempt")
	}
}

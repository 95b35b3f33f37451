package exchange

import (
	"context"
	"errors"
	"time"

	"github.com/jrsteele09/go-auth-exchange/audit"
	apperrors "github.com/jrsteele09/go-auth-exchange/internal/errors"
	"github.com/jrsteele09/go-auth-exchange/internal/metrics"
	"github.com/jrsteele09/go-auth-exchange/token"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/jrsteele09/go-auth-exchange/exchange"

// Service is the exchange orchestrator. Every call, supported or not,
// produces exactly one recorded attempt.
type Service struct {
	registry *Registry
	recorder *audit.Recorder
	logger   zerolog.Logger
	metrics  *metrics.Exchange
	tracer   trace.Tracer
	nowTime  func() time.Time
}

// ServiceOption defines a function type to modify the Service instance.
type ServiceOption func(*Service)

func WithLogger(logger zerolog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Exchange) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) ServiceOption {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowTime func() time.Time) ServiceOption {
	return func(s *Service) {
		s.nowTime = nowTime
	}
}

// NewService creates the orchestrator over registry, recording attempts
// through recorder.
func NewService(registry *Registry, recorder *audit.Recorder, options ...ServiceOption) (*Service, error) {
	if registry == nil {
		return nil, errors.New("[NewService] registry is required")
	}
	if recorder == nil {
		return nil, errors.New("[NewService] recorder is required")
	}

	s := &Service{
		registry: registry,
		recorder: recorder,
		logger:   log.Logger,
		tracer:   otel.Tracer(tracerName),
		nowTime:  time.Now,
	}
	for _, opt := range options {
		opt(s)
	}
	return s, nil
}

// Exchange converts the credential or token in req from one kind to another.
// The handler's error is returned unchanged.
func (s *Service) Exchange(ctx context.Context, req token.AuthRequest, from, to token.Kind) (*token.AuthResponse, error) {
	name := token.ExchangeName(from, to)
	ctx, span := s.tracer.Start(ctx, "exchange "+name, trace.WithAttributes(
		attribute.String("exchange.from", string(from)),
		attribute.String("exchange.to", string(to)),
	))
	defer span.End()

	start := s.nowTime()
	resp, err := s.dispatch(ctx, req, from, to)
	fromLabel, toLabel := s.metricLabels(from, to)
	s.metrics.Observe(fromLabel, toLabel, err, s.nowTime().Sub(start))

	entityID := apperrors.EntityOf(err)
	if err == nil {
		entityID = resp.EntityID
	}
	s.recorder.Record(ctx, audit.Attempt{
		EntityID:          entityID,
		ExchangeFrom:      string(from),
		ExchangeTo:        string(to),
		Successful:        err == nil,
		DeviceID:          req.DeviceID,
		ClientID:          req.ClientID,
		SourceIP:          req.SourceIP,
		UserAgent:         req.UserAgent,
		TrackingSessionID: req.ExternalSessionID,
	})

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperrors.Public(err))
		s.logger.Debug().Err(err).Str("exchange", name).Str("entityId", entityID).Msg("exchange failed")
		return nil, err
	}
	span.SetAttributes(attribute.String("exchange.entity_id", entityID))
	return resp, nil
}

// ExchangeWithRestrictions is Exchange with the issued token narrowed to
// restrictions. Restrictions never widen what the principal holds.
func (s *Service) ExchangeWithRestrictions(ctx context.Context, req token.AuthRequest, restrictions token.Restrictions, from, to token.Kind) (*token.AuthResponse, error) {
	return s.Exchange(ctx, req.WithRestrictions(restrictions), from, to)
}

// SupportsExchange reports whether from->to is enabled.
func (s *Service) SupportsExchange(from, to token.Kind) bool {
	return s.registry.Supports(from, to)
}

// metricLabels keeps caller-chosen kinds out of metric labels unless they
// name an enabled exchange.
func (s *Service) metricLabels(from, to token.Kind) (string, string) {
	if !s.registry.Supports(from, to) {
		return metrics.LabelUnsupported, metrics.LabelUnsupported
	}
	return string(from), string(to)
}

func (s *Service) dispatch(ctx context.Context, req token.AuthRequest, from, to token.Kind) (*token.AuthResponse, error) {
	handler, err := s.registry.Resolve(from, to)
	if err != nil {
		return nil, err
	}
	resp, err := handler.Exchange(ctx, req)
	if err == nil && resp == nil {
		return nil, errors.New("exchange handler returned no response")
	}
	return resp, err
}

// Package engine builds a ready exchange service from configuration.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/jrsteele09/go-auth-exchange/accounts"
	"github.com/jrsteele09/go-auth-exchange/audit"
	"github.com/jrsteele09/go-auth-exchange/ephemeral"
	"github.com/jrsteele09/go-auth-exchange/ephemeral/redisstore"
	"github.com/jrsteele09/go-auth-exchange/exchange"
	"github.com/jrsteele09/go-auth-exchange/idp"
	"github.com/jrsteele09/go-auth-exchange/internal/config"
	apperrors "github.com/jrsteele09/go-auth-exchange/internal/errors"
	"github.com/jrsteele09/go-auth-exchange/internal/metrics"
	"github.com/jrsteele09/go-auth-exchange/otp"
	"github.com/jrsteele09/go-auth-exchange/pkce"
	"github.com/jrsteele09/go-auth-exchange/sessions"
	"github.com/jrsteele09/go-auth-exchange/storage/sqlstore"
	"github.com/jrsteele09/go-auth-exchange/token"
	"github.com/jrsteele09/go-auth-exchange/token/cipher"
	"github.com/jrsteele09/go-auth-exchange/token/jti"
	"github.com/jrsteele09/go-auth-exchange/token/jwt"
	"github.com/jrsteele09/go-auth-exchange/token/keys"
	"github.com/jrsteele09/go-auth-exchange/token/opaque"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/trace"
)

// Engine owns the exchange service and the stores behind it.
type Engine struct {
	Service  *exchange.Service
	Registry *exchange.Registry
	Signer   keys.Signer

	// set when storage.driver is sqlite or postgres
	SQL *sqlstore.Store

	jwt       config.JWTConfig
	ephemeral ephemeral.Store
	tracker   jti.Tracker
	nowTime   func() time.Time
	closers   []func() error
}

type Option func(*settings)

type settings struct {
	logger     zerolog.Logger
	registerer prometheus.Registerer
	tracer     trace.Tracer
	sender     otp.Sender
	provider   idp.Provider
	sinks      []audit.Sink
	nowTime    func() time.Time
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *settings) {
		s.logger = logger
	}
}

// WithRegisterer registers the exchange metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *settings) {
		s.registerer = reg
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *settings) {
		s.tracer = tracer
	}
}

// WithOTPSender sets where one-time passwords are delivered. By default they
// are only logged.
func WithOTPSender(sender otp.Sender) Option {
	return func(s *settings) {
		s.sender = sender
	}
}

// WithIdentityProvider replaces the provider discovered from idp.issuer.
func WithIdentityProvider(p idp.Provider) Option {
	return func(s *settings) {
		s.provider = p
	}
}

// WithAuditSink adds a sink that receives every exchange attempt.
func WithAuditSink(sink audit.Sink) Option {
	return func(s *settings) {
		s.sinks = append(s.sinks, sink)
	}
}

func WithNowTime(nowTime func() time.Time) Option {
	return func(s *settings) {
		s.nowTime = nowTime
	}
}

// stores are the persistence backends selected by storage.driver
type stores struct {
	ephemeral ephemeral.Store
	sessions  sessions.Store
	otps      otp.Store
	tracker   jti.Tracker
	sink      audit.Sink
}

// New wires every component named by cfg around the given account directory
// and enables the exchanges in cfg.Exchange.Allowed. Any failure is returned
// before the engine is usable; nothing is half started.
func New(ctx context.Context, cfg config.Config, directory accounts.Repo, options ...Option) (*Engine, error) {
	if directory == nil {
		return nil, errors.New("[engine.New] account directory is required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := settings{
		logger:  log.Logger,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(&s)
	}
	if s.sender == nil {
		s.sender = otp.NewLogSender(s.logger.With().Str("component", "otp").Logger())
	}

	e := &Engine{jwt: cfg.JWT, nowTime: s.nowTime}
	ok := false
	defer func() {
		if !ok {
			_ = e.Close()
		}
	}()

	signer, err := keys.NewSignerFromConfig(cfg.JWT)
	if err != nil {
		return nil, err
	}
	e.Signer = signer

	c, err := cipher.New(cfg.JWT.Encryption)
	if err != nil {
		return nil, err
	}

	st, err := e.openStores(ctx, cfg.Storage, s)
	if err != nil {
		return nil, err
	}

	e.ephemeral = st.ephemeral
	e.tracker = st.tracker

	provider := s.provider
	if provider == nil && cfg.IdP.Issuer != "" {
		oidcProvider, err := idp.NewOIDCProvider(ctx, cfg.IdP)
		if err != nil {
			return nil, err
		}
		provider = oidcProvider
	}

	deps := dependencies(cfg, directory, signer, c, st, s, provider)
	registry, err := exchange.NewRegistry(exchange.Available(deps), cfg.Exchange.Allowed)
	if err != nil {
		return nil, err
	}
	e.Registry = registry

	m := metrics.NewExchange(s.registerer)
	sink := st.sink
	if len(s.sinks) > 0 {
		sink = append(audit.MultiSink{sink}, s.sinks...)
	}
	recorder := audit.NewRecorder(sink, cfg.Exchange.AttemptTimeout,
		audit.WithLogger(s.logger.With().Str("component", "audit").Logger()),
		audit.WithMetrics(m),
		audit.WithNowTime(s.nowTime),
	)

	serviceOptions := []exchange.ServiceOption{
		exchange.WithLogger(s.logger.With().Str("component", "exchange").Logger()),
		exchange.WithMetrics(m),
		exchange.WithNowTime(s.nowTime),
	}
	if s.tracer != nil {
		serviceOptions = append(serviceOptions, exchange.WithTracer(s.tracer))
	}
	e.Service, err = exchange.NewService(registry, recorder, serviceOptions...)
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Str("storage", cfg.Storage.Driver).
		Str("algorithm", cfg.JWT.Algorithm).
		Bool("encryption", c.Enabled()).
		Int("exchanges", len(registry.Pairs())).
		Msg("exchange engine ready")
	ok = true
	return e, nil
}

func (e *Engine) openStores(ctx context.Context, cfg config.StorageConfig, s settings) (stores, error) {
	st := stores{
		ephemeral: ephemeral.NewInMemoryStore(),
		sessions:  sessions.NewInMemoryStore(),
		otps:      otp.NewInMemoryStore(),
		tracker:   jti.NewMemoryTracker().WithNowTime(s.nowTime),
		sink:      audit.NewLogSink(s.logger.With().Str("component", "audit").Logger()),
	}

	switch cfg.Driver {
	case sqlstore.DriverSQLite, sqlstore.DriverPostgres:
		db, err := sqlstore.Open(ctx, cfg.Driver, cfg.DSN)
		if err != nil {
			return stores{}, apperrors.Wrapf(apperrors.ErrConfiguration, "storage: %v", err)
		}
		e.SQL = db
		e.closers = append(e.closers, db.Close)
		st.ephemeral = db.Ephemeral()
		st.sessions = db.Sessions()
		st.otps = db.OTPs()
		st.sink = audit.MultiSink{db, st.sink}
	}

	// replay ids go to redis whenever it is configured
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return stores{}, apperrors.Wrapf(apperrors.ErrConfiguration, "storage.redisUrl: %v", err)
		}
		rdb := redis.NewClient(opts)
		e.closers = append(e.closers, rdb.Close)
		if err := rdb.Ping(ctx).Err(); err != nil {
			return stores{}, apperrors.Wrapf(apperrors.ErrConfiguration, "redis ping: %v", err)
		}
		st.tracker = jti.NewRedisTracker(rdb)
		if cfg.Driver == "redis" {
			st.ephemeral = redisstore.New(rdb)
		}
	}
	return st, nil
}

func dependencies(cfg config.Config, directory accounts.Repo, signer keys.Signer, c cipher.Cipher, st stores, s settings, provider idp.Provider) exchange.Dependencies {
	lifetime := func(kind token.Kind) time.Duration {
		return cfg.JWT.StrategyFor(string(kind)).TokenLife
	}
	opaqueIssuer := func(kind token.Kind) *opaque.Issuer {
		return opaque.NewIssuer(kind, st.ephemeral, c, lifetime(kind), opaque.WithNowTime(s.nowTime))
	}
	redeemer := func(kind token.Kind, policy opaque.Policy, options ...opaque.RedeemerOption) *opaque.Redeemer {
		options = append(options, opaque.WithRedeemerNowTime(s.nowTime))
		return opaque.NewRedeemer(kind, st.ephemeral, c, policy, options...)
	}
	verifier := func(kind token.Kind) *jwt.Verifier {
		return jwt.NewVerifier(kind, signer, cfg.JWT, st.tracker, jwt.WithVerifierNowTime(s.nowTime))
	}

	d := exchange.Dependencies{
		Credentials: accounts.NewPasswordVerifier(directory, accounts.BcryptPassword{}),
		Accounts:    directory,

		AccessTokens: jwt.NewAccessTokenIssuer(signer, cfg.JWT, jwt.WithIssuerNowTime(s.nowTime)),
		IDTokens:     jwt.NewIDTokenIssuer(signer, cfg.JWT, jwt.WithIssuerNowTime(s.nowTime)),

		RefreshTokens:        opaqueIssuer(token.Refresh),
		RefreshRedeemer:      redeemer(token.Refresh, opaque.DeleteAlways),
		AuthCodes:            opaqueIssuer(token.AuthorizationCode),
		AuthCodeRedeemer:     redeemer(token.AuthorizationCode, opaque.DeleteOnSuccess, opaque.WithValidator(pkce.VerifyIfPKCE)),
		Passwordless:         opaqueIssuer(token.Passwordless),
		PasswordlessRedeemer: redeemer(token.Passwordless, opaque.DeleteOnSuccess),

		Sessions: sessions.NewManager(st.sessions, lifetime(token.SessionToken), sessions.WithNowTime(s.nowTime)),
		OTPs:     otp.NewManager(st.otps, s.sender, cfg.OTP, lifetime(token.OTP), otp.WithNowTime(s.nowTime)),

		AccessVerifier: verifier(token.AccessToken),
		IDVerifier:     verifier(token.IDToken),
		APIKeys:        jwt.NewAPIKeyVerifier(verifier(token.APIKey), directory),

		IdP: provider,
	}
	return d
}

// APIKeyIssuer returns an issuer for application API keys signed like
// every other token of the engine.
func (e *Engine) APIKeyIssuer() *jwt.Issuer {
	return jwt.NewAPIKeyIssuer(e.Signer, e.jwt)
}

// Purge removes expired ephemeral tokens and forgets expired replay ids.
// Redis expires both on its own, so only the memory and SQL stores are
// swept. It returns the number of ephemeral tokens removed.
func (e *Engine) Purge(ctx context.Context) (int64, error) {
	now := e.nowTime()

	var removed int64
	switch store := e.ephemeral.(type) {
	case *ephemeral.InMemoryStore:
		removed = int64(store.DeleteExpired(now))
	case *sqlstore.EphemeralRepo:
		n, err := store.DeleteExpired(ctx, now)
		if err != nil {
			return 0, apperrors.Wrapf(err, "purge ephemeral tokens")
		}
		removed = n
	}

	if tracker, ok := e.tracker.(*jti.MemoryTracker); ok {
		tracker.Cleanup()
	}
	return removed, nil
}

// Close releases the stores in reverse order of opening.
func (e *Engine) Close() error {
	var errs []error
	for i := len(e.closers) - 1; i >= 0; i-- {
		errs = append(errs, e.closers[i]())
	}
	e.closers = nil
	return errors.Join(errs...)
}

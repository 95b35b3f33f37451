package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	apperrors "github.com/jrsteele09/go-auth-exchange/internal/errors"
	"gopkg.in/yaml.v3"
)

const defaultAttemptTimeout = 2 * time.Second

// Config is the single immutable process configuration. It is loaded once at
// startup and passed by value into the components that need it.
type Config struct {
	AppName  string         `yaml:"appName" env:"AUTHX_APP_NAME"`
	Exchange ExchangeConfig `yaml:"exchange"`
	JWT      JWTConfig      `yaml:"jwt"`
	OTP      OTPConfig      `yaml:"otp"`
	Storage  StorageConfig  `yaml:"storage"`
	Logging  LoggingConfig  `yaml:"logging"`
	IdP      IdPConfig      `yaml:"idp"`
}

// ExchangePair names one enabled edge of the exchange graph.
type ExchangePair struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

func (p ExchangePair) String() string {
	return p.From + "->" + p.To
}

type ExchangeConfig struct {
	Allowed        []ExchangePair `yaml:"allowed"`
	AttemptTimeout time.Duration  `yaml:"attemptTimeout" env:"AUTHX_EXCHANGE_ATTEMPT_TIMEOUT"`
}

type OTPConfig struct {
	Length      int    `yaml:"length" env:"AUTHX_OTP_LENGTH"`
	Mode        string `yaml:"mode" env:"AUTHX_OTP_MODE"` // NUMERIC, ALPHANUMERIC, ALPHABETIC
	MaxAttempts int    `yaml:"maxAttempts" env:"AUTHX_OTP_MAX_ATTEMPTS"`
}

type StorageConfig struct {
	Driver   string `yaml:"driver" env:"AUTHX_STORAGE_DRIVER"` // memory, sqlite, postgres, redis
	DSN      string `yaml:"dsn" env:"AUTHX_STORAGE_DSN"`
	RedisURL string `yaml:"redisUrl" env:"REDIS_URL"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" env:"AUTHX_LOG_LEVEL"`
	Pretty bool   `yaml:"pretty" env:"AUTHX_LOG_PRETTY"`
}

// IdPConfig describes the upstream OpenID provider trusted by the
// externalIdToken exchange. An empty Issuer disables it.
type IdPConfig struct {
	Issuer       string `yaml:"issuer" env:"AUTHX_IDP_ISSUER"`
	ClientID     string `yaml:"clientId" env:"AUTHX_IDP_CLIENT_ID"`
	ClientSecret string `yaml:"clientSecret" env:"AUTHX_IDP_CLIENT_SECRET"`
	RedirectURL  string `yaml:"redirectUrl" env:"AUTHX_IDP_REDIRECT_URL"`
}

// Load reads the YAML file at path (optional) and overlays environment
// variables on top of it. The result is defaulted and validated.
func Load(path string) (Config, error) {
	var data []byte
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, apperrors.Wrapf(apperrors.ErrConfiguration, "read config %s: %v", path, err)
		}
		data = b
	}
	return Parse(data)
}

// Parse builds a Config from YAML bytes plus the process environment.
func Parse(data []byte) (Config, error) {
	var cfg Config
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, apperrors.Wrapf(apperrors.ErrConfiguration, "parse yaml: %v", err)
		}
	}
	if err := env.Parse(&cfg); err != nil {
		return Config{}, apperrors.Wrapf(apperrors.ErrConfiguration, "parse env: %v", err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.AppName == "" {
		c.AppName = "Auth Exchange"
	}
	if c.Exchange.AttemptTimeout <= 0 {
		c.Exchange.AttemptTimeout = defaultAttemptTimeout
	}
	if c.JWT.Algorithm == "" {
		c.JWT.Algorithm = "HMAC256"
	}
	if c.JWT.KeyID == "" {
		c.JWT.KeyID = "default"
	}
	if c.OTP.Length <= 0 {
		c.OTP.Length = 6
	}
	if c.OTP.Mode == "" {
		c.OTP.Mode = "NUMERIC"
	}
	if c.OTP.MaxAttempts <= 0 {
		c.OTP.MaxAttempts = 5
	}
	if c.Storage.Driver == "" {
		c.Storage.Driver = "memory"
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
}

// Validate checks that every value needed at startup is present and known.
func (c Config) Validate() error {
	for i, p := range c.Exchange.Allowed {
		if p.From == "" || p.To == "" {
			return apperrors.Wrapf(apperrors.ErrConfiguration, "exchange.allowed[%d] needs both from and to", i)
		}
	}
	if err := c.JWT.validate(); err != nil {
		return err
	}
	switch c.OTP.Mode {
	case "NUMERIC", "ALPHANUMERIC", "ALPHABETIC":
	default:
		return apperrors.Wrapf(apperrors.ErrConfiguration, "unknown otp.mode %q", c.OTP.Mode)
	}
	switch c.Storage.Driver {
	case "memory":
	case "sqlite", "postgres":
		if c.Storage.DSN == "" {
			return apperrors.Wrapf(apperrors.ErrConfiguration, "storage.dsn is required for driver %s", c.Storage.Driver)
		}
	case "redis":
		if c.Storage.RedisURL == "" {
			return apperrors.Wrapf(apperrors.ErrConfiguration, "storage.redisUrl is required for driver redis")
		}
	default:
		return apperrors.Wrapf(apperrors.ErrConfiguration, "unknown storage.driver %q", c.Storage.Driver)
	}
	return nil
}

func (c Config) String() string {
	return fmt.Sprintf("%s (alg=%s, exchanges=%d, storage=%s)", c.AppName, c.JWT.Algorithm, len(c.Exchange.Allowed), c.Storage.Driver)
}

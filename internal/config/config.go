package config

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/caarlos0/env/v11"
)

const (
	AuthModeLocal = "local"
	AuthModeIDP   = "idp"
)

// Config is the server configuration, read from SOIREE_* environment
// variables.
type Config struct {
	Port      int    `env:"PORT" envDefault:"8080"`
	DBPath    string `env:"DB_PATH" envDefault:"soiree.db"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`
	BaseURL   string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	AuthMode   string        `env:"AUTH_MODE" envDefault:"local"`
	IDPURL     string        `env:"IDP_URL"`
	IDPTimeout time.Duration `env:"IDP_TIMEOUT" envDefault:"5s"`
	IDPRetries uint64        `env:"IDP_RETRIES" envDefault:"2"`

	SessionCookie     string        `env:"SESSION_COOKIE" envDefault:"soiree_session"`
	SecureCookies     bool          `env:"SECURE_COOKIES" envDefault:"false"`
	SessionTTL        time.Duration `env:"SESSION_TTL" envDefault:"720h"`
	ProtectedPrefixes []string      `env:"PROTECTED_PREFIXES" envSeparator:"," envDefault:"/invitations,/account"`
	LoginPath         string        `env:"LOGIN_PATH" envDefault:"/login"`

	RSVPRate  float64 `env:"RSVP_RATE" envDefault:"2"`
	RSVPBurst int     `env:"RSVP_BURST" envDefault:"5"`
}

// Load reads the configuration from the process environment.
func Load() (Config, error) {
	return load(env.Options{Prefix: "SOIREE_"})
}

// LoadFrom reads the configuration from environ instead of the process
// environment. Keys carry the SOIREE_ prefix.
func LoadFrom(environ map[string]string) (Config, error) {
	return load(env.Options{Prefix: "SOIREE_", Environment: environ})
}

func load(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks combinations the struct tags cannot express.
func (c Config) Validate() error {
	var errs []error
	switch c.AuthMode {
	case AuthModeLocal:
	case AuthModeIDP:
		if c.IDPURL == "" {
			errs = append(errs, errors.New("SOIREE_IDP_URL is required when SOIREE_AUTH_MODE=idp"))
		}
	default:
		errs = append(errs, fmt.Errorf("SOIREE_AUTH_MODE must be %q or %q, got %q", AuthModeLocal, AuthModeIDP, c.AuthMode))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("SOIREE_PORT out of range: %d", c.Port))
	}
	if c.SessionCookie == "" {
		errs = append(errs, errors.New("SOIREE_SESSION_COOKIE must not be empty"))
	}
	if c.RSVPRate <= 0 || c.RSVPBurst <= 0 {
		errs = append(errs, errors.New("SOIREE_RSVP_RATE and SOIREE_RSVP_BURST must be positive"))
	}
	return errors.Join(errs...)
}

// Addr is the listen address.
func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// Package config loads the immutable process configuration from the
// environment. It is parsed once at startup and passed by value; nothing
// in the service mutates it afterwards.
package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every tunable the service reads at boot.
type Config struct {
	HTTPAddr string `env:"PQRS_HTTP_ADDR" envDefault:":8080"`

	// PGDSN is optional: with an empty DSN the service falls back to the
	// in-memory stores, which is enough for local development.
	PGDSN string `env:"PQRS_PG_DSN"`

	AuthSecret string        `env:"PQRS_AUTH_SECRET"`
	AuthIssuer string        `env:"PQRS_AUTH_ISSUER" envDefault:"pqrs-api"`
	AccessTTL  time.Duration `env:"PQRS_ACCESS_TOKEN_TTL" envDefault:"30m"`
	RefreshTTL time.Duration `env:"PQRS_REFRESH_TOKEN_TTL" envDefault:"168h"`

	MaxPageSize     int `env:"PQRS_MAX_PAGE_SIZE" envDefault:"100"`
	DefaultPageSize int `env:"PQRS_DEFAULT_PAGE_SIZE" envDefault:"20"`

	RateLimitPerSecond int `env:"PQRS_RATE_LIMIT_PER_SECOND" envDefault:"20"`
	RateLimitBurst     int `env:"PQRS_RATE_LIMIT_BURST" envDefault:"40"`

	MaxBodyBytes int64 `env:"PQRS_MAX_BODY_BYTES" envDefault:"1048576"`

	MigrationsDir string `env:"PQRS_MIGRATIONS_DIR" envDefault:"migrations"`
	SeedsDir      string `env:"PQRS_SEEDS_DIR" envDefault:"seeds"`
}

// Load parses the configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.AuthSecret == "" {
		return errors.New("config: PQRS_AUTH_SECRET is required")
	}
	if c.AccessTTL <= 0 || c.RefreshTTL <= 0 {
		return errors.New("config: token TTLs must be positive")
	}
	if c.MaxPageSize <= 0 || c.DefaultPageSize <= 0 || c.DefaultPageSize > c.MaxPageSize {
		return errors.New("config: invalid page size bounds")
	}
	return nil
}

package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"local"`
	Port     string `env:"PORT" envDefault:"8080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	BackendURL       string        `env:"BACKEND_URL,required,notEmpty"`
	PublicBackendURL string        `env:"PUBLIC_BACKEND_URL"`
	BackendTimeout   time.Duration `env:"BACKEND_TIMEOUT" envDefault:"15s"`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	PostgresDSN   string `env:"POSTGRES_DSN"`

	DisplayTZ   string `env:"DISPLAY_TZ" envDefault:"UTC"`
	DefaultDays int    `env:"DEFAULT_DAYS" envDefault:"7"`
	MaxDays     int    `env:"MAX_DAYS" envDefault:"365"`

	// Freshness windows. Insights are kept longest since regeneration is manual.
	FeedTTL     time.Duration `env:"FEED_TTL" envDefault:"60s"`
	DetailTTL   time.Duration `env:"DETAIL_TTL" envDefault:"5m"`
	InsightsTTL time.Duration `env:"INSIGHTS_TTL" envDefault:"30m"`
	BiasTTL     time.Duration `env:"BIAS_TTL" envDefault:"1h"`

	AutoRegenerate bool   `env:"AUTO_REGENERATE" envDefault:"true"`
	RegenerateRPM  int    `env:"REGENERATE_RPM" envDefault:"6"`
	AdminToken     string `env:"ADMIN_TOKEN"`
	BiasFetchLimit int    `env:"BIAS_FETCH_LIMIT" envDefault:"4"`
}

func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.DefaultDays <= 0 {
		return fmt.Errorf("DEFAULT_DAYS must be positive, got %d", c.DefaultDays)
	}
	if c.MaxDays < c.DefaultDays {
		return fmt.Errorf("MAX_DAYS (%d) must not be below DEFAULT_DAYS (%d)", c.MaxDays, c.DefaultDays)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}

// Location returns the display time zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.DisplayTZ)
	if err != nil {
		return nil, fmt.Errorf("invalid DISPLAY_TZ %q: %w", c.DisplayTZ, err)
	}
	return loc, nil
}

// ListenAddr returns the HTTP listen address.
func (c *Config) ListenAddr() string {
	return ":" + c.Port
}

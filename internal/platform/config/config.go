// Package config loads server configuration from the environment so main
// stays lean. Rate-limit windows and cache TTLs are configuration constants,
// never persisted state.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config captures everything the server needs at startup.
type Config struct {
	Addr        string        `env:"SHOPCORE_ADDR" envDefault:":8080"`
	Environment string        `env:"SHOPCORE_ENV" envDefault:"development"`
	DatabaseURL string        `env:"DATABASE_URL"`
	RedisURL    string        `env:"REDIS_URL"`
	JWTSecret   string        `env:"JWT_SECRET" envDefault:"dev-secret-change-in-production"`
	SessionTTL  time.Duration `env:"SESSION_TTL" envDefault:"12h"`
	SeedDemo    bool          `env:"SEED_DEMO" envDefault:"false"`

	// Capability token lifetimes.
	PortalTokenTTL  time.Duration `env:"PORTAL_TOKEN_TTL" envDefault:"72h"`
	DisplayTokenTTL time.Duration `env:"DISPLAY_TOKEN_TTL" envDefault:"24h"`

	// Unauthenticated gateway rate limits, fixed window per source address.
	PortalRateLimit   int           `env:"PORTAL_RATE_LIMIT" envDefault:"20"`
	DisplayRateLimit  int           `env:"DISPLAY_RATE_LIMIT" envDefault:"60"`
	RateLimitWindow   time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"60s"`
	DashboardCacheTTL time.Duration `env:"DASHBOARD_CACHE_TTL" envDefault:"30s"`

	RequestTimeout time.Duration `env:"REQUEST_TIMEOUT" envDefault:"30s"`
}

// Load parses the configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return cfg, nil
}

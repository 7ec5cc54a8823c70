// Package config provides application configuration management.
// Configuration is loaded from environment variables following 12-factor principles.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v10"
)

// Telemetry sink names.
const (
	TelemetrySinkLog   = "log"
	TelemetrySinkHTTP  = "http"
	TelemetrySinkRedis = "redis"
	TelemetrySinkNone  = "none"
)

// Config holds all application configuration.
// All fields are populated from environment variables.
type Config struct {
	// Application settings
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	AppPort int    `env:"APP_PORT" envDefault:"8080"`

	// Base URL for short links (e.g., https://snap.url)
	BaseURL string `env:"BASE_URL" envDefault:"http://localhost:8080"`

	// Logging
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`

	// Server timeouts
	ReadTimeout     time.Duration `env:"READ_TIMEOUT" envDefault:"5s"`
	WriteTimeout    time.Duration `env:"WRITE_TIMEOUT" envDefault:"10s"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"30s"`

	// Registry store: memory, sqlite, postgres or redis
	StoreBackend string `env:"STORE_BACKEND" envDefault:"sqlite"`
	SQLitePath   string `env:"SQLITE_PATH" envDefault:"snapurl.db"`
	DatabaseURL  string `env:"DATABASE_URL"`
	RedisURL     string `env:"REDIS_URL"`

	// Registry behaviour
	ExpiryPolicy     string        `env:"EXPIRY_POLICY" envDefault:"ignore"`
	DefaultValidity  int           `env:"DEFAULT_VALIDITY" envDefault:"30"`
	SimulatedLatency time.Duration `env:"SIMULATED_LATENCY" envDefault:"0s"`

	// Telemetry: log, http, redis or none
	TelemetrySink         string `env:"TELEMETRY_SINK" envDefault:"log"`
	TelemetryLogURL       string `env:"TELEMETRY_LOG_URL"`
	TelemetryAuthURL      string `env:"TELEMETRY_AUTH_URL"`
	TelemetryClientID     string `env:"TELEMETRY_CLIENT_ID"`
	TelemetryClientSecret string `env:"TELEMETRY_CLIENT_SECRET"`

	// CORS configuration
	// Comma-separated list of allowed origins (e.g., "https://example.com,https://app.example.com")
	CORSAllowedOrigins string `env:"CORS_ALLOWED_ORIGINS" envDefault:""`

	// Request body size limit in bytes (default 1MB)
	MaxRequestBodySize int64 `env:"MAX_REQUEST_BODY_SIZE" envDefault:"1048576"`
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// IsProduction returns true if running in production mode.
func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// GetCORSAllowedOrigins parses the comma-separated origins string into a slice.
func (c *Config) GetCORSAllowedOrigins() []string {
	if c.CORSAllowedOrigins == "" {
		return nil
	}

	origins := strings.Split(c.CORSAllowedOrigins, ",")
	result := make([]string, 0, len(origins))

	for _, origin := range origins {
		trimmed := strings.TrimSpace(origin)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// Validate checks cross-field requirements that struct tags cannot express.
func (c *Config) Validate() error {
	var errs []error

	switch c.StoreBackend {
	case "memory", "sqlite":
	case "postgres":
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("DATABASE_URL is required for the postgres store"))
		}
	case "redis":
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required for the redis store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend))
	}

	switch strings.ToLower(c.ExpiryPolicy) {
	case "ignore", "enforce":
	default:
		errs = append(errs, fmt.Errorf("unknown EXPIRY_POLICY %q", c.ExpiryPolicy))
	}

	if c.DefaultValidity <= 0 {
		errs = append(errs, errors.New("DEFAULT_VALIDITY must be positive"))
	}
	if c.SimulatedLatency < 0 {
		errs = append(errs, errors.New("SIMULATED_LATENCY must not be negative"))
	}

	switch c.TelemetrySink {
	case TelemetrySinkLog, TelemetrySinkNone:
	case TelemetrySinkHTTP:
		if c.TelemetryLogURL == "" || c.TelemetryAuthURL == "" {
			errs = append(errs, errors.New("TELEMETRY_LOG_URL and TELEMETRY_AUTH_URL are required for the http telemetry sink"))
		}
	case TelemetrySinkRedis:
		if c.RedisURL == "" {
			errs = append(errs, errors.New("REDIS_URL is required for the redis telemetry sink"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown TELEMETRY_SINK %q", c.TelemetrySink))
	}

	return errors.Join(errs...)
}

// Load parses environment variables and returns a validated Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

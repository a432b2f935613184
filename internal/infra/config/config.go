// Package config loads process configuration from the environment,
// following the teacher's single envDefault-tagged struct pattern.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env"

	"github.com/elevatorsim/engine/internal/domain"
)

// Config is the complete process configuration, overlaid with
// environment-specific defaults after parsing.
type Config struct {
	// Environment and basic settings
	Environment string `env:"ENV" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"INFO"`

	// Server configuration
	Port            int           `env:"PORT" envDefault:"6660"`
	ReadTimeout     time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"30s"`
	WriteTimeout    time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"30s"`
	IdleTimeout     time.Duration `env:"SERVER_IDLE_TIMEOUT" envDefault:"120s"`
	ShutdownTimeout time.Duration `env:"SERVER_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	ShutdownGrace   time.Duration `env:"SERVER_SHUTDOWN_GRACE" envDefault:"2s"`

	// Simulation defaults (spec §3/§4.5). They are parsed and validated
	// here only: traffic.ParseFile does not read them, so a traffic file's
	// "building" block is not filled in from these values.
	TrafficDir             string  `env:"TRAFFIC_DIR" envDefault:"./traffic"`
	DefaultFloorsCount     int     `env:"DEFAULT_FLOORS_COUNT" envDefault:"10"`
	DefaultElevatorsCount  int     `env:"DEFAULT_ELEVATORS_COUNT" envDefault:"1"`
	DefaultMaxCapacity     int     `env:"DEFAULT_MAX_CAPACITY" envDefault:"10"`
	DefaultEnergyRate      float64 `env:"DEFAULT_ENERGY_RATE" envDefault:"1.0"`
	DefaultMaxDurationTick int     `env:"DEFAULT_MAX_DURATION_TICK" envDefault:"10000"`

	// HTTP configuration
	RateLimitRPM       int           `env:"RATE_LIMIT_RPM" envDefault:"100"`
	RateLimitWindow    time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"1m"`
	RateLimitCleanup   time.Duration `env:"RATE_LIMIT_CLEANUP" envDefault:"5m"`
	MaxRequestSize     int64         `env:"MAX_REQUEST_SIZE" envDefault:"1048576"`
	RequestTimeoutHTTP time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"30s"`
	CORSEnabled        bool          `env:"CORS_ENABLED" envDefault:"true"`
	CORSMaxAge         time.Duration `env:"CORS_MAX_AGE" envDefault:"12h"`
	CORSAllowedOrigins string        `env:"CORS_ALLOWED_ORIGINS" envDefault:"*"`

	// Monitoring
	MetricsEnabled      bool   `env:"METRICS_ENABLED" envDefault:"true"`
	MetricsPath         string `env:"METRICS_PATH" envDefault:"/metrics"`
	HealthEnabled       bool   `env:"HEALTH_ENABLED" envDefault:"true"`
	HealthPath          string `env:"HEALTH_PATH" envDefault:"/health"`
	StructuredLogging   bool   `env:"STRUCTURED_LOGGING" envDefault:"true"`
	LogRequestDetails   bool   `env:"LOG_REQUEST_DETAILS" envDefault:"false"`
	CorrelationIDHeader string `env:"CORRELATION_ID_HEADER" envDefault:"X-Request-ID"`

	// Circuit breaker (spec §9, engine RPC boundary)
	CircuitBreakerEnabled      bool          `env:"CIRCUIT_BREAKER_ENABLED" envDefault:"true"`
	CircuitBreakerMaxFailures  int           `env:"CIRCUIT_BREAKER_MAX_FAILURES" envDefault:"5"`
	CircuitBreakerResetTimeout time.Duration `env:"CIRCUIT_BREAKER_RESET_TIMEOUT" envDefault:"30s"`
	CircuitBreakerHalfOpenMax  int           `env:"CIRCUIT_BREAKER_HALF_OPEN_LIMIT" envDefault:"2"`

	// Event-stream WebSocket (spec SPEC_FULL.md supplemented feature)
	WebSocketEnabled        bool          `env:"WEBSOCKET_ENABLED" envDefault:"true"`
	WebSocketPath           string        `env:"WEBSOCKET_PATH" envDefault:"/ws/events"`
	WebSocketWriteTimeout   time.Duration `env:"WEBSOCKET_WRITE_TIMEOUT" envDefault:"5s"`
	WebSocketReadTimeout    time.Duration `env:"WEBSOCKET_READ_TIMEOUT" envDefault:"60s"`
	WebSocketPingInterval   time.Duration `env:"WEBSOCKET_PING_INTERVAL" envDefault:"30s"`
	WebSocketMaxConnections int           `env:"WEBSOCKET_MAX_CONNECTIONS" envDefault:"1000"`
	WebSocketBufferSize     int           `env:"WEBSOCKET_BUFFER_SIZE" envDefault:"1024"`
}

// InitConfig parses environment variables, overlays environment-specific
// defaults, and validates the result.
func InitConfig() (*Config, error) {
	cfg := Config{}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment variables: %w", err)
	}

	applyEnvironmentDefaults(&cfg)

	if err := validateConfiguration(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

func applyEnvironmentDefaults(cfg *Config) {
	switch cfg.Environment {
	case "development", "dev":
		applyDevelopmentDefaults(cfg)
	case "testing", "test":
		applyTestingDefaults(cfg)
	case "production", "prod":
		applyProductionDefaults(cfg)
	}
}

func applyDevelopmentDefaults(cfg *Config) {
	if cfg.LogLevel == "INFO" {
		cfg.LogLevel = "DEBUG"
	}
	cfg.LogRequestDetails = true
}

func applyTestingDefaults(cfg *Config) {
	cfg.LogLevel = "WARN"
	cfg.ReadTimeout = 2 * time.Second
	cfg.WriteTimeout = 2 * time.Second
	cfg.IdleTimeout = 10 * time.Second
	cfg.RequestTimeoutHTTP = 1 * time.Second
	cfg.MetricsEnabled = false
	cfg.WebSocketEnabled = false
	cfg.RateLimitRPM = 1000
	cfg.MaxRequestSize = 256 * 1024
	cfg.CircuitBreakerMaxFailures = 1
	cfg.CircuitBreakerResetTimeout = 5 * time.Second
}

func applyProductionDefaults(cfg *Config) {
	cfg.LogLevel = "WARN"
	cfg.LogRequestDetails = false
	cfg.RateLimitRPM = 30
	cfg.ReadTimeout = 15 * time.Second
	cfg.WriteTimeout = 15 * time.Second
	cfg.IdleTimeout = 60 * time.Second
	cfg.RequestTimeoutHTTP = 10 * time.Second
	cfg.WebSocketMaxConnections = 5000
	cfg.WebSocketWriteTimeout = 2 * time.Second
	cfg.WebSocketReadTimeout = 30 * time.Second
	cfg.WebSocketPingInterval = 15 * time.Second
	cfg.CircuitBreakerMaxFailures = 2
	cfg.CircuitBreakerResetTimeout = 10 * time.Second
	if _, set := os.LookupEnv("CORS_ALLOWED_ORIGINS"); !set {
		cfg.CORSAllowedOrigins = "https://app.example.com"
	}
	cfg.MaxRequestSize = 512 * 1024
}

func validateConfiguration(cfg *Config) error {
	if cfg.Port <= 0 || cfg.Port > 65535 {
		return domain.NewValidationError("port must be between 1 and 65535", nil).
			WithContext("port", cfg.Port)
	}
	if cfg.DefaultFloorsCount <= 1 {
		return domain.NewValidationError("default floors count must be greater than 1", nil).
			WithContext("floors_count", cfg.DefaultFloorsCount)
	}
	if cfg.DefaultElevatorsCount <= 0 {
		return domain.NewValidationError("default elevators count must be positive", nil).
			WithContext("elevators_count", cfg.DefaultElevatorsCount)
	}
	if cfg.DefaultMaxCapacity <= 0 {
		return domain.NewValidationError("default max capacity must be positive", nil).
			WithContext("max_capacity", cfg.DefaultMaxCapacity)
	}
	if cfg.DefaultEnergyRate < 0 {
		return domain.NewValidationError("default energy rate must not be negative", nil).
			WithContext("energy_rate", cfg.DefaultEnergyRate)
	}
	if cfg.DefaultMaxDurationTick <= 0 {
		return domain.NewValidationError("default max duration tick must be positive", nil).
			WithContext("max_duration_tick", cfg.DefaultMaxDurationTick)
	}
	if cfg.CircuitBreakerMaxFailures <= 0 {
		return domain.NewValidationError("circuit breaker max failures must be positive", nil).
			WithContext("max_failures", cfg.CircuitBreakerMaxFailures)
	}
	if cfg.CircuitBreakerResetTimeout <= 0 {
		return domain.NewValidationError("circuit breaker reset timeout must be positive", nil).
			WithContext("reset_timeout", cfg.CircuitBreakerResetTimeout)
	}

	if cfg.IsProduction() && cfg.CORSAllowedOrigins == "*" {
		return domain.NewValidationError("CORS wildcard not allowed in production", nil).
			WithContext("environment", cfg.Environment)
	}

	return nil
}

// IsProduction reports whether this process is configured for production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment reports whether this process is configured for development.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// IsTesting reports whether this process is configured for automated testing.
func (c *Config) IsTesting() bool {
	return c.Environment == "testing" || c.Environment == "test"
}

// SlogLevel maps LogLevel to a slog.Level, defaulting to INFO (the safe
// choice for a production deployment that forgot to set LOG_LEVEL) when the
// value isn't one of the recognized names.
func (c *Config) SlogLevel() slog.Level {
	switch strings.ToUpper(c.LogLevel) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// EnvironmentInfo returns a small map suitable for a structured startup log
// line or a health/readiness payload.
func (c *Config) EnvironmentInfo() map[string]any {
	return map[string]any{
		"environment":             c.Environment,
		"log_level":               c.LogLevel,
		"port":                    c.Port,
		"metrics_enabled":         c.MetricsEnabled,
		"websocket_enabled":       c.WebSocketEnabled,
		"circuit_breaker_enabled": c.CircuitBreakerEnabled,
	}
}

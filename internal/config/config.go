// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP API listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// GRPCHealthAddr is the address of the gRPC health server; empty disables it.
	GRPCHealthAddr string `mapstructure:"GRPC_HEALTH_ADDR"`
	// DatabaseURL is the Postgres DSN. Empty selects in-memory stores (not allowed in production).
	DatabaseURL string `mapstructure:"DATABASE_URL"`

	// AccessSecret signs access tokens (HS256). Required.
	AccessSecret string `mapstructure:"ACCESS_SECRET"`
	// RefreshSecret signs refresh tokens (HS256). Required and must differ from AccessSecret.
	RefreshSecret string `mapstructure:"REFRESH_SECRET"`
	// AccessTTLSeconds is the access token lifetime; default 900.
	AccessTTLSeconds int `mapstructure:"ACCESS_TTL_SECONDS"`
	// RefreshTTLSeconds is the refresh token and session lifetime; default 604800 (7d).
	RefreshTTLSeconds int `mapstructure:"REFRESH_TTL_SECONDS"`
	// RefreshRotationEnabled makes refresh tokens single-use: each refresh revokes the session and opens a new one.
	RefreshRotationEnabled bool `mapstructure:"REFRESH_ROTATION_ENABLED"`
	// SingleSessionPerUser revokes every existing session of the user on login.
	SingleSessionPerUser bool `mapstructure:"SINGLE_SESSION_PER_USER"`
	// JWTIssuer is the iss claim set and checked on both token classes.
	JWTIssuer string `mapstructure:"JWT_ISSUER"`
	// JWTAudience is the aud claim set and checked on both token classes.
	JWTAudience string `mapstructure:"JWT_AUDIENCE"`

	// Argon2MemoryKiB, Argon2Iterations and Argon2Parallelism are the argon2id cost parameters.
	Argon2MemoryKiB   uint32 `mapstructure:"ARGON2_MEMORY_KIB"`
	Argon2Iterations  uint32 `mapstructure:"ARGON2_ITERATIONS"`
	Argon2Parallelism uint8  `mapstructure:"ARGON2_PARALLELISM"`
	// HashConcurrency caps concurrent password hash computations.
	HashConcurrency int `mapstructure:"HASH_CONCURRENCY"`

	// SessionSweepInterval is how often the worker deletes expired sessions (e.g. "1h").
	SessionSweepInterval string `mapstructure:"SESSION_SWEEP_INTERVAL"`
	// ShutdownTimeout bounds graceful shutdown (e.g. "15s").
	ShutdownTimeout string `mapstructure:"SHUTDOWN_TIMEOUT"`

	// LogLevel is the zerolog level (debug, info, warn, error).
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// OTLPEndpoint is the OTLP gRPC collector endpoint; empty disables export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure forces plaintext OTLP even for https endpoints.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	// ServiceName is the OTel service.name resource attribute.
	ServiceName string `mapstructure:"OTEL_SERVICE_NAME"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid;
// callers treat that as fatal at startup.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("GRPC_HEALTH_ADDR", ":9090")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("ACCESS_SECRET", "")
	v.SetDefault("REFRESH_SECRET", "")
	v.SetDefault("ACCESS_TTL_SECONDS", 900)
	v.SetDefault("REFRESH_TTL_SECONDS", 604800)
	v.SetDefault("REFRESH_ROTATION_ENABLED", false)
	v.SetDefault("SINGLE_SESSION_PER_USER", false)
	v.SetDefault("JWT_ISSUER", "session-auth")
	v.SetDefault("JWT_AUDIENCE", "session-auth-api")
	v.SetDefault("ARGON2_MEMORY_KIB", 64*1024)
	v.SetDefault("ARGON2_ITERATIONS", 3)
	v.SetDefault("ARGON2_PARALLELISM", 2)
	v.SetDefault("HASH_CONCURRENCY", 4)
	v.SetDefault("SESSION_SWEEP_INTERVAL", "1h")
	v.SetDefault("SHUTDOWN_TIMEOUT", "15s")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)
	v.SetDefault("OTEL_SERVICE_NAME", "session-auth")
	v.SetDefault("APP_ENV", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required fields and ranges. Load calls it; tests and tools building a Config by hand may too.
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return errors.New("config: HTTP_ADDR must be set")
	}
	if c.AccessSecret == "" {
		return errors.New("config: ACCESS_SECRET must be set")
	}
	if c.RefreshSecret == "" {
		return errors.New("config: REFRESH_SECRET must be set")
	}
	if c.AccessSecret == c.RefreshSecret {
		return errors.New("config: ACCESS_SECRET and REFRESH_SECRET must differ")
	}
	if c.AccessTTLSeconds <= 0 {
		return errors.New("config: ACCESS_TTL_SECONDS must be positive")
	}
	if c.RefreshTTLSeconds <= 0 {
		return errors.New("config: REFRESH_TTL_SECONDS must be positive")
	}
	if c.Argon2MemoryKiB < 8*1024 {
		return errors.New("config: ARGON2_MEMORY_KIB must be at least 8192")
	}
	if c.Argon2Iterations == 0 {
		return errors.New("config: ARGON2_ITERATIONS must be at least 1")
	}
	if c.Argon2Parallelism == 0 {
		return errors.New("config: ARGON2_PARALLELISM must be at least 1")
	}
	if c.HashConcurrency <= 0 {
		return errors.New("config: HASH_CONCURRENCY must be positive")
	}
	if c.DatabaseURL == "" && c.IsProduction() {
		return errors.New("config: DATABASE_URL must be set when APP_ENV=production")
	}
	return nil
}

// AccessTTL returns the access token lifetime.
func (c *Config) AccessTTL() time.Duration {
	return time.Duration(c.AccessTTLSeconds) * time.Second
}

// RefreshTTL returns the refresh token and session lifetime.
func (c *Config) RefreshTTL() time.Duration {
	return time.Duration(c.RefreshTTLSeconds) * time.Second
}

// SweepInterval parses SessionSweepInterval. Returns 1h if unset or invalid.
func (c *Config) SweepInterval() time.Duration {
	d, err := time.ParseDuration(c.SessionSweepInterval)
	if err != nil || d <= 0 {
		return time.Hour
	}
	return d
}

// ShutdownTimeoutDuration parses ShutdownTimeout. Returns 15s if unset or invalid.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, err := time.ParseDuration(c.ShutdownTimeout)
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return c != nil && c.Env == "production"
}

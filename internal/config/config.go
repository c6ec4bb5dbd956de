// Package config loads service configuration from the environment, with an
// optional .env file for local development.
package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	apperrors "github.com/OksanaKushniaryk/wellness-meter/internal/errors"
)

// Config holds every runtime setting the service reads.
type Config struct {
	Port     string
	GinMode  string
	LogLevel string
	DataDir  string

	RedisURL string

	// Reference wellness API used by the verify endpoint. Optional: when the
	// base URL is empty the endpoint responds 503.
	BackendBaseURL  string
	BackendEmail    string
	BackendPassword string

	SessionSecret string

	IPRateLimitPerMin int
	FreeWeeklyQuota   int

	RetentionDays int

	CacheTTL       time.Duration
	RequestTimeout time.Duration

	MetricsUser string
	MetricsPass string

	AllowedOrigins []string
}

const defaultSessionSecret = "dev-session-secret-change-in-production"

// Load reads the optional .env file, then the environment, and validates the
// result. Missing .env is fine; invalid values are not.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using system environment")
	}

	cfg := &Config{
		Port:     getEnvOrDefault("PORT", "8080"),
		GinMode:  getEnvOrDefault("GIN_MODE", "release"),
		LogLevel: getEnvOrDefault("LOG_LEVEL", "info"),
		DataDir:  getEnvOrDefault("DATA_DIR", "./data"),

		RedisURL: getEnvOrDefault("REDIS_URL", "redis://localhost:6379"),

		BackendBaseURL:  os.Getenv("WELLNESS_API_URL"),
		BackendEmail:    os.Getenv("WELLNESS_API_EMAIL"),
		BackendPassword: os.Getenv("WELLNESS_API_PASSWORD"),

		SessionSecret: getEnvOrDefault("SESSION_SECRET", defaultSessionSecret),

		IPRateLimitPerMin: getEnvInt("IP_RATE_LIMIT_PER_MIN", 60),
		FreeWeeklyQuota:   getEnvInt("FREE_WEEKLY_QUOTA", 5),

		RetentionDays: getEnvInt("RETENTION_DAYS", 90),

		CacheTTL:       getEnvDuration("CACHE_TTL", 5*time.Minute),
		RequestTimeout: getEnvDuration("REQUEST_TIMEOUT", 30*time.Second),

		MetricsUser: getEnvOrDefault("METRICS_USER", "metrics"),
		MetricsPass: os.Getenv("METRICS_PASS"),

		AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// DatabasePath is the sqlite file location under the data directory.
func (c *Config) DatabasePath() string {
	return c.DataDir + "/wellness.db"
}

// BackendConfigured reports whether the reference API can be called.
func (c *Config) BackendConfigured() bool {
	return c.BackendBaseURL != "" && c.BackendEmail != "" && c.BackendPassword != ""
}

// SlogLevel parses LogLevel, falling back to info on anything unrecognized.
func (c *Config) SlogLevel() slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		slog.Warn("Unrecognized LOG_LEVEL, using info", "value", c.LogLevel)
		return slog.LevelInfo
	}
	return level
}

func (c *Config) validate() error {
	if _, err := strconv.Atoi(c.Port); err != nil {
		return apperrors.NewConfigurationError("PORT must be numeric", err)
	}
	if c.IPRateLimitPerMin < 1 {
		return apperrors.NewConfigurationError("IP_RATE_LIMIT_PER_MIN must be at least 1", nil)
	}
	if c.FreeWeeklyQuota < 1 {
		return apperrors.NewConfigurationError("FREE_WEEKLY_QUOTA must be at least 1", nil)
	}
	if c.RetentionDays < 1 {
		return apperrors.NewConfigurationError("RETENTION_DAYS must be at least 1", nil)
	}
	if c.GinMode == "release" && c.SessionSecret == defaultSessionSecret {
		slog.Warn("SESSION_SECRET is the development default; set a real secret in production")
	}
	return nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		slog.Warn("Ignoring non-numeric environment value", "key", key, "value", value)
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		slog.Warn("Ignoring unparsable duration", "key", key, "value", value)
		return defaultValue
	}
	return d
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}

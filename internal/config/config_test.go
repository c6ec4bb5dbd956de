package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "./data", cfg.DataDir)
	assert.Equal(t, "./data/wellness.db", cfg.DatabasePath())
	assert.Equal(t, 60, cfg.IPRateLimitPerMin)
	assert.Equal(t, 5, cfg.FreeWeeklyQuota)
	assert.Equal(t, 90, cfg.RetentionDays)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.False(t, cfg.BackendConfigured())
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("FREE_WEEKLY_QUOTA", "12")
	t.Setenv("CACHE_TTL", "90s")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example.com, https://b.example.com")
	t.Setenv("WELLNESS_API_URL", "https://api.example.com")
	t.Setenv("WELLNESS_API_EMAIL", "svc@example.com")
	t.Setenv("WELLNESS_API_PASSWORD", "hunter2")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 12, cfg.FreeWeeklyQuota)
	assert.Equal(t, 90*time.Second, cfg.CacheTTL)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.AllowedOrigins)
	assert.True(t, cfg.BackendConfigured())
}

func TestLoadRejectsBadPort(t *testing.T) {
	t.Setenv("PORT", "not-a-port")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadRejectsZeroQuota(t *testing.T) {
	t.Setenv("FREE_WEEKLY_QUOTA", "0")

	_, err := Load()
	assert.Error(t, err)
}

func TestInvalidNumericFallsBackToDefault(t *testing.T) {
	t.Setenv("RETENTION_DAYS", "ninety")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 90, cfg.RetentionDays)
}

func TestBackendConfiguredNeedsAllThree(t *testing.T) {
	t.Setenv("WELLNESS_API_URL", "https://api.example.com")
	t.Setenv("WELLNESS_API_EMAIL", "svc@example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.BackendConfigured())
}

func TestSlogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, slog.LevelDebug, cfg.SlogLevel())

	// Unknown values fall back rather than fail startup
	cfg.LogLevel = "chatty"
	assert.Equal(t, slog.LevelInfo, cfg.SlogLevel())
}

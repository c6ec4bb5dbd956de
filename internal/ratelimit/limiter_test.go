package ratelimit

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllowBlocksPastLimit(t *testing.T) {
	rl := newFallbackLimiter(t, nil)
	ctx := context.Background()
	window := Rate{Limit: 5, Period: time.Minute}

	for i := 0; i < 5; i++ {
		result, err := rl.Allow(ctx, "session:abc", window)
		require.NoError(t, err)
		assert.True(t, result.Allowed, "request %d", i+1)
		assert.Equal(t, 5, result.Limit)
	}

	blocked, err := rl.Allow(ctx, "session:abc", window)
	require.NoError(t, err)
	assert.False(t, blocked.Allowed)
	assert.Greater(t, blocked.RetryAfter, time.Duration(0))
}

func TestAllowRefillMargin(t *testing.T) {
	rl := newFallbackLimiter(t, nil)
	ctx := context.Background()

	// A one-second window refills while the loop runs, so the admitted
	// count lands a little above the nominal limit
	admitted := 0
	for i := 0; i < 15; i++ {
		result, err := rl.Allow(ctx, "session:rapid", Rate{Limit: 5, Period: time.Second})
		require.NoError(t, err)
		if result.Allowed {
			admitted++
		}
	}

	assert.GreaterOrEqual(t, admitted, 5)
	assert.LessOrEqual(t, admitted, 12)
}

func TestAllowIPBurstHeadroom(t *testing.T) {
	rl := newFallbackLimiter(t, func(cfg *Config) { cfg.IPLimit = 5 })
	ctx := context.Background()

	// The per-IP limiter applies the burst multiplier: 5 * 2 = 10
	admitted := 0
	for i := 0; i < 12; i++ {
		result, err := rl.AllowIP(ctx, "198.51.100.50")
		require.NoError(t, err)
		if result.Allowed {
			admitted++
		}
	}

	assert.GreaterOrEqual(t, admitted, 10)
	assert.LessOrEqual(t, admitted, 11)
}

func TestAllowKeysAreIndependent(t *testing.T) {
	rl := newFallbackLimiter(t, nil)
	ctx := context.Background()
	window := Rate{Limit: 3, Period: time.Minute}

	for _, key := range []string{"session:a", "session:b", "session:c"} {
		for i := 0; i < 3; i++ {
			result, err := rl.Allow(ctx, key, window)
			require.NoError(t, err)
			assert.True(t, result.Allowed, "%s request %d", key, i+1)
		}

		blocked, err := rl.Allow(ctx, key, window)
		require.NoError(t, err)
		assert.False(t, blocked.Allowed, "%s should be exhausted", key)
	}
}

func TestStatsShape(t *testing.T) {
	rl := newFallbackLimiter(t, nil)
	_, _ = rl.Allow(context.Background(), "session:stats", Rate{Limit: 5, Period: time.Minute})

	stats := rl.GetStats()
	assert.Equal(t, false, stats["redis_enabled"])
	assert.Equal(t, true, stats["fallback_enabled"])
	assert.Equal(t, 1, stats["fallback_limiters"])

	cfg, ok := stats["config"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 60, cfg["ip_limit_per_min"])
	assert.Equal(t, 5, cfg["user_limit_per_week"])
}

func TestFallbackSweep(t *testing.T) {
	// The hour-long interval keeps the background sweep out of the test
	rl := newFallbackLimiter(t, func(cfg *Config) { cfg.CleanupInterval = time.Hour })
	ctx := context.Background()
	window := Rate{Limit: 5, Period: time.Minute}

	t.Run("small maps survive", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			_, _ = rl.Allow(ctx, fmt.Sprintf("sweep:small:%d", i), window)
		}
		rl.cleanup()
		assert.Equal(t, 3, rl.GetStats()["fallback_limiters"])
	})

	t.Run("oversized maps are dropped", func(t *testing.T) {
		for i := 0; i < 1001; i++ {
			_, _ = rl.Allow(ctx, fmt.Sprintf("sweep:big:%d", i), window)
		}
		rl.cleanup()
		assert.Equal(t, 0, rl.GetStats()["fallback_limiters"])
	})
}

func TestAllowConcurrentCallers(t *testing.T) {
	rl := newFallbackLimiter(t, nil)
	ctx := context.Background()
	window := Rate{Limit: 100, Period: time.Second}

	done := make(chan struct{}, 50)
	for i := 0; i < 50; i++ {
		go func() {
			defer func() { done <- struct{}{} }()
			for j := 0; j < 10; j++ {
				_, err := rl.Allow(ctx, "session:shared", window)
				assert.NoError(t, err)
			}
		}()
	}
	for i := 0; i < 50; i++ {
		<-done
	}
}

func TestAllowWithCancelledContext(t *testing.T) {
	rl := newFallbackLimiter(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// The in-memory path never touches the context
	result, err := rl.Allow(ctx, "session:cancelled", Rate{Limit: 5, Period: time.Minute})
	require.NoError(t, err)
	assert.True(t, result.Allowed)
}

func TestAllowAcrossPeriods(t *testing.T) {
	rl := newFallbackLimiter(t, nil)
	ctx := context.Background()

	for _, tc := range []struct {
		name   string
		window Rate
	}{
		{"per second", Rate{Limit: 10, Period: time.Second}},
		{"per minute", Rate{Limit: 60, Period: time.Minute}},
		{"per hour", Rate{Limit: 1000, Period: time.Hour}},
		{"per week", Rate{Limit: 5, Period: 7 * 24 * time.Hour}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			result, err := rl.Allow(ctx, "period:"+tc.name, tc.window)
			require.NoError(t, err)
			assert.True(t, result.Allowed)
			assert.Equal(t, tc.window.Limit, result.Limit)
		})
	}
}

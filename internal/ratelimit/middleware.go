package ratelimit

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/OksanaKushniaryk/wellness-meter/internal/database"
	"github.com/gin-gonic/gin"
)

// scoresPath is the quota-metered endpoint
const scoresPath = "/api/v1/scores"

// limitHeaders advertises the window state on the response.
func limitHeaders(c *gin.Context, prefix string, result *Result) {
	c.Header(prefix+"-Limit", strconv.Itoa(result.Limit))
	c.Header(prefix+"-Remaining", strconv.Itoa(result.Remaining))
	c.Header(prefix+"-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

// reject sends the 429 and stops the chain.
func reject(c *gin.Context, result *Result, body gin.H) {
	c.Header("Retry-After", strconv.Itoa(int(result.RetryAfter.Seconds())))
	c.JSON(http.StatusTooManyRequests, body)
	c.Abort()
}

// LimitByIP enforces the per-minute request limit for each client address.
// Limiter failures fail open: an outage in the rate limiting tier must not
// take the API down with it.
func (rl *RateLimiter) LimitByIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()

		result, err := rl.AllowIP(c.Request.Context(), ip)
		if err != nil {
			slog.Error("Rate limit check failed", "ip", ip, "error", err)
			c.Next()
			return
		}

		limitHeaders(c, "X-RateLimit", result)
		if result.Allowed {
			c.Next()
			return
		}

		if rl.metrics != nil {
			rl.metrics.IncrementRateLimitIPBlock()
		}
		reject(c, result, gin.H{
			"error":       "rate limit exceeded for IP",
			"message":     fmt.Sprintf("You have exceeded the rate limit of %d requests per minute", result.Limit),
			"retry_after": int(result.RetryAfter.Seconds()),
			"reset_at":    result.ResetAt.Unix(),
		})
	}
}

// SyncUserQuota mirrors each metered score computation into the shared
// limiter. The database decides entitlement before this runs; recording the
// spend here keeps every replica's view of the weekly count in step when
// Redis is configured, and stops a caller whose database replica lags.
func (rl *RateLimiter) SyncUserQuota() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method != http.MethodPost || c.Request.URL.Path != scoresPath {
			c.Next()
			return
		}

		userID := c.GetString("user_id")
		if userID == "" {
			c.Next()
			return
		}

		if stats, ok := c.Get("user_stats"); ok {
			if usage, ok := stats.(*database.UsageStats); ok && usage.IsUnlimited {
				c.Header("X-RateLimit-User-Limit", "unlimited")
				c.Header("X-RateLimit-User-Remaining", "unlimited")
				c.Next()
				return
			}
		}

		result, err := rl.AllowUser(c.Request.Context(), userID)
		if err != nil {
			slog.Error("User rate limit check failed", "user_id", truncateID(userID), "error", err)
			c.Next()
			return
		}

		limitHeaders(c, "X-RateLimit-User", result)
		if result.Allowed {
			c.Next()
			return
		}

		if rl.metrics != nil {
			rl.metrics.IncrementRateLimitUserBlock()
		}
		reject(c, result, gin.H{
			"error":              "weekly score limit exceeded",
			"message":            fmt.Sprintf("You have used all %d free score computations this week", result.Limit),
			"remaining_requests": result.Remaining,
			"reset_at":           result.ResetAt.Unix(),
			"retry_after":        int(result.RetryAfter.Seconds()),
		})
	}
}

// LimitEndpoint applies a tighter per-minute, per-address window to one
// route. Used where a single endpoint is disproportionately expensive or
// abusable compared to the global IP limit.
func (rl *RateLimiter) LimitEndpoint(endpoint string, perMinute int) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		key := fmt.Sprintf("ratelimit:endpoint:%s:%s", endpoint, ip)

		result, err := rl.Allow(c.Request.Context(), key, Rate{Limit: perMinute, Period: time.Minute})
		if err != nil {
			slog.Error("Endpoint rate limit check failed", "endpoint", endpoint, "ip", ip, "error", err)
			c.Next()
			return
		}

		limitHeaders(c, "X-RateLimit-Endpoint", result)
		if result.Allowed {
			c.Next()
			return
		}

		if rl.metrics != nil {
			rl.metrics.IncrementRateLimitEndpoint(endpoint)
		}
		reject(c, result, gin.H{
			"error":       fmt.Sprintf("rate limit exceeded for endpoint: %s", endpoint),
			"message":     fmt.Sprintf("You have exceeded the rate limit of %d requests per minute for this endpoint", perMinute),
			"retry_after": int(result.RetryAfter.Seconds()),
		})
	}
}

package ratelimit

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/OksanaKushniaryk/wellness-meter/internal/database"
)

// UsageLookup resolves a user's weekly score quota usage.
type UsageLookup func(userID string) (*database.UsageStats, error)

// HandleRateLimitStatus reports the configured limits for the requesting IP
// and, when the session middleware proved an identity, the caller's weekly
// quota usage.
func (rl *RateLimiter) HandleRateLimitStatus(lookup UsageLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		status := gin.H{
			"ip": c.ClientIP(),
			"limits": gin.H{
				"ip_per_minute": gin.H{
					"limit":  rl.config.IPLimit,
					"period": "1 minute",
				},
				"user_per_week": gin.H{
					"limit":  rl.config.UserLimit,
					"period": "1 week",
				},
			},
			"timestamp": time.Now().Format(time.RFC3339),
		}

		userID := c.GetString("auth_user_id")
		if userID != "" && lookup != nil {
			status["user_id"] = userID
			if usage, err := lookup(userID); err == nil {
				remaining := rl.config.UserLimit - usage.RequestsThisWeek
				if remaining < 0 {
					remaining = 0
				}

				usageInfo := gin.H{
					"requests_this_week": usage.RequestsThisWeek,
					"remaining":          remaining,
					"is_unlimited":       usage.IsUnlimited,
					"week_start":         usage.WeekStart.Format("2006-01-02"),
					"week_end":           usage.WeekEnd.Format("2006-01-02"),
				}
				if usage.IsUnlimited {
					usageInfo["remaining"] = "unlimited"
				}
				status["usage"] = usageInfo
			}
		}

		c.JSON(http.StatusOK, status)
	}
}

// HandleAdminRateLimits returns comprehensive rate limit information
func (rl *RateLimiter) HandleAdminRateLimits() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()

		keyCount, err := rl.GetKeyCount(ctx)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error": "failed to get key count",
			})
			return
		}

		var rateLimitMetrics map[string]interface{}
		if rl.metrics != nil {
			rateLimitMetrics = rl.metrics.GetRateLimitStats()
		}

		c.JSON(http.StatusOK, gin.H{
			"total_keys":    keyCount,
			"limiter_stats": rl.GetStats(),
			"metrics":       rateLimitMetrics,
			"timestamp":     time.Now().Format(time.RFC3339),
		})
	}
}

// HandleAdminResetRateLimit clears a user's consumed quota
func (rl *RateLimiter) HandleAdminResetRateLimit() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		userID := c.Param("userID")

		if userID == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "user ID is required",
			})
			return
		}

		if err := rl.ResetUser(ctx, userID); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "failed to reset rate limit",
				"details": err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":   "rate limit reset successfully",
			"user_id":   userID,
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}

// HandleAdminInvalidateIP invalidates all rate limit state for an IP
func (rl *RateLimiter) HandleAdminInvalidateIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		ip := c.Param("ip")

		if ip == "" {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "IP address is required",
			})
			return
		}

		if err := rl.InvalidateIP(ctx, ip); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{
				"error":   "failed to invalidate IP rate limits",
				"details": err.Error(),
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message":   "IP rate limits invalidated successfully",
			"ip":        ip,
			"timestamp": time.Now().Format(time.RFC3339),
		})
	}
}

// HandleAdminRateLimitMetrics returns detailed rate limiting metrics
func (rl *RateLimiter) HandleAdminRateLimitMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		if rl.metrics == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": "metrics not configured",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"rate_limit_metrics": rl.metrics.GetRateLimitStats(),
			"timestamp":          time.Now().Format(time.RFC3339),
		})
	}
}

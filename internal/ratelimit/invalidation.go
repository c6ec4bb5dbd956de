package ratelimit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"golang.org/x/time/rate"
)

// InvalidateUser removes all rate limit keys for a specific user.
// Used when a user's quota is reset by support or their data is deleted.
func (rl *RateLimiter) InvalidateUser(ctx context.Context, userID string) error {
	if !rl.redisClient.IsEnabled() {
		prefix := fmt.Sprintf("ratelimit:user:%s:", userID)
		removed := rl.deleteFallbackByPrefix(prefix)

		slog.Info("Invalidated user rate limits (in-memory)", "user_id", truncateID(userID), "count", removed)
		return nil
	}

	// Delete all keys matching the user pattern
	pattern := fmt.Sprintf("ratelimit:user:%s:*", userID)
	return rl.deleteByPattern(ctx, pattern)
}

// InvalidateIP removes all rate limit keys for a specific IP address.
// Used for manual IP ban/unban or limit resets.
func (rl *RateLimiter) InvalidateIP(ctx context.Context, ip string) error {
	if !rl.redisClient.IsEnabled() {
		prefix := fmt.Sprintf("ratelimit:ip:%s", ip)
		removed := rl.deleteFallbackByPrefix(prefix)

		slog.Info("Invalidated IP rate limits (in-memory)", "ip", ip, "count", removed)
		return nil
	}

	// Delete all keys matching the IP pattern
	pattern := fmt.Sprintf("ratelimit:ip:%s*", ip)
	return rl.deleteByPattern(ctx, pattern)
}

// ResetUser immediately clears a user's limit windows (support action)
func (rl *RateLimiter) ResetUser(ctx context.Context, userID string) error {
	slog.Info("Resetting rate limits for user", "user_id", truncateID(userID))
	return rl.InvalidateUser(ctx, userID)
}

// InvalidateAll removes all rate limit keys (emergency use only)
func (rl *RateLimiter) InvalidateAll(ctx context.Context) error {
	if !rl.redisClient.IsEnabled() {
		rl.fallbackMutex.Lock()
		defer rl.fallbackMutex.Unlock()

		count := len(rl.fallbackLimiters)
		rl.fallbackLimiters = make(map[string]*rate.Limiter)

		slog.Warn("Invalidated all rate limits (in-memory)", "count", count)
		return nil
	}

	// Delete all rate limit keys
	pattern := "ratelimit:*"
	slog.Warn("Invalidating ALL rate limits", "pattern", pattern)
	return rl.deleteByPattern(ctx, pattern)
}

// deleteFallbackByPrefix removes in-memory limiters whose key starts with prefix
func (rl *RateLimiter) deleteFallbackByPrefix(prefix string) int {
	rl.fallbackMutex.Lock()
	defer rl.fallbackMutex.Unlock()

	removed := 0
	for key := range rl.fallbackLimiters {
		if strings.HasPrefix(key, prefix) {
			delete(rl.fallbackLimiters, key)
			removed++
		}
	}

	return removed
}

// deleteByPattern deletes all Redis keys matching a pattern
func (rl *RateLimiter) deleteByPattern(ctx context.Context, pattern string) error {
	client := rl.redisClient.GetClient()

	// Use SCAN to find matching keys (more efficient than KEYS)
	var cursor uint64
	var deletedCount int

	for {
		keys, nextCursor, err := client.Scan(ctx, cursor, pattern, 100).Result()
		if err != nil {
			return fmt.Errorf("failed to scan keys: %w", err)
		}

		// Delete found keys
		if len(keys) > 0 {
			deleted, err := client.Del(ctx, keys...).Result()
			if err != nil {
				return fmt.Errorf("failed to delete keys: %w", err)
			}
			deletedCount += int(deleted)
		}

		cursor = nextCursor
		if cursor == 0 {
			break
		}
	}

	slog.Info("Deleted rate limit keys by pattern", "pattern", pattern, "count", deletedCount)
	return nil
}

// truncateID shortens identifiers for log lines
func truncateID(id string) string {
	if len(id) > 8 {
		return id[:8] + "..."
	}
	return id
}

package privacy

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"time"

	"github.com/OksanaKushniaryk/wellness-meter/internal/database"
	"github.com/OksanaKushniaryk/wellness-meter/internal/errors"
	"github.com/OksanaKushniaryk/wellness-meter/internal/history"
	"github.com/OksanaKushniaryk/wellness-meter/internal/ratelimit"
)

// Service handles data anonymization, deletion requests, and retention
type Service struct {
	repo          *database.Repository
	summaries     *history.Service
	limiter       *ratelimit.RateLimiter
	retentionDays int
}

// NewService creates a privacy service. The limiter may be nil when rate
// limiting is disabled.
func NewService(repo *database.Repository, summaries *history.Service, limiter *ratelimit.RateLimiter, retentionDays int) *Service {
	return &Service{
		repo:          repo,
		summaries:     summaries,
		limiter:       limiter,
		retentionDays: retentionDays,
	}
}

// AnonymizeSubject hashes an identifying value (an IP address) so it can be
// stored without keeping the raw identifier
func AnonymizeSubject(value string) string {
	hash := sha256.Sum256([]byte(value))
	return hex.EncodeToString(hash[:])
}

// DeleteUserData removes everything stored about a user: daily scores,
// request logs, the user row, cached summaries, and rate limit state
func (s *Service) DeleteUserData(ctx context.Context, userID string) error {
	slog.Info("Deleting all stored user data", "user_id", truncateID(userID))

	if err := s.repo.DeleteUserData(userID); err != nil {
		return fmt.Errorf("failed to delete user data: %w", err)
	}

	s.summaries.InvalidateUser(userID)

	if s.limiter != nil {
		if err := s.limiter.InvalidateUser(ctx, userID); err != nil {
			// Rate limit keys expire on their own; deletion already succeeded
			slog.Warn("Failed to clear rate limit state", "user_id", truncateID(userID), "error", err)
		}
	}

	slog.Info("User data deletion completed", "user_id", truncateID(userID))
	return nil
}

// CleanupResult reports what one retention pass removed
type CleanupResult struct {
	ScoresDeleted      int64 `json:"scores_deleted"`
	RequestLogsDeleted int64 `json:"request_logs_deleted"`
	SummariesDeleted   int64 `json:"summaries_deleted"`
}

// CleanupExpiredData removes scores and request logs older than the
// retention window, plus expired cached summaries
func (s *Service) CleanupExpiredData() (*CleanupResult, error) {
	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)
	result := &CleanupResult{}

	scores, err := s.repo.PurgeScoresBefore(cutoff.Format("2006-01-02"))
	if err != nil {
		return nil, fmt.Errorf("failed to purge old scores: %w", err)
	}
	result.ScoresDeleted = scores

	logs, err := s.repo.PurgeRequestLogsBefore(cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to purge old request logs: %w", err)
	}
	result.RequestLogsDeleted = logs

	summaries, err := s.summaries.PurgeExpired()
	if err != nil {
		return nil, fmt.Errorf("failed to purge expired summaries: %w", err)
	}
	result.SummariesDeleted = summaries

	if result.ScoresDeleted > 0 || result.RequestLogsDeleted > 0 || result.SummariesDeleted > 0 {
		slog.Info("Retention cleanup completed",
			"cutoff", cutoff.Format("2006-01-02"),
			"scores_deleted", result.ScoresDeleted,
			"request_logs_deleted", result.RequestLogsDeleted,
			"summaries_deleted", result.SummariesDeleted,
		)
	}

	return result, nil
}

// StartRetentionLoop runs CleanupExpiredData on an interval until the
// context is cancelled
func (s *Service) StartRetentionLoop(ctx context.Context, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				errors.SafeExecute(func() {
					if _, err := s.CleanupExpiredData(); err != nil {
						slog.Error("Retention cleanup failed", "error", err)
					}
				}, func(r interface{}) {
					slog.Error("Retention cleanup panicked", "panic", r)
				})
			}
		}
	}()
}

// RetentionInfo describes the retention and anonymization policy
func (s *Service) RetentionInfo() map[string]interface{} {
	return map[string]interface{}{
		"score_retention_days":       s.retentionDays,
		"request_log_retention_days": s.retentionDays,
		"summary_cache_ttl_minutes":  15,
		"anonymization_method":       "SHA-256",
		"identifier_storage":         "hashed",
		"data_deletion_endpoint":     "DELETE /api/v1/data",
	}
}

func truncateID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8] + "..."
}

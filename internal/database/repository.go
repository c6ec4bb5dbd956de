package database

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Repository handles database operations
type Repository struct {
	db *DB
}

// NewRepository creates a new repository
func NewRepository(db *DB) *Repository {
	return &Repository{db: db}
}

// GetOrCreateUser gets an existing user or creates a new one based on IP address
func (r *Repository) GetOrCreateUser(ipAddress, userAgent string) (*User, error) {
	// Try to find existing user by IP
	var user User
	err := r.db.QueryRow(`
		SELECT id, ip_address, user_agent, is_unlimited, created_at, updated_at
		FROM users
		WHERE ip_address = ?
		ORDER BY created_at DESC
		LIMIT 1
	`, ipAddress).Scan(
		&user.ID, &user.IPAddress, &user.UserAgent,
		&user.IsUnlimited, &user.CreatedAt, &user.UpdatedAt,
	)

	if err == nil {
		// User exists, update last seen
		_, err = r.db.Exec(`
			UPDATE users SET updated_at = ?, user_agent = ? WHERE id = ?
		`, time.Now(), userAgent, user.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to update user: %w", err)
		}
		return &user, nil
	}

	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to query user: %w", err)
	}

	// User doesn't exist, create new one
	user = *NewUser(ipAddress, userAgent)
	_, err = r.db.Exec(`
		INSERT INTO users (id, ip_address, user_agent, is_unlimited, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, user.ID, user.IPAddress, user.UserAgent, user.IsUnlimited, user.CreatedAt, user.UpdatedAt)

	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &user, nil
}

// LogRequest logs an API request
func (r *Repository) LogRequest(userID, ipAddress, endpoint, method, userAgent string) error {
	reqLog := NewRequestLog(userID, ipAddress, endpoint, method, userAgent)

	stmt, err := r.db.GetPreparedStatement("insert_request_log")
	if err != nil {
		return err
	}

	_, err = stmt.Exec(reqLog.ID, reqLog.UserID, reqLog.IPAddress, reqLog.Endpoint,
		reqLog.Method, reqLog.UserAgent, reqLog.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to log request: %w", err)
	}

	return nil
}

// GetWeeklyUsage gets usage statistics for a user for the current week
func (r *Repository) GetWeeklyUsage(userID string) (*UsageStats, error) {
	now := time.Now()

	// Get the start of the current week (Monday)
	weekStart := now.AddDate(0, 0, -int(now.Weekday()-time.Monday))
	if now.Weekday() == time.Sunday {
		weekStart = weekStart.AddDate(0, 0, -7)
	}
	weekStart = time.Date(weekStart.Year(), weekStart.Month(), weekStart.Day(), 0, 0, 0, 0, weekStart.Location())

	weekEnd := weekStart.AddDate(0, 0, 7)

	var requestCount int
	var isUnlimited bool

	// Get user quota status
	err := r.db.QueryRow(`SELECT is_unlimited FROM users WHERE id = ?`, userID).Scan(&isUnlimited)
	if err != nil {
		return nil, fmt.Errorf("failed to get user quota status: %w", err)
	}

	// Count requests for this week
	err = r.db.QueryRow(`
		SELECT COUNT(*) FROM request_logs
		WHERE user_id = ? AND created_at >= ? AND created_at < ?
	`, userID, weekStart, weekEnd).Scan(&requestCount)

	if err != nil {
		return nil, fmt.Errorf("failed to count requests: %w", err)
	}

	return &UsageStats{
		UserID:           userID,
		RequestsThisWeek: requestCount,
		WeekStart:        weekStart,
		WeekEnd:          weekEnd,
		IsUnlimited:      isUnlimited,
	}, nil
}

// CanMakeRequest checks if a user can make another request based on their weekly usage
func (r *Repository) CanMakeRequest(userID string, weeklyLimit int) (bool, *UsageStats, error) {
	usage, err := r.GetWeeklyUsage(userID)
	if err != nil {
		return false, nil, err
	}

	// Unlimited users bypass the weekly quota
	if usage.IsUnlimited {
		return true, usage, nil
	}

	return usage.RequestsThisWeek < weeklyLimit, usage, nil
}

// UpsertDailyScore inserts or updates the stored scores for one user-day
func (r *Repository) UpsertDailyScore(score *DailyScore) error {
	stmt, err := r.db.GetPreparedStatement("upsert_daily_score")
	if err != nil {
		return err
	}

	score.UpdatedAt = time.Now()
	_, err = stmt.Exec(
		score.ID, score.UserID, score.Date,
		score.SleepScore, score.ActivityScore, score.StressScore,
		score.EnergyDelta, score.EnergyCredit, score.Breakdown,
		score.CreatedAt, score.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert daily score: %w", err)
	}

	return nil
}

// GetDailyScore returns the stored scores for one user-day, or nil when absent
func (r *Repository) GetDailyScore(userID, date string) (*DailyScore, error) {
	stmt, err := r.db.GetPreparedStatement("get_daily_score")
	if err != nil {
		return nil, err
	}

	score, err := scanDailyScore(stmt.QueryRow(userID, date))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get daily score: %w", err)
	}

	return score, nil
}

// GetDailyScoresRange returns stored scores for a user between two dates
// (inclusive), ordered oldest first.
func (r *Repository) GetDailyScoresRange(userID, from, to string) ([]*DailyScore, error) {
	stmt, err := r.db.GetPreparedStatement("get_daily_scores_range")
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(userID, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query daily scores: %w", err)
	}
	defer rows.Close()

	var scores []*DailyScore
	for rows.Next() {
		score, err := scanDailyScore(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily score: %w", err)
		}
		scores = append(scores, score)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate daily scores: %w", err)
	}

	return scores, nil
}

// GetRecentEnergyDeltas returns up to limit stored energy deltas for days
// strictly before the given date, oldest first. Used to rebuild the rolling
// delta history for credit and safe zone calculations.
func (r *Repository) GetRecentEnergyDeltas(userID, beforeDate string, limit int) ([]float64, error) {
	stmt, err := r.db.GetPreparedStatement("get_recent_deltas")
	if err != nil {
		return nil, err
	}

	rows, err := stmt.Query(userID, beforeDate, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query energy deltas: %w", err)
	}
	defer rows.Close()

	var deltas []float64
	for rows.Next() {
		var delta float64
		if err := rows.Scan(&delta); err != nil {
			return nil, fmt.Errorf("failed to scan energy delta: %w", err)
		}
		deltas = append(deltas, delta)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate energy deltas: %w", err)
	}

	// Query is newest-first; callers want chronological order
	for i, j := 0, len(deltas)-1; i < j; i, j = i+1, j-1 {
		deltas[i], deltas[j] = deltas[j], deltas[i]
	}

	return deltas, nil
}

// MostRecentScoreUser returns the user who stored the latest daily score,
// or empty when no scores exist
func (r *Repository) MostRecentScoreUser() (string, error) {
	var userID string
	err := r.db.QueryRow(`
		SELECT user_id FROM daily_scores
		ORDER BY date DESC, updated_at DESC
		LIMIT 1
	`).Scan(&userID)

	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to find most recent score user: %w", err)
	}

	return userID, nil
}

// GetCachedSummary returns unexpired cached summary data for a key
func (r *Repository) GetCachedSummary(cacheKey string) (string, bool, error) {
	var data string
	err := r.db.QueryRow(`
		SELECT cache_data FROM summary_cache
		WHERE cache_key = ? AND expires_at > ?
	`, cacheKey, time.Now()).Scan(&data)

	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to get cached summary: %w", err)
	}

	return data, true, nil
}

// SaveCachedSummary stores summary data under a key with a TTL
func (r *Repository) SaveCachedSummary(cacheKey, data string, ttl time.Duration) error {
	now := time.Now()
	_, err := r.db.Exec(`
		INSERT INTO summary_cache (id, cache_key, cache_data, expires_at, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			cache_data = excluded.cache_data,
			expires_at = excluded.expires_at
	`, uuid.New().String(), cacheKey, data, now.Add(ttl), now)

	if err != nil {
		return fmt.Errorf("failed to save cached summary: %w", err)
	}

	return nil
}

// PurgeExpiredSummaries removes summary cache rows past their expiry
func (r *Repository) PurgeExpiredSummaries() (int64, error) {
	result, err := r.db.Exec(`DELETE FROM summary_cache WHERE expires_at <= ?`, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to purge expired summaries: %w", err)
	}

	return result.RowsAffected()
}

// DeleteCachedSummaries removes cached summaries whose key starts with the
// given prefix
func (r *Repository) DeleteCachedSummaries(prefix string) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM summary_cache WHERE cache_key LIKE ? || '%'`, prefix)
	if err != nil {
		return 0, fmt.Errorf("failed to delete cached summaries: %w", err)
	}

	return result.RowsAffected()
}

// PurgeRequestLogsBefore removes request logs older than the cutoff
func (r *Repository) PurgeRequestLogsBefore(cutoff time.Time) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM request_logs WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to purge request logs: %w", err)
	}

	return result.RowsAffected()
}

// PurgeScoresBefore removes daily scores for days before the cutoff date
func (r *Repository) PurgeScoresBefore(date string) (int64, error) {
	result, err := r.db.Exec(`DELETE FROM daily_scores WHERE date < ?`, date)
	if err != nil {
		return 0, fmt.Errorf("failed to purge daily scores: %w", err)
	}

	return result.RowsAffected()
}

// DeleteUserData removes a user and everything stored about them
func (r *Repository) DeleteUserData(userID string) error {
	queries := []struct {
		name  string
		query string
	}{
		{"daily scores", `DELETE FROM daily_scores WHERE user_id = ?`},
		{"request logs", `DELETE FROM request_logs WHERE user_id = ?`},
		{"user", `DELETE FROM users WHERE id = ?`},
	}

	for _, q := range queries {
		if _, err := r.db.Exec(q.query, userID); err != nil {
			return fmt.Errorf("failed to delete %s: %w", q.name, err)
		}
	}

	return nil
}

// rowScanner covers both sql.Row and sql.Rows
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDailyScore(row rowScanner) (*DailyScore, error) {
	var score DailyScore
	var breakdown sql.NullString

	err := row.Scan(
		&score.ID, &score.UserID, &score.Date,
		&score.SleepScore, &score.ActivityScore, &score.StressScore,
		&score.EnergyDelta, &score.EnergyCredit, &breakdown,
		&score.CreatedAt, &score.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	score.Breakdown = breakdown.String
	return &score, nil
}

package privacy

import (
	"context"
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OksanaKushniaryk/wellness-meter/internal/database"
	"github.com/OksanaKushniaryk/wellness-meter/internal/history"
	"github.com/OksanaKushniaryk/wellness-meter/internal/monitoring"
	"github.com/OksanaKushniaryk/wellness-meter/internal/ratelimit"
)

func newTestRepository(t *testing.T) *database.Repository {
	t.Helper()

	db, err := database.NewDB(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return database.NewRepository(db)
}

func newTestLimiter(t *testing.T) *ratelimit.RateLimiter {
	t.Helper()

	redisClient, err := ratelimit.NewRedisClient("")
	require.NoError(t, err)

	limiter := ratelimit.NewRateLimiter(redisClient, ratelimit.DefaultConfig(), monitoring.NewMetrics())
	t.Cleanup(func() { _ = limiter.Close() })

	return limiter
}

func seedScore(t *testing.T, repo *database.Repository, userID, date string, sleep float64) {
	t.Helper()

	score := database.NewDailyScore(userID, date)
	score.SleepScore = &sleep
	require.NoError(t, repo.UpsertDailyScore(score))
}

func TestAnonymizeSubject(t *testing.T) {
	hash := AnonymizeSubject("203.0.113.5")

	assert.Len(t, hash, 64)
	assert.Regexp(t, regexp.MustCompile(`^[0-9a-f]{64}$`), hash)
	assert.Equal(t, hash, AnonymizeSubject("203.0.113.5"), "hashing must be deterministic")
	assert.NotEqual(t, hash, AnonymizeSubject("203.0.113.6"))
}

func TestDeleteUserData(t *testing.T) {
	repo := newTestRepository(t)
	summaries := history.NewServiceWithTTL(repo, time.Hour)
	svc := NewService(repo, summaries, newTestLimiter(t), 90)

	user, err := repo.GetOrCreateUser(AnonymizeSubject("203.0.113.60"), "test-agent")
	require.NoError(t, err)

	seedScore(t, repo, user.ID, "2026-08-17", 90)
	seedScore(t, repo, user.ID, "2026-08-18", 80)
	require.NoError(t, repo.LogRequest(user.ID, user.IPAddress, "/api/v1/scores", "POST", "test-agent"))

	// Populate the summary cache so deletion has something to invalidate
	now := time.Date(2026, 8, 22, 12, 0, 0, 0, time.UTC)
	cached, err := summaries.GetSummaryAt(user.ID, history.PeriodWeekly, now)
	require.NoError(t, err)
	require.Equal(t, 2, cached.Days)

	require.NoError(t, svc.DeleteUserData(context.Background(), user.ID))

	scores, err := repo.GetDailyScoresRange(user.ID, "2026-08-01", "2026-08-31")
	require.NoError(t, err)
	assert.Empty(t, scores)

	// The cached summary must not survive the deletion
	after, err := summaries.GetSummaryAt(user.ID, history.PeriodWeekly, now)
	require.NoError(t, err)
	assert.Equal(t, 0, after.Days)

	// The same subject now resolves to a brand new user
	recreated, err := repo.GetOrCreateUser(AnonymizeSubject("203.0.113.60"), "test-agent")
	require.NoError(t, err)
	assert.NotEqual(t, user.ID, recreated.ID)
}

func TestDeleteUserDataWithoutLimiter(t *testing.T) {
	repo := newTestRepository(t)
	svc := NewService(repo, history.NewServiceWithTTL(repo, time.Hour), nil, 90)

	user, err := repo.GetOrCreateUser("subject-a", "test-agent")
	require.NoError(t, err)

	assert.NoError(t, svc.DeleteUserData(context.Background(), user.ID))
}

func TestCleanupExpiredData(t *testing.T) {
	repo := newTestRepository(t)
	summaries := history.NewServiceWithTTL(repo, 10*time.Millisecond)
	svc := NewService(repo, summaries, nil, 30)

	user, err := repo.GetOrCreateUser("subject-b", "test-agent")
	require.NoError(t, err)

	oldDate := time.Now().AddDate(0, 0, -40).Format("2006-01-02")
	recentDate := time.Now().AddDate(0, 0, -1).Format("2006-01-02")
	seedScore(t, repo, user.ID, oldDate, 70)
	seedScore(t, repo, user.ID, recentDate, 85)

	// Cache a summary and let it expire
	_, err = summaries.GetSummary(user.ID, history.PeriodDaily)
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)

	result, err := svc.CleanupExpiredData()
	require.NoError(t, err)

	assert.Equal(t, int64(1), result.ScoresDeleted)
	assert.GreaterOrEqual(t, result.SummariesDeleted, int64(1))

	remaining, err := repo.GetDailyScoresRange(user.ID, "2000-01-01", "2100-01-01")
	require.NoError(t, err)
	require.Len(t, remaining, 1)
	assert.Equal(t, recentDate, remaining[0].Date)
}

func TestStartRetentionLoop(t *testing.T) {
	repo := newTestRepository(t)
	svc := NewService(repo, history.NewServiceWithTTL(repo, time.Hour), nil, 30)

	user, err := repo.GetOrCreateUser("subject-c", "test-agent")
	require.NoError(t, err)

	oldDate := time.Now().AddDate(0, 0, -60).Format("2006-01-02")
	seedScore(t, repo, user.ID, oldDate, 50)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	svc.StartRetentionLoop(ctx, 10*time.Millisecond)
	time.Sleep(60 * time.Millisecond)

	remaining, err := repo.GetDailyScoresRange(user.ID, "2000-01-01", "2100-01-01")
	require.NoError(t, err)
	assert.Empty(t, remaining)
}

func TestRetentionInfo(t *testing.T) {
	repo := newTestRepository(t)
	svc := NewService(repo, history.NewServiceWithTTL(repo, time.Hour), nil, 45)

	info := svc.RetentionInfo()
	assert.Equal(t, 45, info["score_retention_days"])
	assert.Equal(t, "SHA-256", info["anonymization_method"])
	assert.Equal(t, "hashed", info["identifier_storage"])
}

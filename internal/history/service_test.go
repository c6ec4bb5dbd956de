package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OksanaKushniaryk/wellness-meter/internal/database"
)

func newTestService(t *testing.T) (*Service, *database.Repository, string) {
	t.Helper()

	db, err := database.NewDB(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	repo := database.NewRepository(db)
	user, err := repo.GetOrCreateUser("203.0.113.50", "test-agent")
	require.NoError(t, err)

	return NewServiceWithTTL(repo, time.Hour), repo, user.ID
}

func seedScore(t *testing.T, repo *database.Repository, userID, date string, sleep, activity, stress, credit, delta *float64) {
	t.Helper()

	score := database.NewDailyScore(userID, date)
	score.SleepScore = sleep
	score.ActivityScore = activity
	score.StressScore = stress
	score.EnergyCredit = credit
	score.EnergyDelta = delta
	require.NoError(t, repo.UpsertDailyScore(score))
}

func floatPtr(v float64) *float64 { return &v }

func TestPeriodBounds(t *testing.T) {
	// 2026-08-22 is a Saturday
	saturday := time.Date(2026, 8, 22, 15, 30, 0, 0, time.UTC)

	tests := []struct {
		name          string
		period        string
		now           time.Time
		expectedStart string
		expectedEnd   string
		hasError      bool
	}{
		{"daily", PeriodDaily, saturday, "2026-08-22", "2026-08-22", false},
		{"weekly from saturday", PeriodWeekly, saturday, "2026-08-17", "2026-08-23", false},
		{"weekly from sunday", PeriodWeekly, time.Date(2026, 8, 23, 9, 0, 0, 0, time.UTC), "2026-08-17", "2026-08-23", false},
		{"weekly from monday", PeriodWeekly, time.Date(2026, 8, 17, 0, 0, 0, 0, time.UTC), "2026-08-17", "2026-08-23", false},
		{"monthly", PeriodMonthly, time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC), "2026-02-01", "2026-02-28", false},
		{"monthly december", PeriodMonthly, time.Date(2026, 12, 31, 23, 0, 0, 0, time.UTC), "2026-12-01", "2026-12-31", false},
		{"invalid period", "yearly", saturday, "", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := periodBounds(tt.period, tt.now)
			if tt.hasError {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expectedStart, start)
			assert.Equal(t, tt.expectedEnd, end)
		})
	}
}

func TestGetSummaryWeekly(t *testing.T) {
	svc, repo, userID := newTestService(t)

	seedScore(t, repo, userID, "2026-08-17", floatPtr(90), floatPtr(80), floatPtr(70), floatPtr(60), nil)
	seedScore(t, repo, userID, "2026-08-18", floatPtr(95), floatPtr(85), nil, nil, nil)
	seedScore(t, repo, userID, "2026-08-19", floatPtr(40), nil, nil, nil, floatPtr(-200))

	// Outside the week, must not contribute
	seedScore(t, repo, userID, "2026-08-10", floatPtr(10), nil, nil, nil, nil)

	now := time.Date(2026, 8, 22, 15, 30, 0, 0, time.UTC)
	summary, err := svc.GetSummaryAt(userID, PeriodWeekly, now)
	require.NoError(t, err)

	assert.Equal(t, PeriodWeekly, summary.Period)
	assert.Equal(t, "2026-08-17", summary.PeriodStart)
	assert.Equal(t, "2026-08-23", summary.PeriodEnd)
	assert.Equal(t, 3, summary.Days)

	require.NotNil(t, summary.Averages.Sleep)
	assert.Equal(t, 75.0, *summary.Averages.Sleep)
	require.NotNil(t, summary.Averages.Activity)
	assert.Equal(t, 82.5, *summary.Averages.Activity)
	require.NotNil(t, summary.Averages.Stress)
	assert.Equal(t, 70.0, *summary.Averages.Stress)
	require.NotNil(t, summary.Averages.EnergyCredit)
	assert.Equal(t, 60.0, *summary.Averages.EnergyCredit)
	require.NotNil(t, summary.Averages.EnergyDelta)
	assert.Equal(t, -200.0, *summary.Averages.EnergyDelta)

	require.NotNil(t, summary.BestDay)
	assert.Equal(t, "2026-08-18", summary.BestDay.Date)
	assert.Equal(t, 90.0, summary.BestDay.Score)

	require.NotNil(t, summary.WorstDay)
	assert.Equal(t, "2026-08-19", summary.WorstDay.Date)
	assert.Equal(t, 40.0, summary.WorstDay.Score)
}

func TestGetSummaryDaily(t *testing.T) {
	svc, repo, userID := newTestService(t)

	seedScore(t, repo, userID, "2026-08-22", floatPtr(88), floatPtr(72), nil, nil, nil)

	now := time.Date(2026, 8, 22, 8, 0, 0, 0, time.UTC)
	summary, err := svc.GetSummaryAt(userID, PeriodDaily, now)
	require.NoError(t, err)

	assert.Equal(t, "2026-08-22", summary.PeriodStart)
	assert.Equal(t, "2026-08-22", summary.PeriodEnd)
	assert.Equal(t, 1, summary.Days)
	require.NotNil(t, summary.BestDay)
	assert.Equal(t, summary.BestDay.Date, summary.WorstDay.Date, "single day is both best and worst")
	assert.Equal(t, 80.0, summary.BestDay.Score)
}

func TestGetSummaryEmptyPeriod(t *testing.T) {
	svc, _, userID := newTestService(t)

	now := time.Date(2026, 8, 22, 8, 0, 0, 0, time.UTC)
	summary, err := svc.GetSummaryAt(userID, PeriodMonthly, now)
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Days)
	assert.Nil(t, summary.Averages.Sleep)
	assert.Nil(t, summary.Averages.EnergyDelta)
	assert.Nil(t, summary.BestDay)
	assert.Nil(t, summary.WorstDay)
}

func TestGetSummaryInvalidPeriod(t *testing.T) {
	svc, _, userID := newTestService(t)

	_, err := svc.GetSummary(userID, "yearly")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid period")
}

func TestSummaryCachingAndInvalidation(t *testing.T) {
	svc, repo, userID := newTestService(t)
	now := time.Date(2026, 8, 22, 15, 30, 0, 0, time.UTC)

	seedScore(t, repo, userID, "2026-08-17", floatPtr(90), nil, nil, nil, nil)

	first, err := svc.GetSummaryAt(userID, PeriodWeekly, now)
	require.NoError(t, err)
	assert.Equal(t, 1, first.Days)

	// A new score does not show up while the cached summary is fresh
	seedScore(t, repo, userID, "2026-08-18", floatPtr(50), nil, nil, nil, nil)

	cached, err := svc.GetSummaryAt(userID, PeriodWeekly, now)
	require.NoError(t, err)
	assert.Equal(t, 1, cached.Days)

	svc.InvalidateUser(userID)

	fresh, err := svc.GetSummaryAt(userID, PeriodWeekly, now)
	require.NoError(t, err)
	assert.Equal(t, 2, fresh.Days)
	require.NotNil(t, fresh.Averages.Sleep)
	assert.Equal(t, 70.0, *fresh.Averages.Sleep)
}

func TestPurgeExpired(t *testing.T) {
	_, repo, userID := newTestService(t)
	svc := NewServiceWithTTL(repo, 10*time.Millisecond)
	now := time.Date(2026, 8, 22, 15, 30, 0, 0, time.UTC)

	_, err := svc.GetSummaryAt(userID, PeriodDaily, now)
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	deleted, err := svc.PurgeExpired()
	require.NoError(t, err)
	assert.GreaterOrEqual(t, deleted, int64(1))
}

func TestDayComposite(t *testing.T) {
	t.Run("no scores", func(t *testing.T) {
		score := database.NewDailyScore("user", "2026-08-22")
		score.EnergyDelta = floatPtr(-150)

		_, ok := DayComposite(score)
		assert.False(t, ok, "a delta-only day has no composite score")
	})

	t.Run("partial domains", func(t *testing.T) {
		score := database.NewDailyScore("user", "2026-08-22")
		score.SleepScore = floatPtr(90)
		score.StressScore = floatPtr(60)

		composite, ok := DayComposite(score)
		require.True(t, ok)
		assert.Equal(t, 75.0, composite)
	})

	t.Run("credit normalized to the score scale", func(t *testing.T) {
		score := database.NewDailyScore("user", "2026-08-22")
		score.SleepScore = floatPtr(80)
		score.EnergyCredit = floatPtr(600)

		composite, ok := DayComposite(score)
		require.True(t, ok)
		assert.Equal(t, 70.0, composite, "a 600 credit counts as 60, not 600")
	})
}

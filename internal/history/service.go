package history

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/OksanaKushniaryk/wellness-meter/internal/database"
)

// Periods a summary can cover
const (
	PeriodDaily   = "daily"
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
)

// DomainAverages holds per-domain score averages over a period. A domain is
// nil when no day in the period recorded it.
type DomainAverages struct {
	Sleep        *float64 `json:"sleep,omitempty"`
	Activity     *float64 `json:"activity,omitempty"`
	Stress       *float64 `json:"stress,omitempty"`
	EnergyCredit *float64 `json:"energy_credit,omitempty"`
	EnergyDelta  *float64 `json:"energy_delta,omitempty"`
}

// DayHighlight marks the best or worst day of a period
type DayHighlight struct {
	Date  string  `json:"date"`
	Score float64 `json:"score"`
}

// Summary is one period of aggregated wellness scores for a user
type Summary struct {
	Period      string         `json:"period"`
	PeriodStart string         `json:"period_start"` // YYYY-MM-DD
	PeriodEnd   string         `json:"period_end"`
	Days        int            `json:"days"` // days in the period with stored scores
	Averages    DomainAverages `json:"averages"`
	BestDay     *DayHighlight  `json:"best_day,omitempty"`
	WorstDay    *DayHighlight  `json:"worst_day,omitempty"`
}

// Service aggregates stored daily scores into period summaries
type Service struct {
	repo *database.Repository
	ttl  time.Duration
}

// NewService creates a summary service with the default cache TTL
func NewService(repo *database.Repository) *Service {
	return &Service{
		repo: repo,
		ttl:  15 * time.Minute,
	}
}

// NewServiceWithTTL creates a summary service with a custom cache TTL
func NewServiceWithTTL(repo *database.Repository, ttl time.Duration) *Service {
	return &Service{
		repo: repo,
		ttl:  ttl,
	}
}

// GetSummary returns the user's summary for the period containing today.
// Summaries are served from the database-backed cache when fresh.
func (s *Service) GetSummary(userID, period string) (*Summary, error) {
	return s.GetSummaryAt(userID, period, time.Now())
}

// GetSummaryAt returns the user's summary for the period containing the
// given time
func (s *Service) GetSummaryAt(userID, period string, now time.Time) (*Summary, error) {
	start, end, err := periodBounds(period, now)
	if err != nil {
		return nil, err
	}

	cacheKey := summaryCacheKey(userID, period, start)

	if data, found, err := s.repo.GetCachedSummary(cacheKey); err == nil && found {
		var summary Summary
		if err := json.Unmarshal([]byte(data), &summary); err == nil {
			slog.Debug("Summary cache hit", "period", period, "start", start)
			return &summary, nil
		}
		slog.Error("Failed to unmarshal cached summary", "key", cacheKey, "error", err)
	}

	scores, err := s.repo.GetDailyScoresRange(userID, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to load daily scores: %w", err)
	}

	summary := buildSummary(period, start, end, scores)

	if data, err := json.Marshal(summary); err == nil {
		if err := s.repo.SaveCachedSummary(cacheKey, string(data), s.ttl); err != nil {
			slog.Error("Failed to cache summary", "key", cacheKey, "error", err)
		}
	}

	return summary, nil
}

// InvalidateUser drops every cached summary for a user. Called after a new
// score is stored so summaries pick it up immediately instead of waiting
// out the TTL.
func (s *Service) InvalidateUser(userID string) {
	deleted, err := s.repo.DeleteCachedSummaries(cachePrefix(userID))
	if err != nil {
		slog.Error("Failed to invalidate cached summaries", "error", err)
		return
	}
	if deleted > 0 {
		slog.Debug("Invalidated cached summaries", "count", deleted)
	}
}

// PurgeExpired removes stale cache rows and returns how many were deleted
func (s *Service) PurgeExpired() (int64, error) {
	return s.repo.PurgeExpiredSummaries()
}

func summaryCacheKey(userID, period, start string) string {
	return fmt.Sprintf("%s%s:%s", cachePrefix(userID), period, start)
}

func cachePrefix(userID string) string {
	return fmt.Sprintf("summary:%s:", userID)
}

// periodBounds returns the inclusive YYYY-MM-DD range of the period
// containing now. Weeks start on Monday.
func periodBounds(period string, now time.Time) (string, string, error) {
	switch period {
	case PeriodDaily:
		day := now.Format("2006-01-02")
		return day, day, nil
	case PeriodWeekly:
		offset := (int(now.Weekday()) + 6) % 7
		start := now.AddDate(0, 0, -offset)
		return start.Format("2006-01-02"), start.AddDate(0, 0, 6).Format("2006-01-02"), nil
	case PeriodMonthly:
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return start.Format("2006-01-02"), start.AddDate(0, 1, -1).Format("2006-01-02"), nil
	default:
		return "", "", fmt.Errorf("invalid period: %s", period)
	}
}

// BuildRangeSummary aggregates scores over an arbitrary inclusive date
// range, outside the calendar periods. Reports use this for custom windows.
func BuildRangeSummary(start, end string, scores []*database.DailyScore) *Summary {
	return buildSummary("range", start, end, scores)
}

// buildSummary aggregates stored scores into averages and best/worst days
func buildSummary(period, start, end string, scores []*database.DailyScore) *Summary {
	summary := &Summary{
		Period:      period,
		PeriodStart: start,
		PeriodEnd:   end,
		Days:        len(scores),
	}

	var sleep, activity, stress, credit, delta accumulator
	var best, worst *DayHighlight

	for _, score := range scores {
		sleep.add(score.SleepScore)
		activity.add(score.ActivityScore)
		stress.add(score.StressScore)
		credit.add(score.EnergyCredit)
		delta.add(score.EnergyDelta)

		composite, ok := DayComposite(score)
		if !ok {
			continue
		}
		if best == nil || composite > best.Score {
			best = &DayHighlight{Date: score.Date, Score: composite}
		}
		if worst == nil || composite < worst.Score {
			worst = &DayHighlight{Date: score.Date, Score: composite}
		}
	}

	summary.Averages = DomainAverages{
		Sleep:        sleep.average(),
		Activity:     activity.average(),
		Stress:       stress.average(),
		EnergyCredit: credit.average(),
		EnergyDelta:  delta.average(),
	}
	summary.BestDay = best
	summary.WorstDay = worst

	return summary
}

// DayComposite is the mean of the day's available domain scores on the 0-100
// scale. Energy credit runs 0-1000 and is divided down before averaging;
// energy delta is a calorie balance, not a score, so it stays out.
func DayComposite(score *database.DailyScore) (float64, bool) {
	var acc accumulator
	acc.add(score.SleepScore)
	acc.add(score.ActivityScore)
	acc.add(score.StressScore)
	if score.EnergyCredit != nil {
		normalized := *score.EnergyCredit / 10
		acc.add(&normalized)
	}

	if acc.n == 0 {
		return 0, false
	}
	return round1(acc.sum / float64(acc.n)), true
}

type accumulator struct {
	sum float64
	n   int
}

func (a *accumulator) add(v *float64) {
	if v != nil {
		a.sum += *v
		a.n++
	}
}

func (a *accumulator) average() *float64 {
	if a.n == 0 {
		return nil
	}
	avg := round1(a.sum / float64(a.n))
	return &avg
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

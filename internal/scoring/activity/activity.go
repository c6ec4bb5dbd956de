// Package activity scores daily movement: step volume, active minutes,
// week-over-week consistency, intraday distribution, and the energy credit
// carried between days.
package activity

import (
	"sort"

	"github.com/OksanaKushniaryk/wellness-meter/internal/scoring"
)

const (
	// DefaultStepsSigma widens the step Gaussian to roughly a quarter of a
	// typical daily baseline.
	DefaultStepsSigma = 2000.0

	activeMinutesSigma = 15.0
	childDailyMinimum  = 60.0
	// adultDailyMinimum spreads the 150 recommended weekly minutes over a week.
	adultDailyMinimum = 150.0 / 7.0

	stepSpreadReference = 1500.0
)

// StepsScore scores today's step count against a personal baseline. When the
// seven-day total exceeds five times the baseline the subject is clearly more
// active than the stored baseline suggests, so the recency-weighted average of
// the history replaces it. Meeting the target scores 100; the sigma-normalized
// deviation is reported unclamped either way. A non-positive sigma selects the
// default.
func StepsScore(today, baseline float64, history []float64, sigma float64) scoring.Result {
	if sigma <= 0 {
		sigma = DefaultStepsSigma
	}

	mu := baseline
	total := 0.0
	for _, v := range history {
		total += v
	}
	if total > 5*baseline {
		mu = scoring.RecencyWeightedAverage(history)
	}

	deviation := (today - mu) / sigma
	if today >= mu {
		return scoring.ScoreWithDeviation(100, deviation)
	}
	return scoring.ScoreWithDeviation(scoring.Gaussian(today, mu, sigma), deviation)
}

// ActiveMinutesScore scores today's active minutes against the larger of the
// subject's recent mean and the age-group minimum (60 min/day for children,
// the weekly 150 minutes spread daily for adults). Meeting the target scores
// 100.
func ActiveMinutesScore(today float64, recent []float64, ageYears int) scoring.Result {
	minimum := adultDailyMinimum
	if ageYears < 18 {
		minimum = childDailyMinimum
	}

	target := scoring.Mean(recent)
	if target < minimum {
		target = minimum
	}

	if today >= target {
		return scoring.Score(100)
	}
	return scoring.Score(scoring.Gaussian(today, target, activeMinutesSigma))
}

// ConsistencyScore scores the spread of the last seven daily step counts
// against a fixed 1500-step reference tolerance. The standard deviation is
// computed from history when not supplied.
func ConsistencyScore(history []float64, stdDev *float64) scoring.Result {
	spread := 0.0
	if stdDev != nil {
		spread = *stdDev
	} else {
		spread = scoring.StdDev(history)
	}
	return scoring.Score(100 * (1 - spread/stepSpreadReference))
}

// IntradayConsistencyScore scores how evenly steps spread across the day's
// bins using the Gini coefficient of the bin counts. Perfectly even activity
// scores 100; a day with no recorded movement scores 0.
func IntradayConsistencyScore(bins []float64) scoring.Result {
	total := 0.0
	for _, v := range bins {
		total += v
	}
	if len(bins) == 0 || total == 0 {
		return scoring.Score(0)
	}

	sorted := make([]float64, len(bins))
	copy(sorted, bins)
	sort.Float64s(sorted)

	cumulative := 0.0
	cumulativeSum := 0.0
	for _, v := range sorted {
		cumulative += v
		cumulativeSum += cumulative
	}

	n := float64(len(sorted))
	gini := (n + 1 - 2*cumulativeSum/total) / n
	gini = scoring.Clamp(gini, 0, 1)
	return scoring.Score(100 * (1 - gini))
}

// TotalEnergyCreditScore smooths the current credit score and the rolling
// average of past scores through a sigmoid scaled to [0,100]. Large positive
// sums saturate at 100.
func TotalEnergyCreditScore(current, rollingAvg float64) scoring.Result {
	return scoring.Score(100 * scoring.Sigmoid(current+rollingAvg))
}

package energy

import (
	"math"

	"github.com/OksanaKushniaryk/wellness-meter/internal/scoring"
)

const (
	// maxScalingDelta is the kcal scale over which a single day's balance
	// saturates the credit step.
	maxScalingDelta = 250.0

	// Deficits cost more credit than surpluses earn: the asymmetry nudges the
	// running score downward under chronic overspend.
	surplusCreditScale = 8.0
	deficitCreditScale = 10.0

	// maxCreditScore caps the running credit total.
	maxCreditScore = 1000.0
)

// DailyCreditDelta converts one day's energy balance into a bounded credit
// step: a surplus earns up to +8, a deficit costs up to -10, both saturating
// on a tanh over the kcal scale.
func DailyCreditDelta(capacity, tee float64) float64 {
	delta := capacity - tee
	switch {
	case delta > 0:
		return surplusCreditScale * math.Tanh(delta/maxScalingDelta)
	case delta < 0:
		return -deficitCreditScale * math.Tanh(-delta/maxScalingDelta)
	default:
		return 0
	}
}

// TotalCreditScore folds the current credit into the recency-weighted rolling
// average of recent deltas and maps the sum onto the 0-1000 credit scale.
func TotalCreditScore(currentScore, rollingAvgDelta float64) float64 {
	return maxCreditScore * scoring.Sigmoid(currentScore+rollingAvgDelta)
}

const (
	// minSafeZoneHistory is the fewest valid historical deltas that make the
	// band statistically worth reporting.
	minSafeZoneHistory = 3

	// DefaultBufferZone widens the safe zone by this many kcal on each side
	// of the historical average.
	DefaultBufferZone = 50.0
)

// SafeZone bounds today's energy delta by recent history. When Available is
// false the bounds are nil and Message says why.
type SafeZone struct {
	Available  bool     `json:"available"`
	LowerBound *float64 `json:"lowerBound"`
	UpperBound *float64 `json:"upperBound"`
	Average    *float64 `json:"average"`
	Message    string   `json:"message,omitempty"`
}

// EnergySafeZone computes the historical-average band with the default
// buffer. Non-finite history entries are treated as missing days and skipped.
func EnergySafeZone(deltaHistory []float64) SafeZone {
	return EnergySafeZoneWithBuffer(deltaHistory, DefaultBufferZone)
}

// EnergySafeZoneWithBuffer is EnergySafeZone with a caller-chosen buffer.
func EnergySafeZoneWithBuffer(deltaHistory []float64, buffer float64) SafeZone {
	valid := make([]float64, 0, len(deltaHistory))
	for _, d := range deltaHistory {
		if scoring.IsFinite(d) {
			valid = append(valid, d)
		}
	}

	if len(valid) < minSafeZoneHistory {
		return SafeZone{
			Available: false,
			Message:   "insufficient history: need at least 3 valid daily energy deltas",
		}
	}

	avg := scoring.Mean(valid)
	lower := avg - buffer
	upper := avg + buffer
	return SafeZone{
		Available:  true,
		LowerBound: &lower,
		UpperBound: &upper,
		Average:    &avg,
	}
}

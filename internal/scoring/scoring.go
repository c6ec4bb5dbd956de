// Package scoring provides the shared result types and numeric primitives used
// by the per-domain wellness score packages.
package scoring

import "math"

// Result is the canonical shape returned by every per-metric formula.
// Value is clamped to [0,100] for score-type results; energy quantities are
// kcal and unbounded. NormDeviation is the sigma-normalized deviation from the
// metric's reference and is only populated where a formula defines it. Trend
// is reserved for a directionality indicator (0=down, 1=stable, 2=up) that is
// never computed; it stays null so downstream consumers can rely on the slot.
type Result struct {
	Value         float64  `json:"value"`
	NormDeviation *float64 `json:"normDeviation"`
	Trend         *int     `json:"trend"`
}

// Score returns a Result with the value clamped to [0,100].
func Score(value float64) Result {
	return Result{Value: ClampScore(value)}
}

// ScoreWithDeviation returns a clamped score Result carrying the unclamped
// sigma-normalized deviation.
func ScoreWithDeviation(value, deviation float64) Result {
	d := deviation
	return Result{Value: ClampScore(value), NormDeviation: &d}
}

// Quantity returns an unbounded Result for kcal-scale values.
func Quantity(value float64) Result {
	return Result{Value: value}
}

// Qualitative analysis buckets derived from score thresholds.
const (
	AnalysisExcellent        = "excellent"
	AnalysisGood             = "good"
	AnalysisFair             = "fair"
	AnalysisNeedsImprovement = "needs improvement"
)

// Analysis maps a 0-100 score to its qualitative bucket.
func Analysis(score float64) string {
	switch {
	case score >= 85:
		return AnalysisExcellent
	case score >= 70:
		return AnalysisGood
	case score >= 50:
		return AnalysisFair
	default:
		return AnalysisNeedsImprovement
	}
}

// Clamp limits x to the inclusive range [lo, hi].
func Clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}

// ClampScore limits a score to [0,100].
func ClampScore(x float64) float64 {
	return Clamp(x, 0, 100)
}

// Gaussian evaluates the 100-peaked bell curve 100*exp(-(x-mu)^2/(2*sigma^2)).
// A zero sigma collapses the curve to a point: 100 at mu, 0 elsewhere.
func Gaussian(x, mu, sigma float64) float64 {
	if sigma == 0 {
		if x == mu {
			return 100
		}
		return 0
	}
	d := x - mu
	return 100 * math.Exp(-(d*d)/(2*sigma*sigma))
}

// Sigmoid maps any real number into (0,1).
func Sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// Mean returns the arithmetic mean, or 0 for an empty slice.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// StdDev returns the population standard deviation, or 0 for an empty slice.
func StdDev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	mean := Mean(xs)
	ss := 0.0
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)))
}

// recencyWeights bias the rolling average toward the most recent days; the
// last slot is today. The divisor is the weight total (11).
var recencyWeights = [7]float64{1, 1, 1, 1, 2, 2, 3}

// RecencyWeightedAverage applies the fixed [1,1,1,1,2,2,3]/11 weighting to the
// last seven values of history, which is ordered oldest first with today last.
// Histories shorter than seven days are zero-padded on the old side; longer
// histories are truncated to the most recent seven.
func RecencyWeightedAverage(history []float64) float64 {
	window := make([]float64, 7)
	n := len(history)
	if n > 7 {
		history = history[n-7:]
		n = 7
	}
	copy(window[7-n:], history)

	weighted := 0.0
	total := 0.0
	for i, w := range recencyWeights {
		weighted += window[i] * w
		total += w
	}
	return weighted / total
}

// IsFinite reports whether x is a usable measurement (not NaN or infinite).
func IsFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

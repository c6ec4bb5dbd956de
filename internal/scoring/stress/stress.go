// Package stress estimates resting heart rate from recent measurements and
// scores the parasympathetic (calm) state it indicates.
package stress

import (
	"math"

	"github.com/OksanaKushniaryk/wellness-meter/internal/scoring"
)

const (
	// activeStepThreshold marks the subject as active when the last half hour
	// contains at least this many steps; heart-rate readings taken while
	// moving overstate the resting rate, so the stored fallback is used
	// instead.
	activeStepThreshold = 300.0

	stressedHeartRate = 100.0
	heartRateSigma    = 15.0
)

// RestingHeartRate picks the resting rate for the current half hour: the mean
// of the supplied readings when the subject has been still, the fallback when
// they have been active or no readings exist.
func RestingHeartRate(stepsLast30Min float64, readings []float64, fallback float64) float64 {
	if stepsLast30Min >= activeStepThreshold {
		return fallback
	}
	if len(readings) == 0 {
		return fallback
	}
	return scoring.Mean(readings)
}

// ParasympatheticScore scores how far the resting heart rate sits below the
// 100 bpm stress ceiling. At or above the ceiling the score is 0; the further
// below it, the closer the score gets to 100.
func ParasympatheticScore(restingHR float64) scoring.Result {
	if restingHR >= stressedHeartRate {
		return scoring.Score(0)
	}
	d := stressedHeartRate - restingHR
	return scoring.Score(100 * (1 - math.Exp(-(d*d)/(2*heartRateSigma*heartRateSigma))))
}

// OverallScore is defined as exactly the parasympathetic score. The reference
// system never inverts it despite the "stress" naming; keep the polarity.
func OverallScore(restingHR float64) scoring.Result {
	return ParasympatheticScore(restingHR)
}

// Conversion expresses the day's unallocated energy in terms of the stress
// level that produced it.
type Conversion struct {
	EnergySurplus    float64 `json:"energySurplus"`
	StressEnergyRate float64 `json:"stressEnergyRate"`
	StressEnergy     float64 `json:"stressEnergy"`
}

// EnergyConversion converts an energy surplus into a stress-rated quantity.
// The rate and product steps cancel algebraically; they are kept separate
// because downstream consumers read all three fields.
func EnergyConversion(capacity, paee, tef, overallStress float64) Conversion {
	surplus := math.Abs(capacity - paee - tef)

	rate := 0.0
	if overallStress < 100 {
		rate = surplus / (100 - overallStress)
	}

	return Conversion{
		EnergySurplus:    surplus,
		StressEnergyRate: rate,
		StressEnergy:     (100 - overallStress) * rate,
	}
}

// Input carries the measurements for one stress evaluation window.
type Input struct {
	StepsLast30Min     float64   `json:"stepsLast30Min"`
	HeartRateReadings  []float64 `json:"heartRateReadings"`
	FallbackRestingHR  float64   `json:"fallbackRestingHR"`
}

// Aggregate is the stress evaluation with the rate it was derived from.
type Aggregate struct {
	RestingHeartRate float64        `json:"restingHeartRate"`
	Parasympathetic  scoring.Result `json:"parasympathetic"`
	Overall          scoring.Result `json:"overall"`
	Analysis         string         `json:"analysis"`
}

// Score estimates the resting heart rate and scores the window.
func Score(in Input) Aggregate {
	rhr := RestingHeartRate(in.StepsLast30Min, in.HeartRateReadings, in.FallbackRestingHR)
	para := ParasympatheticScore(rhr)
	return Aggregate{
		RestingHeartRate: rhr,
		Parasympathetic:  para,
		Overall:          para,
		Analysis:         scoring.Analysis(para.Value),
	}
}

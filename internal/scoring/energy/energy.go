// Package energy models the day as an energy budget: basal burn, food
// thermogenesis, and activity expenditure on the debit side, a fitness- and
// recovery-scaled capacity on the credit side. The balance feeds a running
// credit score and a historical safe zone.
package energy

import (
	"errors"
	"math"

	"github.com/OksanaKushniaryk/wellness-meter/internal/scoring"
)

// Gender selects the Mifflin-St Jeor additive constant.
type Gender string

const (
	Male   Gender = "male"
	Female Gender = "female"
)

// Profile describes the subject for basal-rate and fitness estimation.
type Profile struct {
	Gender   Gender  `json:"gender"`
	AgeYears int     `json:"ageYears"`
	HeightCM float64 `json:"heightCM"`
	WeightKG float64 `json:"weightKG"`
	Athlete  bool    `json:"athlete"`
}

const (
	sleepFactorFloor  = 0.90
	sleepFactorGain   = 0.10
	stressFactorGain  = 0.15
	circadianGain     = 0.10
	circadianPeakHour = 16.0
)

// RestingRate is the unadjusted Mifflin-St Jeor basal metabolic rate in
// kcal/day.
func RestingRate(p Profile) float64 {
	bmr := 10*p.WeightKG + 6.25*p.HeightCM - 5*float64(p.AgeYears)
	if p.Gender == Female {
		return bmr - 161
	}
	return bmr + 5
}

// BasalMetabolicRate adjusts the resting rate for sleep quality, stress level,
// and circadian phase. Poor sleep suppresses the rate by up to 10%, stress
// raises it by up to 15%, and the time-of-day term swings it ±10% around a
// late-afternoon peak. Score inputs are clamped to [0,100].
func BasalMetabolicRate(p Profile, sleepScore, stressScore float64, hourOfDay int) float64 {
	base := RestingRate(p)

	sleepFactor := sleepFactorFloor + sleepFactorGain*scoring.ClampScore(sleepScore)/100
	stressFactor := 1.0 + stressFactorGain*scoring.ClampScore(stressScore)/100
	circadianFactor := 1.0 + circadianGain*math.Sin(2*math.Pi/24*(float64(hourOfDay)-circadianPeakHour))

	return base * sleepFactor * stressFactor * circadianFactor
}

// Macros carries per-macronutrient calories for the thermic-effect estimate.
type Macros struct {
	ProteinCal float64 `json:"proteinCal"`
	CarbCal    float64 `json:"carbCal"`
	FatCal     float64 `json:"fatCal"`
}

const (
	proteinThermicFraction = 0.25
	carbThermicFraction    = 0.075
	fatThermicFraction     = 0.025

	// flatThermicFraction approximates a mixed diet when the macro split is
	// unknown.
	flatThermicFraction = 0.10
)

// ThermicEffect estimates the calories spent digesting the day's intake.
// With a macro split each nutrient gets its own thermic fraction; without one
// a flat 10% of total calories is assumed.
func ThermicEffect(totalCal float64, macros *Macros) float64 {
	if macros != nil {
		return proteinThermicFraction*macros.ProteinCal +
			carbThermicFraction*macros.CarbCal +
			fatThermicFraction*macros.FatCal
	}
	return flatThermicFraction * totalCal
}

// ActivityExpenditure estimates workout calories from the hourly basal rate,
// the session duration, and its MET intensity. A wearable-derived activity
// level contributes an additional term on top of the MET term, not in place
// of it.
func ActivityExpenditure(bmr, durationHours, met float64, activityLevel *float64) float64 {
	perHour := bmr / 24
	total := perHour * durationHours * met
	if activityLevel != nil {
		total += *activityLevel * perHour * durationHours
	}
	return total
}

// TotalExpenditure is the day's full energy debit: basal burn plus activity
// plus digestion.
func TotalExpenditure(bmr, paee, tef float64) float64 {
	return bmr + paee + tef
}

const (
	// HRV spreads differ by population: trained athletes hold a much tighter
	// day-to-day band than the general population.
	athleteHRVSigma = 10.0
	generalHRVSigma = 20.0
)

// HRVScore scores today's heart-rate variability against the personal
// baseline. At or above baseline is a perfect score; below it the score
// decays on a Gaussian whose width depends on the population.
func HRVScore(current, baseline float64, athlete bool) scoring.Result {
	if current >= baseline {
		return scoring.Score(100)
	}
	sigma := generalHRVSigma
	if athlete {
		sigma = athleteHRVSigma
	}
	return scoring.Score(scoring.Gaussian(current, baseline, sigma))
}

const (
	defaultHRVWeight   = 0.6
	defaultSleepWeight = 0.4
)

var (
	ErrMissingHRV   = errors.New("recovery score requires an hrv score")
	ErrMissingSleep = errors.New("recovery score requires a sleep score")
)

// RecoveryScore blends the HRV and sleep scores with the default 0.6/0.4
// weighting. Both inputs are required; nil fails fast so callers validate
// upstream instead of scoring a half-measured day.
func RecoveryScore(hrvScore, sleepScore *float64) (scoring.Result, error) {
	return WeightedRecoveryScore(hrvScore, sleepScore, defaultHRVWeight, defaultSleepWeight)
}

// WeightedRecoveryScore is RecoveryScore with caller-chosen weights. Inputs
// are clamped to [0,100] before blending; non-positive weight sums fall back
// to the defaults.
func WeightedRecoveryScore(hrvScore, sleepScore *float64, hrvWeight, sleepWeight float64) (scoring.Result, error) {
	if hrvScore == nil {
		return scoring.Result{}, ErrMissingHRV
	}
	if sleepScore == nil {
		return scoring.Result{}, ErrMissingSleep
	}
	if hrvWeight+sleepWeight <= 0 {
		hrvWeight, sleepWeight = defaultHRVWeight, defaultSleepWeight
	}

	h := scoring.ClampScore(*hrvScore)
	s := scoring.ClampScore(*sleepScore)
	return scoring.Score((hrvWeight*h + sleepWeight*s) / (hrvWeight + sleepWeight)), nil
}

const (
	capacityBase          = 1.5
	capacityFitnessGain   = 2.0
	capacityRecoveryGain  = 1.5
	capacityStressPenalty = 2.0
	capacityMinMultiplier = 1.0
	capacityMaxMultiplier = 5.0
)

// Capacity scales the basal rate into the day's spendable energy budget.
// Fitness and recovery widen the budget, stress narrows it, and the
// multiplier is held inside [1.0, 5.0].
func Capacity(bmr, fitnessScore, recoveryScore, stressIndex float64) float64 {
	m := capacityBase +
		capacityFitnessGain*fitnessScore/100 +
		capacityRecoveryGain*recoveryScore/100 -
		capacityStressPenalty*stressIndex/100
	return bmr * scoring.Clamp(m, capacityMinMultiplier, capacityMaxMultiplier)
}

package energy

import "github.com/OksanaKushniaryk/wellness-meter/internal/scoring"

// DefaultFitnessScore stands in when neither VO2max nor body-fat data is
// available.
const DefaultFitnessScore = 75.0

const (
	vo2MaxSigma  = 10.0
	bodyFatSigma = 5.0

	// athleteBodyFatOffset shifts the optimal body-fat percentage down for
	// trained subjects.
	athleteBodyFatOffset = -5.0
)

// ageTarget is one bracket of an age-banded norm table; the bracket covers
// every age up to and including maxAge.
type ageTarget struct {
	maxAge int
	target float64
}

// vo2MaxTargets holds "good" cardiorespiratory fitness targets in ml/kg/min,
// after the Cooper Institute norms, banded by age.
var vo2MaxTargets = map[Gender][]ageTarget{
	Male:   {{29, 48}, {39, 44}, {49, 41}, {59, 37}, {199, 34}},
	Female: {{29, 41}, {39, 38}, {49, 34}, {59, 31}, {199, 28}},
}

// bodyFatOptimal holds optimal body-fat percentages for the general
// population, after the ACE fitness categories, banded by age. Athletes sit
// athleteBodyFatOffset below these.
var bodyFatOptimal = map[Gender][]ageTarget{
	Male:   {{29, 14}, {39, 16}, {49, 18}, {59, 20}, {199, 21}},
	Female: {{29, 21}, {39, 23}, {49, 25}, {59, 27}, {199, 28}},
}

func bracketTarget(table map[Gender][]ageTarget, g Gender, age int) float64 {
	brackets, ok := table[g]
	if !ok {
		brackets = table[Male]
	}
	for _, b := range brackets {
		if age <= b.maxAge {
			return b.target
		}
	}
	return brackets[len(brackets)-1].target
}

// VO2MaxTarget returns the age- and gender-banded VO2max target. Unknown
// genders use the male table.
func VO2MaxTarget(g Gender, age int) float64 {
	return bracketTarget(vo2MaxTargets, g, age)
}

// OptimalBodyFat returns the age- and gender-banded optimal body-fat
// percentage, shifted down for athletes.
func OptimalBodyFat(g Gender, age int, athlete bool) float64 {
	opt := bracketTarget(bodyFatOptimal, g, age)
	if athlete {
		opt += athleteBodyFatOffset
	}
	return opt
}

// FitnessFromVO2Max scores aerobic capacity against the banded target. At or
// above target is a perfect score; below it the score decays on a Gaussian.
func FitnessFromVO2Max(current float64, g Gender, age int) scoring.Result {
	target := VO2MaxTarget(g, age)
	if current >= target {
		return scoring.Score(100)
	}
	return scoring.Score(scoring.Gaussian(current, target, vo2MaxSigma))
}

// FitnessFromBodyFat scores body composition against the banded optimum.
// Unlike VO2max this is two-sided: a reading far below the optimum is
// penalized the same as one far above it.
func FitnessFromBodyFat(percent float64, g Gender, age int, athlete bool) scoring.Result {
	return scoring.Score(scoring.Gaussian(percent, OptimalBodyFat(g, age, athlete), bodyFatSigma))
}

// FitnessScore derives the capacity multiplier's fitness input from whatever
// measurement is on hand: VO2max when present, body fat otherwise, and the
// population default when neither was measured.
func FitnessScore(vo2Max, bodyFatPercent *float64, g Gender, age int, athlete bool) scoring.Result {
	switch {
	case vo2Max != nil:
		return FitnessFromVO2Max(*vo2Max, g, age)
	case bodyFatPercent != nil:
		return FitnessFromBodyFat(*bodyFatPercent, g, age, athlete)
	default:
		return scoring.Score(DefaultFitnessScore)
	}
}

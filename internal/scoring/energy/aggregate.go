package energy

import (
	"github.com/OksanaKushniaryk/wellness-meter/internal/scoring"
)

// Surplus and Deficit classify the sign of the day's energy delta.
const (
	Surplus = "surplus"
	Deficit = "deficit"
)

// Input carries one day's measurements for the composite energy evaluation.
// DeltaHistory is ordered oldest first with yesterday last.
type Input struct {
	Profile Profile `json:"profile"`

	SleepScore  float64 `json:"sleepScore"`
	StressScore float64 `json:"stressScore"`
	HourOfDay   int     `json:"hourOfDay"`

	TotalCalories float64 `json:"totalCalories"`
	Macros        *Macros `json:"macros,omitempty"`

	ExerciseHours float64  `json:"exerciseHours"`
	ExerciseMET   float64  `json:"exerciseMET"`
	ActivityLevel *float64 `json:"activityLevel,omitempty"`

	CurrentHRV  float64 `json:"currentHRV"`
	BaselineHRV float64 `json:"baselineHRV"`

	VO2Max         *float64 `json:"vo2Max,omitempty"`
	BodyFatPercent *float64 `json:"bodyFatPercent,omitempty"`

	CreditScore  float64   `json:"creditScore"`
	DeltaHistory []float64 `json:"deltaHistory"`
}

// Breakdown lists every intermediate quantity and score the evaluation
// produced, in kcal/day unless it is a 0-100 score.
type Breakdown struct {
	BMR      float64        `json:"bmr"`
	TEF      float64        `json:"tef"`
	PAEE     float64        `json:"paee"`
	TEE      float64        `json:"tee"`
	Fitness  scoring.Result `json:"fitness"`
	HRV      scoring.Result `json:"hrv"`
	Recovery scoring.Result `json:"recovery"`
	Capacity float64        `json:"capacity"`
}

// Aggregate is the day's energy evaluation: the budget breakdown, the balance
// and its classification, the credit bookkeeping, and the historical safe
// zone.
type Aggregate struct {
	Breakdown      Breakdown `json:"breakdown"`
	EnergyDelta    float64   `json:"energyDelta"`
	Classification string    `json:"classification"`
	CreditDelta    float64   `json:"creditDelta"`
	CreditScore    float64   `json:"creditScore"`
	SafeZone       SafeZone  `json:"safeZone"`
}

// Score runs the full evaluation chain: basal rate, thermic effect, activity
// expenditure, HRV and recovery, capacity, and the credit and safe-zone
// bookkeeping on the resulting balance. The overall stress score serves both
// as the basal-rate adjustment and as the capacity stress index.
func Score(in Input) Aggregate {
	bmr := BasalMetabolicRate(in.Profile, in.SleepScore, in.StressScore, in.HourOfDay)
	tef := ThermicEffect(in.TotalCalories, in.Macros)
	paee := ActivityExpenditure(bmr, in.ExerciseHours, in.ExerciseMET, in.ActivityLevel)

	hrv := HRVScore(in.CurrentHRV, in.BaselineHRV, in.Profile.Athlete)
	hrvValue := hrv.Value
	recovery, _ := RecoveryScore(&hrvValue, &in.SleepScore)

	fitness := FitnessScore(in.VO2Max, in.BodyFatPercent, in.Profile.Gender, in.Profile.AgeYears, in.Profile.Athlete)
	capacity := Capacity(bmr, fitness.Value, recovery.Value, in.StressScore)

	tee := TotalExpenditure(bmr, paee, tef)
	delta := capacity - tee

	classification := Surplus
	if delta < 0 {
		classification = Deficit
	}

	creditDelta := DailyCreditDelta(capacity, tee)
	rollingAvg := scoring.RecencyWeightedAverage(in.DeltaHistory)

	return Aggregate{
		Breakdown: Breakdown{
			BMR:      bmr,
			TEF:      tef,
			PAEE:     paee,
			TEE:      tee,
			Fitness:  fitness,
			HRV:      hrv,
			Recovery: recovery,
			Capacity: capacity,
		},
		EnergyDelta:    delta,
		Classification: classification,
		CreditDelta:    creditDelta,
		CreditScore:    TotalCreditScore(in.CreditScore, rollingAvg),
		SafeZone:       EnergySafeZone(in.DeltaHistory),
	}
}

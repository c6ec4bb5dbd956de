package types

import (
	"encoding/json"
)

// MetricValue is the wire form of one scored metric.
type MetricValue struct {
	Value         float64  `json:"value"`
	NormDeviation *float64 `json:"normDeviation"`
	Trend         *int     `json:"trend"`
}

// APIResponse is the envelope the score endpoints share with the reference
// wellness API.
type APIResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

// DailyValuesData is the payload of a daily-values response.
type DailyValuesData struct {
	DailyValues []DailyValue `json:"dailyValues"`
}

// DailyValue is one day's scored metrics in the reference wire shape: a flat
// object holding "date", one key per metric name, and a "metrics" object of
// raw measured quantities.
//
//	{"date":"2024-03-01","SleepScore":{"value":82,...},"metrics":{"steps":9214}}
type DailyValue struct {
	Date    string
	Scores  map[string]MetricValue
	Metrics map[string]float64
}

// MarshalJSON flattens Scores into the top-level object alongside date and
// metrics.
func (d DailyValue) MarshalJSON() ([]byte, error) {
	flat := make(map[string]any, len(d.Scores)+2)
	flat["date"] = d.Date
	for name, score := range d.Scores {
		flat[name] = score
	}
	if d.Metrics != nil {
		flat["metrics"] = d.Metrics
	}
	return json.Marshal(flat)
}

// UnmarshalJSON collects every key that is neither "date" nor "metrics" as a
// scored metric.
func (d *DailyValue) UnmarshalJSON(data []byte) error {
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(data, &flat); err != nil {
		return err
	}

	d.Scores = make(map[string]MetricValue)
	for key, raw := range flat {
		switch key {
		case "date":
			if err := json.Unmarshal(raw, &d.Date); err != nil {
				return err
			}
		case "metrics":
			if err := json.Unmarshal(raw, &d.Metrics); err != nil {
				return err
			}
		default:
			var mv MetricValue
			if err := json.Unmarshal(raw, &mv); err != nil {
				return err
			}
			d.Scores[key] = mv
		}
	}
	return nil
}

// SleepStagesRequest carries one night's stage durations. Hours and minutes
// are submitted separately, matching how wearables export stage summaries.
type SleepStagesRequest struct {
	DeepHours    int `json:"deepHours"`
	DeepMinutes  int `json:"deepMinutes"`
	CoreHours    int `json:"coreHours"`
	CoreMinutes  int `json:"coreMinutes"`
	REMHours     int `json:"remHours"`
	REMMinutes   int `json:"remMinutes"`
	AwakeHours   int `json:"awakeHours"`
	AwakeMinutes int `json:"awakeMinutes"`
}

// SleepRequest carries the sleep measurements of one daily record.
type SleepRequest struct {
	Stages                SleepStagesRequest `json:"stages" binding:"required"`
	MinutesToFallAsleep   float64            `json:"minutesToFallAsleep"`
	FellAsleepAtMinutes   float64            `json:"fellAsleepAtMinutes"`
	RestingHeartRate      float64            `json:"restingHeartRate"`
	SleepingHeartRate     float64            `json:"sleepingHeartRate"`
	BedtimeVariationHours float64            `json:"bedtimeVariationHours"`
	ObservedCycles        float64            `json:"observedCycles"`
}

// ActivityRequest carries the activity measurements of one daily record.
type ActivityRequest struct {
	Steps               float64   `json:"steps"`
	BaselineSteps       float64   `json:"baselineSteps"`
	StepsSigma          float64   `json:"stepsSigma"`
	StepsHistory        []float64 `json:"stepsHistory"`
	StepsStdDev         *float64  `json:"stepsStdDev,omitempty"`
	ActiveMinutes       float64   `json:"activeMinutes"`
	RecentActiveMinutes []float64 `json:"recentActiveMinutes"`
	IntradaySteps       []float64 `json:"intradaySteps"`
	CreditScore         float64   `json:"creditScore"`
	CreditHistory       []float64 `json:"creditHistory"`
}

// StressRequest carries the stress measurements of one daily record.
type StressRequest struct {
	StepsLast30Min    float64   `json:"stepsLast30Min"`
	HeartRateReadings []float64 `json:"heartRateReadings"`
	FallbackRestingHR float64   `json:"fallbackRestingHR"`
}

// MacrosRequest carries an optional per-macronutrient calorie split.
type MacrosRequest struct {
	ProteinCal float64 `json:"proteinCal"`
	CarbCal    float64 `json:"carbCal"`
	FatCal     float64 `json:"fatCal"`
}

// EnergyRequest carries the energy measurements of one daily record.
type EnergyRequest struct {
	TotalCalories  float64        `json:"totalCalories"`
	Macros         *MacrosRequest `json:"macros,omitempty"`
	ExerciseHours  float64        `json:"exerciseHours"`
	ExerciseMET    float64        `json:"exerciseMET"`
	ActivityLevel  *float64       `json:"activityLevel,omitempty"`
	CurrentHRV     float64        `json:"currentHRV"`
	BaselineHRV    float64        `json:"baselineHRV"`
	VO2Max         *float64       `json:"vo2Max,omitempty"`
	BodyFatPercent *float64       `json:"bodyFatPercent,omitempty"`
	CreditScore    float64        `json:"creditScore"`
	DeltaHistory   []float64      `json:"deltaHistory"`
	HourOfDay      int            `json:"hourOfDay"`
}

// ProfileRequest describes the subject.
type ProfileRequest struct {
	Gender   string  `json:"gender" binding:"required,oneof=male female"`
	AgeYears int     `json:"ageYears" binding:"required,gt=0,lt=130"`
	HeightCM float64 `json:"heightCM" binding:"required,gt=0"`
	WeightKG float64 `json:"weightKG" binding:"required,gt=0"`
	Athlete  bool    `json:"athlete"`
}

// ScoreRequest is the full daily measurement record submitted for scoring.
type ScoreRequest struct {
	Date     string          `json:"date" binding:"required,datetime=2006-01-02"`
	Profile  ProfileRequest  `json:"profile" binding:"required"`
	Sleep    SleepRequest    `json:"sleep" binding:"required"`
	Activity ActivityRequest `json:"activity" binding:"required"`
	Stress   StressRequest   `json:"stress" binding:"required"`
	Energy   EnergyRequest   `json:"energy" binding:"required"`
}

// VerifyRequest asks the service to fetch a date range from the reference
// wellness API and compare recomputed scores against it.
type VerifyRequest struct {
	From string `json:"from" binding:"required,datetime=2006-01-02"`
	To   string `json:"to" binding:"required,datetime=2006-01-02"`
}

// SessionRequest asks for a session token.
type SessionRequest struct {
	ClientName string `json:"clientName" binding:"required,min=1,max=64"`
}

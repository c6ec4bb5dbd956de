package sleep

import (
	"github.com/OksanaKushniaryk/wellness-meter/internal/scoring"
)

// componentWeights fixes each sub-score's share of the composite sleep score.
// The weights total 0.95: the remaining share belongs to a skin-temperature
// deviation component that consumer wearables do not report reliably enough
// to score, so it is left unmeasured rather than redistributed.
var componentWeights = map[string]float64{
	"duration":           0.15,
	"efficiency":         0.20,
	"deepStage":          0.05,
	"remStage":           0.05,
	"stageDistribution":  0.20,
	"onsetLatency":       0.10,
	"wakeAfterOnset":     0.05,
	"heartRateDip":       0.05,
	"circadianAlignment": 0.05,
	"consistency":        0.05,
	"cycleCount":         0.05,
}

// Weights returns a copy of the fixed component weights.
func Weights() map[string]float64 {
	w := make(map[string]float64, len(componentWeights))
	for k, v := range componentWeights {
		w[k] = v
	}
	return w
}

// Input carries one night's raw measurements for the composite score.
type Input struct {
	Stages                Stages  `json:"stages"`
	MinutesToFallAsleep   float64 `json:"minutesToFallAsleep"`
	FellAsleepAtMinutes   float64 `json:"fellAsleepAtMinutes"`
	RestingHeartRate      float64 `json:"restingHeartRate"`
	SleepingHeartRate     float64 `json:"sleepingHeartRate"`
	BedtimeVariationHours float64 `json:"bedtimeVariationHours"`
	ObservedCycles        float64 `json:"observedCycles"`
}

// Breakdown lists every component result that feeds the composite score.
type Breakdown struct {
	Duration           scoring.Result `json:"duration"`
	Efficiency         scoring.Result `json:"efficiency"`
	DeepStage          scoring.Result `json:"deepStage"`
	REMStage           scoring.Result `json:"remStage"`
	StageDistribution  scoring.Result `json:"stageDistribution"`
	OnsetLatency       scoring.Result `json:"onsetLatency"`
	WakeAfterOnset     scoring.Result `json:"wakeAfterOnset"`
	HeartRateDip       scoring.Result `json:"heartRateDip"`
	CircadianAlignment scoring.Result `json:"circadianAlignment"`
	Consistency        scoring.Result `json:"consistency"`
	CycleCount         scoring.Result `json:"cycleCount"`
}

// Aggregate is the composite sleep score with its components and weights.
type Aggregate struct {
	Score     scoring.Result     `json:"score"`
	Breakdown Breakdown          `json:"breakdown"`
	Weights   map[string]float64 `json:"weights"`
	Analysis  string             `json:"analysis"`
}

// Score computes the weighted composite sleep score for one night.
func Score(in Input) Aggregate {
	b := Breakdown{
		Duration:           DurationScore(in.Stages),
		Efficiency:         EfficiencyScore(in.Stages),
		DeepStage:          DeepStageScore(in.Stages),
		REMStage:           REMStageScore(in.Stages),
		StageDistribution:  StageDistributionScore(in.Stages),
		OnsetLatency:       OnsetLatencyScore(in.MinutesToFallAsleep),
		WakeAfterOnset:     WakeAfterOnsetScore(in.Stages.Awake() * 60),
		HeartRateDip:       HeartRateDipScore(in.RestingHeartRate, in.SleepingHeartRate),
		CircadianAlignment: CircadianAlignmentScore(in.FellAsleepAtMinutes, in.Stages.Total()*60),
		Consistency:        ConsistencyScore(in.BedtimeVariationHours),
		CycleCount:         CycleCountScore(in.ObservedCycles),
	}

	total := componentWeights["duration"]*b.Duration.Value +
		componentWeights["efficiency"]*b.Efficiency.Value +
		componentWeights["deepStage"]*b.DeepStage.Value +
		componentWeights["remStage"]*b.REMStage.Value +
		componentWeights["stageDistribution"]*b.StageDistribution.Value +
		componentWeights["onsetLatency"]*b.OnsetLatency.Value +
		componentWeights["wakeAfterOnset"]*b.WakeAfterOnset.Value +
		componentWeights["heartRateDip"]*b.HeartRateDip.Value +
		componentWeights["circadianAlignment"]*b.CircadianAlignment.Value +
		componentWeights["consistency"]*b.Consistency.Value +
		componentWeights["cycleCount"]*b.CycleCount.Value

	score := scoring.Score(total)
	return Aggregate{
		Score:     score,
		Breakdown: b,
		Weights:   Weights(),
		Analysis:  scoring.Analysis(score.Value),
	}
}

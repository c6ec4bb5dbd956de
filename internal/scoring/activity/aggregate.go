package activity

import (
	"github.com/OksanaKushniaryk/wellness-meter/internal/scoring"
)

// componentWeights fixes each sub-score's share of the composite activity
// score.
var componentWeights = map[string]float64{
	"steps":         0.25,
	"activeMinutes": 0.25,
	"consistency":   0.15,
	"intraday":      0.10,
	"energyCredit":  0.25,
}

// Weights returns a copy of the fixed component weights.
func Weights() map[string]float64 {
	w := make(map[string]float64, len(componentWeights))
	for k, v := range componentWeights {
		w[k] = v
	}
	return w
}

// Input carries one day's raw activity measurements for the composite score.
// StepsHistory and CreditHistory are ordered oldest first with today last.
type Input struct {
	TodaySteps          float64  `json:"todaySteps"`
	BaselineSteps       float64  `json:"baselineSteps"`
	StepsSigma          float64  `json:"stepsSigma"`
	StepsHistory        []float64 `json:"stepsHistory"`
	StepsStdDev         *float64 `json:"stepsStdDev"`
	ActiveMinutesToday  float64  `json:"activeMinutesToday"`
	RecentActiveMinutes []float64 `json:"recentActiveMinutes"`
	AgeYears            int      `json:"ageYears"`
	IntradaySteps       []float64 `json:"intradaySteps"`
	CreditScore         float64  `json:"creditScore"`
	CreditHistory       []float64 `json:"creditHistory"`
}

// Breakdown lists every component result that feeds the composite score.
type Breakdown struct {
	Steps         scoring.Result `json:"steps"`
	ActiveMinutes scoring.Result `json:"activeMinutes"`
	Consistency   scoring.Result `json:"consistency"`
	Intraday      scoring.Result `json:"intraday"`
	EnergyCredit  scoring.Result `json:"energyCredit"`
}

// Aggregate is the composite activity score with its components and weights.
type Aggregate struct {
	Score     scoring.Result     `json:"score"`
	Breakdown Breakdown          `json:"breakdown"`
	Weights   map[string]float64 `json:"weights"`
	Analysis  string             `json:"analysis"`
}

// Score computes the weighted composite activity score for one day.
func Score(in Input) Aggregate {
	rollingAvg := scoring.RecencyWeightedAverage(in.CreditHistory)

	b := Breakdown{
		Steps:         StepsScore(in.TodaySteps, in.BaselineSteps, in.StepsHistory, in.StepsSigma),
		ActiveMinutes: ActiveMinutesScore(in.ActiveMinutesToday, in.RecentActiveMinutes, in.AgeYears),
		Consistency:   ConsistencyScore(in.StepsHistory, in.StepsStdDev),
		Intraday:      IntradayConsistencyScore(in.IntradaySteps),
		EnergyCredit:  TotalEnergyCreditScore(in.CreditScore, rollingAvg),
	}

	total := componentWeights["steps"]*b.Steps.Value +
		componentWeights["activeMinutes"]*b.ActiveMinutes.Value +
		componentWeights["consistency"]*b.Consistency.Value +
		componentWeights["intraday"]*b.Intraday.Value +
		componentWeights["energyCredit"]*b.EnergyCredit.Value

	score := scoring.Score(total)
	return Aggregate{
		Score:     score,
		Breakdown: b,
		Weights:   Weights(),
		Analysis:  scoring.Analysis(score.Value),
	}
}

// Package sleep scores a night of sleep from wearable stage measurements.
// Stage durations arrive as separate hour/minute integer pairs; every formula
// works on decimal hours derived as h + m/60.
package sleep

import (
	"math"

	"github.com/OksanaKushniaryk/wellness-meter/internal/scoring"
)

const (
	idealTotalHours   = 8.0
	totalHoursSigma   = 1.5
	idealDeepPercent  = 18.0
	idealREMPercent   = 22.0
	stagePercentSigma = 5.0
	idealOnsetMinutes = 15.0
	onsetSigma        = 10.0
	wakeSigma         = 20.0
	idealDipPercent   = 20.0
	dipSigma          = 5.0
	idealMidpointHour = 4.0
	midpointPenalty   = 20.0
	bedtimeSigma      = 0.75
	idealCycleCount   = 5.0
)

// Stages holds one night's stage durations as hour/minute pairs.
type Stages struct {
	DeepHours    int `json:"deepHours"`
	DeepMinutes  int `json:"deepMinutes"`
	CoreHours    int `json:"coreHours"`
	CoreMinutes  int `json:"coreMinutes"`
	REMHours     int `json:"remHours"`
	REMMinutes   int `json:"remMinutes"`
	AwakeHours   int `json:"awakeHours"`
	AwakeMinutes int `json:"awakeMinutes"`
}

func hours(h, m int) float64 {
	return float64(h) + float64(m)/60.0
}

// Deep returns the deep-stage duration in decimal hours.
func (s Stages) Deep() float64 { return hours(s.DeepHours, s.DeepMinutes) }

// Core returns the core/light-stage duration in decimal hours.
func (s Stages) Core() float64 { return hours(s.CoreHours, s.CoreMinutes) }

// REM returns the REM-stage duration in decimal hours.
func (s Stages) REM() float64 { return hours(s.REMHours, s.REMMinutes) }

// Awake returns the in-bed awake duration in decimal hours.
func (s Stages) Awake() float64 { return hours(s.AwakeHours, s.AwakeMinutes) }

// Asleep returns the time actually asleep (deep + core + REM) in hours.
func (s Stages) Asleep() float64 { return s.Deep() + s.Core() + s.REM() }

// Total returns the whole episode duration including awake time in hours.
func (s Stages) Total() float64 { return s.Asleep() + s.Awake() }

// DurationScore scores total sleep duration against the 8-hour ideal. Meeting
// or exceeding the ideal scores 100; shorter nights fall off on a Gaussian.
func DurationScore(s Stages) scoring.Result {
	total := s.Total()
	if total == 0 {
		return scoring.Score(0)
	}
	if total >= idealTotalHours {
		return scoring.Score(100)
	}
	return scoring.Score(scoring.Gaussian(total, idealTotalHours, totalHoursSigma))
}

// EfficiencyScore is the asleep share of the whole episode, as a percentage.
func EfficiencyScore(s Stages) scoring.Result {
	total := s.Total()
	if total == 0 {
		return scoring.Score(0)
	}
	return scoring.Score(100 * s.Asleep() / total)
}

// DeepStageScore scores the deep-sleep share of time asleep against the 18%
// ideal. Too much deep sleep scores down the same as too little.
func DeepStageScore(s Stages) scoring.Result {
	return stageScore(s.Deep(), s.Asleep(), idealDeepPercent)
}

// REMStageScore scores the REM share of time asleep against the 22% ideal.
func REMStageScore(s Stages) scoring.Result {
	return stageScore(s.REM(), s.Asleep(), idealREMPercent)
}

func stageScore(stage, asleep, ideal float64) scoring.Result {
	if asleep == 0 {
		return scoring.Score(0)
	}
	pct := 100 * stage / asleep
	return scoring.Score(scoring.Gaussian(pct, ideal, stagePercentSigma))
}

// StageDistributionScore averages the REM and deep stage scores.
func StageDistributionScore(s Stages) scoring.Result {
	rem := REMStageScore(s)
	deep := DeepStageScore(s)
	return scoring.Score((rem.Value + deep.Value) / 2)
}

// OnsetLatencyScore scores minutes-to-fall-asleep against the 15-minute ideal.
// Falling asleep instantly scores below 100: it signals sleep pressure.
func OnsetLatencyScore(minutes float64) scoring.Result {
	return scoring.Score(scoring.Gaussian(minutes, idealOnsetMinutes, onsetSigma))
}

// WakeAfterOnsetScore scores minutes awake after first falling asleep; zero
// interruption is the ideal.
func WakeAfterOnsetScore(minutes float64) scoring.Result {
	return scoring.Score(scoring.Gaussian(minutes, 0, wakeSigma))
}

// HeartRateDipScore scores the overnight heart-rate dip relative to the
// resting rate. A dip of 20% or more scores 100; a zero resting rate cannot
// be scored and returns 0.
func HeartRateDipScore(restingHR, sleepingHR float64) scoring.Result {
	if restingHR == 0 {
		return scoring.Score(0)
	}
	dip := (restingHR - sleepingHR) / restingHR * 100
	if dip >= idealDipPercent {
		return scoring.Score(100)
	}
	return scoring.Score(scoring.Gaussian(dip, idealDipPercent, dipSigma))
}

// CircadianAlignmentScore scores how close the sleep midpoint lands to 4 AM.
// fellAsleepAt is minutes after midnight; totalSleepMinutes is the episode
// length. The score drops 20 points per hour of midpoint drift.
func CircadianAlignmentScore(fellAsleepAt, totalSleepMinutes float64) scoring.Result {
	midpoint := math.Mod(fellAsleepAt+totalSleepMinutes/2, 24*60) / 60
	return scoring.Score(math.Max(0, 100-midpointPenalty*math.Abs(midpoint-idealMidpointHour)))
}

// ConsistencyScore scores night-to-night bedtime variation in hours; a steady
// bedtime scores 100.
func ConsistencyScore(variationHours float64) scoring.Result {
	return scoring.Score(scoring.Gaussian(variationHours, 0, bedtimeSigma))
}

// CycleCountScore scores the number of observed sleep cycles against the
// five-cycle ideal, penalizing fragmented (<4) and overlong (>6) nights.
func CycleCountScore(cycles float64) scoring.Result {
	score := cycles / idealCycleCount * 100
	if cycles < 4 {
		score *= 0.90
	} else if cycles > 6 {
		score *= 0.95
	}
	return scoring.Score(score)
}

package sleep

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// fullNight mirrors a real tracker export: 2h25m deep, 4h28m core, 1h51m REM.
var fullNight = Stages{
	DeepHours: 2, DeepMinutes: 25,
	CoreHours: 4, CoreMinutes: 28,
	REMHours: 1, REMMinutes: 51,
}

func TestStagesHours(t *testing.T) {
	assert.InDelta(t, 2.4167, fullNight.Deep(), 1e-4)
	assert.InDelta(t, 4.4667, fullNight.Core(), 1e-4)
	assert.InDelta(t, 1.85, fullNight.REM(), 1e-4)
	assert.InDelta(t, 8.7333, fullNight.Total(), 1e-4)
	assert.InDelta(t, fullNight.Asleep(), fullNight.Total(), 1e-12, "no awake time recorded")
}

func TestDurationScore(t *testing.T) {
	tests := []struct {
		name     string
		stages   Stages
		expected float64
		delta    float64
	}{
		{"8.73h meets the ideal", fullNight, 100, 1e-12},
		{"exactly 8h", Stages{DeepHours: 8}, 100, 1e-12},
		{"10h stays at 100", Stages{DeepHours: 10}, 100, 1e-12},
		{"6.5h one sigma short", Stages{DeepHours: 6, DeepMinutes: 30}, 60.65306597126334, 1e-9},
		{"all-zero stages", Stages{}, 0, 1e-12},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, DurationScore(tt.stages).Value, tt.delta)
		})
	}
}

func TestEfficiencyScore(t *testing.T) {
	tests := []struct {
		name     string
		stages   Stages
		expected float64
	}{
		{"no awake time is fully efficient", fullNight, 100},
		{"half the night awake", Stages{DeepHours: 1, AwakeHours: 1}, 50},
		{"all-zero stages", Stages{}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, EfficiencyScore(tt.stages).Value, 1e-9)
		})
	}
}

func TestDeepStageScore(t *testing.T) {
	// 145 of 524 asleep minutes are deep: 27.67%, well above the 18% ideal.
	got := DeepStageScore(fullNight)
	assert.InDelta(t, 15.4, got.Value, 0.05)

	assert.InDelta(t, 0, DeepStageScore(Stages{}).Value, 1e-12, "zero sleep scores zero, never NaN")
}

func TestDeepStageScoreSymmetry(t *testing.T) {
	// 13% and 23% deep sleep sit five points either side of the 18% ideal.
	below := Stages{DeepHours: 1, DeepMinutes: 18, CoreHours: 8, CoreMinutes: 42}
	above := Stages{DeepHours: 2, DeepMinutes: 18, CoreHours: 7, CoreMinutes: 42}
	assert.InDelta(t, DeepStageScore(below).Value, DeepStageScore(above).Value, 1e-9)
}

func TestREMStageScore(t *testing.T) {
	// 111 of 524 asleep minutes are REM: 21.18%, just under the 22% ideal.
	got := REMStageScore(fullNight)
	assert.InDelta(t, 98.675, got.Value, 0.05)

	assert.InDelta(t, 0, REMStageScore(Stages{}).Value, 1e-12)
}

func TestStageDistributionScore(t *testing.T) {
	rem := REMStageScore(fullNight).Value
	deep := DeepStageScore(fullNight).Value
	assert.InDelta(t, (rem+deep)/2, StageDistributionScore(fullNight).Value, 1e-9)
}

func TestOnsetLatencyScore(t *testing.T) {
	assert.InDelta(t, 100, OnsetLatencyScore(15).Value, 1e-12)
	assert.InDelta(t, 60.65306597126334, OnsetLatencyScore(5).Value, 1e-9)
	assert.InDelta(t, OnsetLatencyScore(5).Value, OnsetLatencyScore(25).Value, 1e-12,
		"instant and delayed onset score the same at equal distance")
}

func TestWakeAfterOnsetScore(t *testing.T) {
	assert.InDelta(t, 100, WakeAfterOnsetScore(0).Value, 1e-12)
	assert.InDelta(t, 60.65306597126334, WakeAfterOnsetScore(20).Value, 1e-9)
}

func TestHeartRateDipScore(t *testing.T) {
	tests := []struct {
		name      string
		restingHR float64
		sleepHR   float64
		expected  float64
	}{
		{"20 percent dip", 60, 48, 100},
		{"33 percent dip stays at 100", 60, 40, 100},
		{"15 percent dip", 60, 51, 60.65306597126334},
		{"zero resting rate", 0, 50, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, HeartRateDipScore(tt.restingHR, tt.sleepHR).Value, 1e-9)
		})
	}
}

func TestCircadianAlignmentScore(t *testing.T) {
	tests := []struct {
		name         string
		fellAsleepAt float64
		totalMinutes float64
		expected     float64
	}{
		{"midpoint exactly 4 AM", 0, 480, 100},
		{"11 PM bedtime lands midpoint at 3 AM", 1380, 480, 80},
		{"midpoint wraps past midnight", 1410, 540, 100},
		{"noon nap floors at zero", 720, 120, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, CircadianAlignmentScore(tt.fellAsleepAt, tt.totalMinutes).Value, 1e-9)
		})
	}
}

func TestConsistencyScore(t *testing.T) {
	assert.InDelta(t, 100, ConsistencyScore(0).Value, 1e-12)
	assert.InDelta(t, 60.65306597126334, ConsistencyScore(0.75).Value, 1e-9)
	assert.InDelta(t, ConsistencyScore(0.75).Value, ConsistencyScore(-0.75).Value, 1e-12)
}

func TestCycleCountScore(t *testing.T) {
	tests := []struct {
		name     string
		cycles   float64
		expected float64
	}{
		{"five cycles is ideal", 5, 100},
		{"six cycles clamps", 6, 100},
		{"seven cycles penalized then clamped", 7, 100},
		{"three cycles penalized", 3, 54},
		{"two cycles penalized", 2, 36},
		{"no cycles", 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, CycleCountScore(tt.cycles).Value, 1e-9)
		})
	}
}

func TestScoreAggregate(t *testing.T) {
	in := Input{
		Stages:                fullNight,
		MinutesToFallAsleep:   12,
		FellAsleepAtMinutes:   1380,
		RestingHeartRate:      58,
		SleepingHeartRate:     49,
		BedtimeVariationHours: 0.4,
		ObservedCycles:        5,
	}

	agg := Score(in)

	weights := agg.Weights
	sum := 0.0
	for _, w := range weights {
		sum += w
	}
	assert.InDelta(t, 0.95, sum, 1e-12, "weights keep the unmeasured share open")

	b := agg.Breakdown
	expected := weights["duration"]*b.Duration.Value +
		weights["efficiency"]*b.Efficiency.Value +
		weights["deepStage"]*b.DeepStage.Value +
		weights["remStage"]*b.REMStage.Value +
		weights["stageDistribution"]*b.StageDistribution.Value +
		weights["onsetLatency"]*b.OnsetLatency.Value +
		weights["wakeAfterOnset"]*b.WakeAfterOnset.Value +
		weights["heartRateDip"]*b.HeartRateDip.Value +
		weights["circadianAlignment"]*b.CircadianAlignment.Value +
		weights["consistency"]*b.Consistency.Value +
		weights["cycleCount"]*b.CycleCount.Value
	assert.InDelta(t, expected, agg.Score.Value, 1e-9)

	assert.GreaterOrEqual(t, agg.Score.Value, 0.0)
	assert.LessOrEqual(t, agg.Score.Value, 100.0)
	assert.NotEmpty(t, agg.Analysis)
	assert.Nil(t, agg.Score.Trend)
	assert.Nil(t, agg.Breakdown.Duration.Trend)
}

func TestScoreIdempotent(t *testing.T) {
	in := Input{Stages: fullNight, MinutesToFallAsleep: 9, RestingHeartRate: 60, SleepingHeartRate: 50, ObservedCycles: 4}
	first := Score(in)
	second := Score(in)
	assert.Equal(t, first.Score.Value, second.Score.Value)
	assert.Equal(t, first.Breakdown, second.Breakdown)
}

package energy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestVO2MaxTarget(t *testing.T) {
	tests := []struct {
		name     string
		gender   Gender
		age      int
		expected float64
	}{
		{"young male", Male, 25, 48},
		{"male bracket boundary", Male, 29, 48},
		{"male next bracket", Male, 30, 44},
		{"older female", Female, 55, 31},
		{"female past the table", Female, 70, 28},
		{"unknown gender uses the male table", Gender("other"), 25, 48},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, VO2MaxTarget(tt.gender, tt.age), 1e-12)
		})
	}
}

func TestOptimalBodyFat(t *testing.T) {
	assert.InDelta(t, 14, OptimalBodyFat(Male, 25, false), 1e-12)
	assert.InDelta(t, 9, OptimalBodyFat(Male, 25, true), 1e-12)
	assert.InDelta(t, 25, OptimalBodyFat(Female, 45, false), 1e-12)
	assert.InDelta(t, 28, OptimalBodyFat(Female, 90, false), 1e-12)
}

func TestFitnessFromVO2Max(t *testing.T) {
	tests := []struct {
		name     string
		current  float64
		expected float64
		delta    float64
	}{
		{"above target", 52, 100, 1e-12},
		{"at target", 48, 100, 1e-12},
		{"one sigma below", 38, 60.65306597126334, 1e-9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FitnessFromVO2Max(tt.current, Male, 25)
			assert.InDelta(t, tt.expected, got.Value, tt.delta)
		})
	}
}

func TestFitnessFromBodyFatIsTwoSided(t *testing.T) {
	atOptimum := FitnessFromBodyFat(14, Male, 25, false)
	assert.InDelta(t, 100, atOptimum.Value, 1e-12)

	above := FitnessFromBodyFat(19, Male, 25, false)
	below := FitnessFromBodyFat(9, Male, 25, false)
	assert.InDelta(t, 60.65306597126334, above.Value, 1e-9)
	assert.InDelta(t, above.Value, below.Value, 1e-12)
}

func TestFitnessScoreSourceSelection(t *testing.T) {
	f := func(v float64) *float64 { return &v }

	t.Run("vo2max preferred when both supplied", func(t *testing.T) {
		got := FitnessScore(f(48), f(30), Male, 25, false)
		assert.InDelta(t, 100, got.Value, 1e-12)
	})

	t.Run("body fat when vo2max absent", func(t *testing.T) {
		got := FitnessScore(nil, f(14), Male, 25, false)
		assert.InDelta(t, 100, got.Value, 1e-12)
	})

	t.Run("default when neither measured", func(t *testing.T) {
		got := FitnessScore(nil, nil, Male, 25, false)
		assert.InDelta(t, DefaultFitnessScore, got.Value, 1e-12)
	})
}

package energy

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDailyCreditDelta(t *testing.T) {
	tests := []struct {
		name     string
		capacity float64
		tee      float64
		expected float64
		delta    float64
	}{
		{"one-scale surplus", 2250, 2000, 6.093153247646119, 1e-9},
		{"one-scale deficit", 2000, 2250, -7.615941559557649, 1e-9},
		{"balanced day", 2000, 2000, 0, 1e-12},
		{"huge surplus saturates at +8", 12000, 2000, 8, 1e-9},
		{"huge deficit saturates at -10", 2000, 12000, -10, 1e-9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, DailyCreditDelta(tt.capacity, tt.tee), tt.delta)
		})
	}
}

func TestDailyCreditDeltaAsymmetry(t *testing.T) {
	// The same imbalance costs more as a deficit than it earns as a surplus.
	surplus := DailyCreditDelta(2300, 2000)
	deficit := DailyCreditDelta(2000, 2300)
	assert.Greater(t, -deficit, surplus)
}

func TestTotalCreditScore(t *testing.T) {
	assert.InDelta(t, 500, TotalCreditScore(0, 0), 1e-9)

	// Large positive sums saturate the sigmoid at the 1000-point cap.
	assert.InDelta(t, 1000, TotalCreditScore(33, 73), 1e-6)

	assert.Less(t, TotalCreditScore(-5, -3), 500.0)
	assert.Greater(t, TotalCreditScore(2, 1), 500.0)
}

func TestEnergySafeZone(t *testing.T) {
	t.Run("two records is insufficient", func(t *testing.T) {
		got := EnergySafeZone([]float64{100, 150})
		assert.False(t, got.Available)
		assert.Nil(t, got.LowerBound)
		assert.Nil(t, got.UpperBound)
		assert.Nil(t, got.Average)
		assert.NotEmpty(t, got.Message)
	})

	t.Run("three records opens the zone", func(t *testing.T) {
		got := EnergySafeZone([]float64{100, 150, 200})
		require.True(t, got.Available)
		assert.InDelta(t, 150, *got.Average, 1e-9)
		assert.InDelta(t, 100, *got.LowerBound, 1e-9)
		assert.InDelta(t, 200, *got.UpperBound, 1e-9)
		assert.Empty(t, got.Message)
	})

	t.Run("non-finite entries are skipped", func(t *testing.T) {
		got := EnergySafeZone([]float64{100, math.NaN(), 150, math.Inf(1), 200})
		require.True(t, got.Available)
		assert.InDelta(t, 150, *got.Average, 1e-9)
	})

	t.Run("non-finite entries do not count toward the minimum", func(t *testing.T) {
		got := EnergySafeZone([]float64{100, 150, math.NaN()})
		assert.False(t, got.Available)
	})

	t.Run("custom buffer", func(t *testing.T) {
		got := EnergySafeZoneWithBuffer([]float64{100, 150, 200}, 25)
		require.True(t, got.Available)
		assert.InDelta(t, 125, *got.LowerBound, 1e-9)
		assert.InDelta(t, 175, *got.UpperBound, 1e-9)
	})
}

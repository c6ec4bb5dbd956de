package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCircuitBreakerOpensAfterFailures(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 3,
		RecoveryTimeout:  time.Minute,
		SuccessThreshold: 2,
	})

	failing := errors.New("backend unreachable")

	for i := 0; i < 3; i++ {
		err := cb.Call(func() error { return failing })
		assert.Equal(t, failing, err)
	}

	assert.Equal(t, StateOpen, cb.State())

	// Calls are rejected without invoking the function
	invoked := false
	err := cb.Call(func() error {
		invoked = true
		return nil
	})

	require.Error(t, err)
	assert.False(t, invoked)

	var cbErr *CircuitBreakerError
	require.ErrorAs(t, err, &cbErr)
	assert.Equal(t, StateOpen, cbErr.State)
}

func TestCircuitBreakerRecovery(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 2,
		RecoveryTimeout:  20 * time.Millisecond,
		SuccessThreshold: 2,
	})

	failing := errors.New("backend unreachable")
	cb.Call(func() error { return failing })
	cb.Call(func() error { return failing })
	require.Equal(t, StateOpen, cb.State())

	time.Sleep(30 * time.Millisecond)

	// First probe transitions to half-open
	require.NoError(t, cb.Call(func() error { return nil }))
	assert.Equal(t, StateHalfOpen, cb.State())

	// Second success closes the circuit
	require.NoError(t, cb.Call(func() error { return nil }))
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 0, cb.Failures())
}

func TestCircuitBreakerReset(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 1})

	cb.Call(func() error { return errors.New("boom") })
	require.Equal(t, StateOpen, cb.State())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, 0, cb.Failures())

	assert.NoError(t, cb.Call(func() error { return nil }))
}

func TestCircuitBreakerRegistry(t *testing.T) {
	registry := NewCircuitBreakerRegistry()

	first := registry.GetOrCreate("backend", CircuitBreakerConfig{})
	second := registry.GetOrCreate("backend", CircuitBreakerConfig{FailureThreshold: 99})

	// Same name returns the same breaker
	assert.Same(t, first, second)

	got, exists := registry.Get("backend")
	require.True(t, exists)
	assert.Same(t, first, got)

	_, exists = registry.Get("missing")
	assert.False(t, exists)

	stats := registry.GetStats()
	assert.Contains(t, stats, "backend")
}

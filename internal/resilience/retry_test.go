package resilience

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/OksanaKushniaryk/wellness-meter/internal/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastRetryConfig(maxAttempts int) RetryConfig {
	config := DefaultRetryConfig()
	config.MaxAttempts = maxAttempts
	config.InitialDelay = time.Millisecond
	config.MaxDelay = 5 * time.Millisecond
	return config
}

func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	attempts := 0

	err := RetryWithConfig(context.Background(), fastRetryConfig(4), func() error {
		attempts++
		if attempts < 3 {
			return errors.NewNetworkError("connection reset", nil)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryStopsOnNonRetryableError(t *testing.T) {
	attempts := 0
	validationErr := errors.NewValidationError("bad date")

	err := RetryWithConfig(context.Background(), fastRetryConfig(5), func() error {
		attempts++
		return validationErr
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	attempts := 0
	netErr := errors.NewNetworkError("connection reset", nil)

	err := RetryWithConfig(context.Background(), fastRetryConfig(3), func() error {
		attempts++
		return netErr
	})

	require.Error(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryRespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, func() error {
		return errors.NewNetworkError("connection reset", nil)
	})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestRetryHTTPRetriesServerErrors(t *testing.T) {
	var calls int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt64(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	resp, err := RetryHTTP(context.Background(), fastRetryConfig(5), func() (*http.Response, error) {
		return http.Get(server.URL)
	})

	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, int64(3), atomic.LoadInt64(&calls))
}

func TestRetryHTTPDoesNotRetryClientErrors(t *testing.T) {
	var calls int64

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	resp, err := RetryHTTP(context.Background(), fastRetryConfig(5), func() (*http.Response, error) {
		return http.Get(server.URL)
	})

	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, int64(1), atomic.LoadInt64(&calls))
}

func TestRetryManagerUsesRegisteredPolicy(t *testing.T) {
	rm := NewRetryManager()
	rm.RegisterPolicy("backend", FastRetryPolicy)

	assert.Equal(t, "fast", rm.GetPolicy("backend").Name)
	assert.Equal(t, "standard", rm.GetPolicy("unknown").Name)
}

func TestCalculateDelayBackoff(t *testing.T) {
	config := RetryConfig{
		InitialDelay:  100 * time.Millisecond,
		MaxDelay:      time.Second,
		BackoffFactor: 2.0,
		JitterEnabled: false,
	}

	assert.Equal(t, 100*time.Millisecond, calculateDelay(config, 0))
	assert.Equal(t, 200*time.Millisecond, calculateDelay(config, 1))
	assert.Equal(t, 400*time.Millisecond, calculateDelay(config, 2))

	// Capped at MaxDelay
	assert.Equal(t, time.Second, calculateDelay(config, 10))
}

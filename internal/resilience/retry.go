package resilience

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/OksanaKushniaryk/wellness-meter/internal/errors"
)

// RetryConfig controls the attempt budget and the backoff curve.
type RetryConfig struct {
	MaxAttempts     int              `json:"max_attempts"`
	InitialDelay    time.Duration    `json:"initial_delay"`
	MaxDelay        time.Duration    `json:"max_delay"`
	BackoffFactor   float64          `json:"backoff_factor"`
	JitterEnabled   bool             `json:"jitter_enabled"`
	RetryableErrors func(error) bool `json:"-"`
}

// DefaultRetryConfig retries transient failures three times with doubling
// delays. Retryability follows the error category, so validation and auth
// failures never burn attempts.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:     3,
		InitialDelay:    100 * time.Millisecond,
		MaxDelay:        30 * time.Second,
		BackoffFactor:   2.0,
		JitterEnabled:   true,
		RetryableErrors: errors.IsRetryableError,
	}
}

// RetryableFunc is one attempt of an operation.
type RetryableFunc func() error

// RetryWithConfig runs fn until it succeeds, fails permanently, or the
// attempt budget runs out. The context cancels both the attempts and the
// waits between them.
func RetryWithConfig(ctx context.Context, config RetryConfig, fn RetryableFunc) error {
	retryable := config.RetryableErrors
	if retryable == nil {
		retryable = errors.IsRetryableError
	}

	var lastErr error
	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if !retryable(lastErr) {
			return lastErr
		}
		if attempt == config.MaxAttempts-1 {
			break
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(calculateDelay(config, attempt)):
		}
	}

	return lastErr
}

// Retry runs fn with the default configuration.
func Retry(ctx context.Context, fn RetryableFunc) error {
	return RetryWithConfig(ctx, DefaultRetryConfig(), fn)
}

// calculateDelay grows the delay exponentially, capped at MaxDelay, with up
// to 10% jitter so parallel failures do not retry in lockstep.
func calculateDelay(config RetryConfig, attempt int) time.Duration {
	delay := time.Duration(float64(config.InitialDelay) * math.Pow(config.BackoffFactor, float64(attempt)))
	if delay > config.MaxDelay {
		delay = config.MaxDelay
	}

	if config.JitterEnabled {
		if jitter := int64(delay / 10); jitter > 0 {
			delay += time.Duration(rand.Int63n(jitter))
		}
	}

	return delay
}

// RetryableHTTPFunc is one attempt of an HTTP call.
type RetryableHTTPFunc func() (*http.Response, error)

// RetryHTTP retries an HTTP call on transport errors and on retryable status
// codes. A response with any other status is returned as-is so the caller
// can read the body and decide. Superseded responses are closed.
func RetryHTTP(ctx context.Context, config RetryConfig, fn RetryableHTTPFunc) (*http.Response, error) {
	httpConfig := config
	httpConfig.RetryableErrors = func(err error) bool {
		var statusErr *HTTPError
		if stderrors.As(err, &statusErr) {
			return true
		}
		if config.RetryableErrors != nil {
			return config.RetryableErrors(err)
		}
		return errors.IsRetryableError(err)
	}

	var lastResp *http.Response
	err := RetryWithConfig(ctx, httpConfig, func() error {
		if lastResp != nil {
			lastResp.Body.Close()
			lastResp = nil
		}

		resp, err := fn()
		if err != nil {
			return err
		}

		lastResp = resp
		if retryableStatus(resp.StatusCode) {
			return NewHTTPError(resp.StatusCode, resp.Status)
		}
		return nil
	})

	if lastResp == nil {
		return nil, err
	}
	return lastResp, err
}

func retryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// HTTPError marks a response whose status code warranted another attempt.
type HTTPError struct {
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("retryable status: %s", e.Status)
}

// NewHTTPError wraps a retryable HTTP status as an error.
func NewHTTPError(statusCode int, status string) *HTTPError {
	return &HTTPError{StatusCode: statusCode, Status: status}
}

// RetryPolicy is a named RetryConfig.
type RetryPolicy struct {
	Name   string
	Config RetryConfig
}

var (
	// FastRetryPolicy suits health probes, where a long wait is worse
	// than a miss.
	FastRetryPolicy = RetryPolicy{
		Name: "fast",
		Config: RetryConfig{
			MaxAttempts:   3,
			InitialDelay:  50 * time.Millisecond,
			MaxDelay:      time.Second,
			BackoffFactor: 2.0,
			JitterEnabled: true,
		},
	}

	// StandardRetryPolicy covers reference API calls, which run inside a
	// request timeout and cannot afford long waits.
	StandardRetryPolicy = RetryPolicy{
		Name: "standard",
		Config: RetryConfig{
			MaxAttempts:   3,
			InitialDelay:  100 * time.Millisecond,
			MaxDelay:      10 * time.Second,
			BackoffFactor: 2.0,
			JitterEnabled: true,
		},
	}
)

// RetryManager resolves the retry policy registered for a service.
type RetryManager struct {
	policies map[string]RetryPolicy
}

func NewRetryManager() *RetryManager {
	return &RetryManager{policies: make(map[string]RetryPolicy)}
}

func (rm *RetryManager) RegisterPolicy(serviceName string, policy RetryPolicy) {
	rm.policies[serviceName] = policy
}

// GetPolicy falls back to the standard policy for unregistered services.
func (rm *RetryManager) GetPolicy(serviceName string) RetryPolicy {
	if policy, exists := rm.policies[serviceName]; exists {
		return policy
	}
	return StandardRetryPolicy
}

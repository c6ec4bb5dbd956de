package errors

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestConstructorWireFormat(t *testing.T) {
	cases := []struct {
		name     string
		err      *AppError
		wantMsg  string
		category ErrorCategory
		status   int
	}{
		{
			name:     "validation",
			err:      NewValidationError("date must use YYYY-MM-DD format"),
			wantMsg:  "[VALIDATION_ERROR] date must use YYYY-MM-DD format",
			category: CategoryValidation,
			status:   http.StatusBadRequest,
		},
		{
			name:     "not found",
			err:      NewNotFoundError("scores for 2026-08-01"),
			wantMsg:  "[NOT_FOUND] scores for 2026-08-01 not found",
			category: CategoryNotFound,
			status:   http.StatusNotFound,
		},
		{
			name:     "unauthorized",
			err:      NewUnauthorizedError("missing bearer token"),
			wantMsg:  "[UNAUTHORIZED] missing bearer token",
			category: CategoryUnauthorized,
			status:   http.StatusUnauthorized,
		},
		{
			name:     "network",
			err:      NewNetworkError("reference API unreachable", errors.New("connection refused")),
			wantMsg:  "[NETWORK_ERROR] reference API unreachable",
			category: CategoryNetwork,
			status:   http.StatusBadGateway,
		},
		{
			name:     "timeout",
			err:      NewTimeoutError("score computation timed out", nil),
			wantMsg:  "[TIMEOUT_ERROR] score computation timed out",
			category: CategoryTimeout,
			status:   http.StatusGatewayTimeout,
		},
		{
			name:     "rate limit",
			err:      NewRateLimitError("60s"),
			wantMsg:  "[RATE_LIMIT_EXCEEDED] Rate limit exceeded",
			category: CategoryRateLimit,
			status:   http.StatusTooManyRequests,
		},
		{
			name:     "external API",
			err:      NewExternalAPIError("wellness reference", errors.New("status 502")),
			wantMsg:  "[NETWORK_ERROR] wellness reference API error",
			category: CategoryExternalAPI,
			status:   http.StatusBadGateway,
		},
		{
			name:     "internal",
			err:      NewInternalError("breakdown encoding failed", nil),
			wantMsg:  "[INTERNAL_ERROR] Internal server error",
			category: CategoryInternal,
			status:   http.StatusInternalServerError,
		},
		{
			name:     "configuration",
			err:      NewConfigurationError("SESSION_SECRET is required", nil),
			wantMsg:  "[CONFIGURATION_ERROR] Configuration error",
			category: CategoryConfiguration,
			status:   http.StatusInternalServerError,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if tc.err == nil {
				t.Fatal("expected error to be created")
			}
			if got := tc.err.Error(); got != tc.wantMsg {
				t.Errorf("Error() = %q, want %q", got, tc.wantMsg)
			}
			if tc.err.Category != tc.category {
				t.Errorf("Category = %v, want %v", tc.err.Category, tc.category)
			}
			if tc.err.HTTPStatus != tc.status {
				t.Errorf("HTTPStatus = %d, want %d", tc.err.HTTPStatus, tc.status)
			}
			if tc.err.Timestamp.IsZero() {
				t.Error("Timestamp should be set")
			}
		})
	}
}

func TestValidationErrorWithMap(t *testing.T) {
	err := NewValidationErrorWithMap(map[string]string{
		"date":    "date is required",
		"profile": "profile is required",
	})

	if err.Category != CategoryValidation {
		t.Errorf("Category = %v, want %v", err.Category, CategoryValidation)
	}
	if err.HTTPStatus != http.StatusBadRequest {
		t.Errorf("HTTPStatus = %d, want 400", err.HTTPStatus)
	}
	if !strings.Contains(err.Error(), "Multiple validation errors") {
		t.Errorf("Error() = %q, want the aggregate message", err.Error())
	}
}

func TestUnwrapReturnsCause(t *testing.T) {
	cause := errors.New("connection refused")
	err := NewNetworkError("reference API unreachable", cause)

	if !errors.Is(err, cause) {
		t.Error("errors.Is should reach the wrapped cause")
	}
}

func TestToAppError(t *testing.T) {
	t.Run("nil stays nil", func(t *testing.T) {
		if got := ToAppError(nil); got != nil {
			t.Errorf("ToAppError(nil) = %v, want nil", got)
		}
	})

	t.Run("AppError passes through", func(t *testing.T) {
		original := NewValidationError("bad date")
		if got := ToAppError(original); got != original {
			t.Error("an AppError should be returned unchanged")
		}
	})

	cases := []struct {
		name     string
		err      error
		category ErrorCategory
	}{
		{"connection refused", errors.New("dial tcp: connection refused"), CategoryNetwork},
		{"unknown host", errors.New("lookup api.example.com: no such host"), CategoryNetwork},
		{"timeout text", errors.New("i/o timeout"), CategoryTimeout},
		{"context cancelled", context.Canceled, CategoryTimeout},
		{"context deadline", context.DeadlineExceeded, CategoryTimeout},
		{"anything else", errors.New("sqlite disk full"), CategoryInternal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ToAppError(tc.err)
			if got.Category != tc.category {
				t.Errorf("Category = %v, want %v", got.Category, tc.category)
			}
			if !errors.Is(got, tc.err) {
				t.Error("the converted error should wrap the original")
			}
		})
	}
}

func TestIsRetryableError(t *testing.T) {
	retryable := []error{
		NewNetworkError("connection failed", nil),
		NewTimeoutError("deadline passed", nil),
		NewRateLimitError("30s"),
		NewExternalAPIError("reference", nil),
	}
	for _, err := range retryable {
		if !IsRetryableError(err) {
			t.Errorf("expected %v to be retryable", err)
		}
	}

	permanent := []error{
		NewValidationError("bad input"),
		NewNotFoundError("day"),
		NewUnauthorizedError("no token"),
	}
	for _, err := range permanent {
		if IsRetryableError(err) {
			t.Errorf("expected %v to be permanent", err)
		}
	}
}

func TestGetRetryDelay(t *testing.T) {
	rateLimited := NewRateLimitError("60s")
	if got := GetRetryDelay(rateLimited, 2); got != 4*time.Second {
		t.Errorf("rate limit delay for attempt 2 = %v, want 4s", got)
	}

	network := NewNetworkError("flaky", nil)
	first := GetRetryDelay(network, 1)
	second := GetRetryDelay(network, 2)
	if first <= 0 {
		t.Errorf("network delay should be positive, got %v", first)
	}
	if second <= first {
		t.Errorf("network backoff should grow: attempt 1 %v, attempt 2 %v", first, second)
	}
}

func TestWrapError(t *testing.T) {
	if WrapError(nil, "loading scores") != nil {
		t.Error("wrapping nil should stay nil")
	}

	cause := errors.New("no such table")
	wrapped := WrapError(cause, "loading scores for %s", "2026-08-01")

	if !errors.Is(wrapped, cause) {
		t.Error("wrapped error should unwrap to the cause")
	}
	want := "loading scores for 2026-08-01: no such table"
	if wrapped.Error() != want {
		t.Errorf("wrapped message = %q, want %q", wrapped.Error(), want)
	}
}

type recordingCloser struct {
	closed bool
	err    error
}

func (r *recordingCloser) Close() error {
	r.closed = true
	return r.err
}

func TestSafeClose(t *testing.T) {
	closer := &recordingCloser{err: errors.New("already closed")}

	SafeClose(closer, "test resource")
	if !closer.closed {
		t.Error("Close should have been called")
	}

	SafeClose(nil, "absent resource")
}

func TestSafeExecute(t *testing.T) {
	var recovered interface{}
	SafeExecute(func() {
		panic("scoring blew up")
	}, func(r interface{}) {
		recovered = r
	})

	if recovered != "scoring blew up" {
		t.Errorf("panic handler got %v, want the panic value", recovered)
	}

	ran := false
	SafeExecute(func() { ran = true }, nil)
	if !ran {
		t.Error("function should run when nothing panics")
	}
}

func TestErrorHandlerMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(ErrorHandler())
	r.GET("/boom", func(c *gin.Context) {
		_ = c.Error(NewValidationError("date must use YYYY-MM-DD format"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
	if !strings.Contains(w.Body.String(), "validation") {
		t.Errorf("body should carry the category, got %s", w.Body.String())
	}
}

func TestRecoveryHandlerMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RecoveryHandler())
	r.GET("/panic", func(c *gin.Context) {
		panic(fmt.Errorf("nil map write"))
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/panic", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
}

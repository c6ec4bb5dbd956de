package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OksanaKushniaryk/wellness-meter/internal/resilience"
)

const (
	testEmail    = "watch@example.com"
	testPassword = "s3cret"
)

// newTestClient builds a client with millisecond retry delays
func newTestClient(baseURL string) *Client {
	client := NewClient(baseURL, testEmail, testPassword, nil)
	client.retryConfig = resilience.RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		BackoffFactor: 2.0,
	}
	return client
}

func writeLoginResponse(w http.ResponseWriter, r *http.Request, token string) {
	var creds loginRequest
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if creds.Email != testEmail || creds.Password != testPassword {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": "invalid credentials"})
		return
	}
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"data":    map[string]string{"token": token},
	})
}

func TestNewClient(t *testing.T) {
	client := NewClient("https://api.example.com/", testEmail, testPassword, nil)
	defer client.Close()

	assert.Equal(t, "https://api.example.com", client.baseURL, "trailing slash should be trimmed")
	assert.Equal(t, testEmail, client.email)
	assert.Empty(t, client.token, "token is only set after login")
	assert.NotNil(t, client.pool)
}

func TestLogin(t *testing.T) {
	var logins int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/auth/login", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		atomic.AddInt32(&logins, 1)
		writeLoginResponse(w, r, "test-bearer-token")
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	defer client.Close()

	require.NoError(t, client.Login(context.Background()))
	assert.Equal(t, "test-bearer-token", client.token)
	assert.Equal(t, int32(1), atomic.LoadInt32(&logins))
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeLoginResponse(w, r, "unused")
	}))
	defer server.Close()

	client := NewClient(server.URL, testEmail, "wrong-password", nil)
	defer client.Close()

	err := client.Login(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid credentials")
	assert.Empty(t, client.token)
}

func TestFetchDailyValues(t *testing.T) {
	var logins, fetches int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/login":
			atomic.AddInt32(&logins, 1)
			writeLoginResponse(w, r, "tok-1")
		case "/api/v1/dailyValues":
			atomic.AddInt32(&fetches, 1)
			assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))
			assert.Equal(t, "2026-08-20", r.URL.Query().Get("from"))
			assert.Equal(t, "2026-08-21", r.URL.Query().Get("to"))

			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{
				"success": true,
				"data": {
					"dailyValues": [
						{
							"date": "2026-08-20",
							"Total Sleep Score": {"value": 87.5, "normDeviation": null, "trend": 1},
							"Steps Score": {"value": 64.2, "normDeviation": -1.72, "trend": -1},
							"metrics": {"totalSleepTime": "7:30", "restingHeartRate": 58, "steps": 6400}
						},
						{
							"date": "2026-08-21",
							"Total Sleep Score": {"value": 91.0},
							"metrics": {"totalSleepTime": 463}
						}
					]
				}
			}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	defer client.Close()

	days, err := client.FetchDailyValues(context.Background(), "2026-08-20", "2026-08-21")
	require.NoError(t, err)
	require.Len(t, days, 2)

	assert.Equal(t, int32(1), atomic.LoadInt32(&logins), "first fetch should log in lazily")
	assert.Equal(t, int32(1), atomic.LoadInt32(&fetches))

	first := days[0]
	assert.Equal(t, "2026-08-20", first.Date)
	assert.Equal(t, 450.0, first.Metrics["totalSleepTime"], "H:MM durations should arrive as minutes")
	assert.Equal(t, 58.0, first.Metrics["restingHeartRate"])
	assert.Equal(t, 6400.0, first.Metrics["steps"])

	sleep := first.Scores["Total Sleep Score"]
	assert.Equal(t, 87.5, sleep.Value)
	assert.Nil(t, sleep.NormDeviation)
	require.NotNil(t, sleep.Trend)
	assert.Equal(t, 1, *sleep.Trend)

	steps := first.Scores["Steps Score"]
	require.NotNil(t, steps.NormDeviation)
	assert.Equal(t, -1.72, *steps.NormDeviation)

	second := days[1]
	assert.Equal(t, "2026-08-21", second.Date)
	assert.Equal(t, 463.0, second.Metrics["totalSleepTime"], "numeric durations pass through unchanged")
	assert.Nil(t, second.Scores["Total Sleep Score"].Trend)
}

func TestFetchDailyValuesReloginOnExpiredToken(t *testing.T) {
	var logins, fetches int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/login":
			atomic.AddInt32(&logins, 1)
			writeLoginResponse(w, r, "fresh-token")
		case "/api/v1/dailyValues":
			atomic.AddInt32(&fetches, 1)
			if r.Header.Get("Authorization") != "Bearer fresh-token" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"success": true, "data": {"dailyValues": [{"date": "2026-08-20", "metrics": {"steps": 100}}]}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	defer client.Close()
	client.token = "stale-token"

	days, err := client.FetchDailyValues(context.Background(), "2026-08-20", "2026-08-20")
	require.NoError(t, err)
	require.Len(t, days, 1)

	assert.Equal(t, int32(1), atomic.LoadInt32(&logins), "expired token should trigger exactly one re-login")
	assert.Equal(t, int32(2), atomic.LoadInt32(&fetches), "fetch should be replayed after re-login")
	assert.Equal(t, "fresh-token", client.token)
}

func TestFetchDailyValuesRetriesServerErrors(t *testing.T) {
	var fetches int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/login":
			writeLoginResponse(w, r, "tok-1")
		case "/api/v1/dailyValues":
			if atomic.AddInt32(&fetches, 1) == 1 {
				w.WriteHeader(http.StatusServiceUnavailable)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"success": true, "data": {"dailyValues": []}}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	defer client.Close()

	days, err := client.FetchDailyValues(context.Background(), "2026-08-20", "2026-08-20")
	require.NoError(t, err)
	assert.Empty(t, days)
	assert.Equal(t, int32(2), atomic.LoadInt32(&fetches), "503 should be retried")
}

func TestFetchDailyValuesAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/v1/auth/login":
			writeLoginResponse(w, r, "tok-1")
		default:
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"success": false, "error": "requested range is too large"}`))
		}
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	defer client.Close()

	_, err := client.FetchDailyValues(context.Background(), "2020-01-01", "2026-08-20")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "requested range is too large")
}

func TestFetchDailyValuesPropagatesLoginFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": "account locked"})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	defer client.Close()

	_, err := client.FetchDailyValues(context.Background(), "2026-08-20", "2026-08-20")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "account locked")
}

func TestParseDuration(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected float64
		hasError bool
	}{
		{"plain minutes", "450", 450, false},
		{"clock format", "7:30", 450, false},
		{"minutes only", "0:05", 5, false},
		{"zero", "0", 0, false},
		{"fractional minutes", "433.5", 433.5, false},
		{"surrounding whitespace", " 7:30 ", 450, false},
		{"negative minutes", "-12", 0, true},
		{"minute part overflow", "7:75", 0, true},
		{"not a duration", "soon", 0, true},
		{"seconds included", "1:02:03", 0, true},
		{"empty string", "", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := ParseDuration(tt.input)
			if tt.hasError {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.expected, result)
			}
		})
	}
}

func TestParseDailyValue(t *testing.T) {
	t.Run("missing date", func(t *testing.T) {
		_, err := parseDailyValue(json.RawMessage(`{"metrics": {"steps": 100}}`))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "missing its date")
	})

	t.Run("skips unparseable metrics", func(t *testing.T) {
		day, err := parseDailyValue(json.RawMessage(`{
			"date": "2026-08-20",
			"metrics": {"steps": 100, "note": "felt great", "synced": true}
		}`))
		require.NoError(t, err)
		assert.Equal(t, 100.0, day.Metrics["steps"])
		assert.NotContains(t, day.Metrics, "note")
		assert.NotContains(t, day.Metrics, "synced")
	})

	t.Run("malformed score record", func(t *testing.T) {
		_, err := parseDailyValue(json.RawMessage(`{
			"date": "2026-08-20",
			"Total Sleep Score": "not an object"
		}`))
		assert.Error(t, err)
	})
}

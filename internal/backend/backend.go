package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/OksanaKushniaryk/wellness-meter/internal/monitoring"
	"github.com/OksanaKushniaryk/wellness-meter/internal/resilience"
	"github.com/OksanaKushniaryk/wellness-meter/internal/types"
)

// serviceName keys the circuit breaker and degradation tracking
const serviceName = "wellness-backend"

// apiEnvelope is the reference API's response wrapper
type apiEnvelope struct {
	Success bool            `json:"success"`
	Error   string          `json:"error"`
	Data    json.RawMessage `json:"data"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginData struct {
	Token string `json:"token"`
}

type dailyValuesData struct {
	DailyValues []json.RawMessage `json:"dailyValues"`
}

// Client fetches scored daily values from the reference wellness API
type Client struct {
	baseURL  string
	email    string
	password string

	mu    sync.Mutex
	token string

	pool        *resilience.ConnectionPool
	retryConfig resilience.RetryConfig
	metrics     *monitoring.Metrics
}

// NewClient creates a reference API client with connection pooling
func NewClient(baseURL, email, password string, metrics *monitoring.Metrics) *Client {
	// Circuit breaker for the reference API
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		RecoveryTimeout:  30 * time.Second,
		SuccessThreshold: 3,
		OnStateChange: func(from, to resilience.CircuitBreakerState) {
			slog.Warn("Reference API circuit breaker state changed", "from", from, "to", to)
			if metrics == nil {
				return
			}
			switch to {
			case resilience.StateOpen:
				metrics.IncrementCircuitBreakerOpen()
			case resilience.StateClosed:
				metrics.IncrementCircuitBreakerClose()
			}
		},
	})
	resilience.TrackCircuitBreaker(serviceName, cb)

	pool := resilience.NewConnectionPool(10, 20, 30*time.Second, cb)

	resilience.RegisterService(serviceName, nil)

	return &Client{
		baseURL:     strings.TrimRight(baseURL, "/"),
		email:       email,
		password:    password,
		pool:        pool,
		retryConfig: resilience.StandardRetryPolicy.Config,
		metrics:     metrics,
	}
}

// Login authenticates against the reference API and stores the bearer token
func (c *Client) Login(ctx context.Context) error {
	payload, err := json.Marshal(loginRequest{Email: c.email, Password: c.password})
	if err != nil {
		return fmt.Errorf("failed to encode login request: %w", err)
	}

	resp, err := c.makeRequest(ctx, http.MethodPost, "/api/v1/auth/login", payload, false)
	if err != nil {
		c.recordOutcome(false)
		return fmt.Errorf("login request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.recordOutcome(false)
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("wellness API login error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		c.recordOutcome(false)
		return fmt.Errorf("failed to decode login response: %w", err)
	}

	if !envelope.Success {
		c.recordOutcome(false)
		return fmt.Errorf("wellness API login rejected: %s", envelope.Error)
	}

	var data loginData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		c.recordOutcome(false)
		return fmt.Errorf("failed to decode login token: %w", err)
	}
	if data.Token == "" {
		c.recordOutcome(false)
		return fmt.Errorf("wellness API login returned an empty token")
	}

	c.mu.Lock()
	c.token = data.Token
	c.mu.Unlock()

	c.recordOutcome(true)
	return nil
}

// FetchDailyValues fetches scored daily values for [from, to] (YYYY-MM-DD,
// inclusive). Raw metrics arrive loosely typed; "H:MM" duration strings are
// normalized to minutes here so downstream consumers only see numbers.
func (c *Client) FetchDailyValues(ctx context.Context, from, to string) ([]types.DailyValue, error) {
	if err := c.ensureToken(ctx); err != nil {
		return nil, err
	}

	path := fmt.Sprintf("/api/v1/dailyValues?from=%s&to=%s", url.QueryEscape(from), url.QueryEscape(to))

	resp, err := c.makeRequest(ctx, http.MethodGet, path, nil, true)
	if err != nil {
		c.recordOutcome(false)
		return nil, fmt.Errorf("failed to fetch daily values: %w", err)
	}

	// Expired token: re-login once and retry
	if resp.StatusCode == http.StatusUnauthorized {
		resp.Body.Close()

		c.mu.Lock()
		c.token = ""
		c.mu.Unlock()

		if err := c.Login(ctx); err != nil {
			return nil, err
		}
		resp, err = c.makeRequest(ctx, http.MethodGet, path, nil, true)
		if err != nil {
			c.recordOutcome(false)
			return nil, fmt.Errorf("failed to fetch daily values: %w", err)
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.recordOutcome(false)
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("wellness API error: status %d, body: %s", resp.StatusCode, string(body))
	}

	var envelope apiEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		c.recordOutcome(false)
		return nil, fmt.Errorf("failed to decode daily values response: %w", err)
	}

	if !envelope.Success {
		c.recordOutcome(false)
		return nil, fmt.Errorf("wellness API error: %s", envelope.Error)
	}

	var data dailyValuesData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		c.recordOutcome(false)
		return nil, fmt.Errorf("failed to decode daily values payload: %w", err)
	}

	days := make([]types.DailyValue, 0, len(data.DailyValues))
	for _, raw := range data.DailyValues {
		day, err := parseDailyValue(raw)
		if err != nil {
			c.recordOutcome(false)
			return nil, fmt.Errorf("failed to parse daily value: %w", err)
		}
		days = append(days, day)
	}

	c.recordOutcome(true)
	return days, nil
}

// ensureToken logs in lazily on the first authenticated call
func (c *Client) ensureToken(ctx context.Context) error {
	c.mu.Lock()
	token := c.token
	c.mu.Unlock()

	if token != "" {
		return nil
	}
	return c.Login(ctx)
}

// makeRequest sends one request through the pooled, retrying transport
func (c *Client) makeRequest(ctx context.Context, method, path string, body []byte, authed bool) (*http.Response, error) {
	requestURL := c.baseURL + path

	headers := map[string]string{
		"Accept":     "application/json",
		"User-Agent": "Wellness-Meter/1.0",
	}
	if body != nil {
		headers["Content-Type"] = "application/json"
	}
	if authed {
		c.mu.Lock()
		headers["Authorization"] = "Bearer " + c.token
		c.mu.Unlock()
	}

	if c.metrics != nil {
		c.metrics.IncrementBackendCalls()
	}

	config := c.retryConfig
	config.RetryableErrors = resilience.DefaultRetryConfig().RetryableErrors

	return resilience.RetryHTTP(ctx, config, func() (*http.Response, error) {
		// The body reader is rebuilt per attempt so retries resend it
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		return c.pool.DoRequest(ctx, method, requestURL, headers, reader)
	})
}

// recordOutcome feeds degradation tracking and external API metrics
func (c *Client) recordOutcome(success bool) {
	resilience.RecordRequest(serviceName, success)
	if c.metrics != nil {
		c.metrics.RecordExternalAPIRequest(serviceName, success)
	}
}

// parseDailyValue decodes one day of the flat wire shape, coercing every raw
// metric to a number
func parseDailyValue(raw json.RawMessage) (types.DailyValue, error) {
	var flat map[string]json.RawMessage
	if err := json.Unmarshal(raw, &flat); err != nil {
		return types.DailyValue{}, err
	}

	day := types.DailyValue{
		Scores:  make(map[string]types.MetricValue),
		Metrics: make(map[string]float64),
	}

	for key, value := range flat {
		switch key {
		case "date":
			if err := json.Unmarshal(value, &day.Date); err != nil {
				return types.DailyValue{}, fmt.Errorf("invalid date field: %w", err)
			}
		case "metrics":
			var rawMetrics map[string]interface{}
			if err := json.Unmarshal(value, &rawMetrics); err != nil {
				return types.DailyValue{}, fmt.Errorf("invalid metrics object: %w", err)
			}
			for name, metricValue := range rawMetrics {
				number, err := coerceMetric(metricValue)
				if err != nil {
					slog.Warn("Skipping non-numeric metric", "metric", name, "error", err)
					continue
				}
				day.Metrics[name] = number
			}
		default:
			var mv types.MetricValue
			if err := json.Unmarshal(value, &mv); err != nil {
				return types.DailyValue{}, fmt.Errorf("invalid score record %q: %w", key, err)
			}
			day.Scores[key] = mv
		}
	}

	if day.Date == "" {
		return types.DailyValue{}, fmt.Errorf("daily value is missing its date")
	}

	return day, nil
}

// coerceMetric converts a loosely typed raw metric to a plain number
func coerceMetric(value interface{}) (float64, error) {
	switch v := value.(type) {
	case float64:
		return v, nil
	case string:
		return ParseDuration(v)
	default:
		return 0, fmt.Errorf("unsupported metric type %T", value)
	}
}

// ParseDuration parses a duration metric into minutes. The reference API
// sends total sleep time either as a plain minute count or as an "H:MM"
// clock string.
func ParseDuration(value string) (float64, error) {
	value = strings.TrimSpace(value)

	if minutes, err := strconv.ParseFloat(value, 64); err == nil {
		if minutes < 0 {
			return 0, fmt.Errorf("negative duration %q", value)
		}
		return minutes, nil
	}

	parts := strings.Split(value, ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("duration %q is neither minutes nor H:MM", value)
	}

	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid hours in duration %q", value)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid minutes in duration %q", value)
	}
	if hours < 0 || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("duration %q out of range", value)
	}

	return float64(hours*60 + minutes), nil
}

// GetPoolStats returns connection pool statistics
func (c *Client) GetPoolStats() map[string]interface{} {
	return c.pool.GetStats()
}

// Close closes the connection pool
func (c *Client) Close() error {
	return c.pool.Close()
}

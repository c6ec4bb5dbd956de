package monitoring

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newTelemetryRouter(metrics *Metrics) *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(RequestTelemetry(metrics, NewLogger()))
	r.GET("/ok", func(c *gin.Context) { c.String(http.StatusOK, "ok") })
	r.GET("/missing", func(c *gin.Context) { c.String(http.StatusNotFound, "nope") })
	r.GET("/boom", func(c *gin.Context) { c.String(http.StatusInternalServerError, "boom") })
	return r
}

func TestRequestTelemetryCountsOutcomes(t *testing.T) {
	metrics := NewMetrics()
	r := newTelemetryRouter(metrics)

	for _, path := range []string{"/ok", "/ok", "/missing", "/boom"} {
		w := httptest.NewRecorder()
		r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	}

	requests, errors := metrics.RequestTotals()
	assert.Equal(t, int64(4), requests)
	assert.Equal(t, int64(2), errors)

	dist := metrics.GetStatusCodeDistribution()
	assert.Equal(t, int64(2), dist[http.StatusOK])
	assert.Equal(t, int64(1), dist[http.StatusNotFound])
	assert.Equal(t, int64(1), dist[http.StatusInternalServerError])

	// Every request left a latency sample
	assert.NotZero(t, metrics.GetPercentileResponseTime(100))
}

func TestSecurityWatchPassesRequestsThrough(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(SecurityWatch(NewLogger()))
	r.GET("/api/v1/scores", func(c *gin.Context) { c.String(http.StatusOK, "ok") })

	// Logging-only middleware: a scanner probe still reaches the handler
	req := httptest.NewRequest(http.MethodGet, "/api/v1/scores?q=union+select+1", nil)
	req.Header.Set("User-Agent", "sqlmap/1.7")

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestSQLProbeDetection(t *testing.T) {
	assert.True(t, matchesAny("q=UNION SELECT password FROM users", sqlProbePatterns))
	assert.True(t, matchesAny("id=1';--", sqlProbePatterns))
	assert.False(t, matchesAny("from=2026-08-01&to=2026-08-07", sqlProbePatterns))
	assert.False(t, matchesAny("", sqlProbePatterns))
}

func TestScannerUserAgentDetection(t *testing.T) {
	assert.True(t, matchesAny("Mozilla/5.0 sqlmap/1.7-dev", scannerUserAgents))
	assert.True(t, matchesAny("NIKTO-2.1.6", scannerUserAgents))
	assert.False(t, matchesAny("Mozilla/5.0 (Macintosh; Intel Mac OS X)", scannerUserAgents))
}

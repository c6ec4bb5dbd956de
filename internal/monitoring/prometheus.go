package monitoring

import (
	"crypto/subtle"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wellness_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"path", "method", "status"},
	)
	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "wellness_http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method"},
	)
	scoresComputedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wellness_scores_computed_total",
			Help: "Daily score computations by domain",
		},
		[]string{"domain"},
	)
	backendRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wellness_backend_requests_total",
			Help: "Reference API calls by outcome",
		},
		[]string{"outcome"},
	)
	authRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wellness_auth_rejections_total",
			Help: "Total number of unauthorized requests",
		},
		[]string{"reason"},
	)
)

var registerOnce sync.Once

// InitPrometheus registers the metrics with the default registry. Safe to
// call more than once.
func InitPrometheus() {
	registerOnce.Do(func() {
		prometheus.MustRegister(httpRequestsTotal)
		prometheus.MustRegister(httpRequestDuration)
		prometheus.MustRegister(scoresComputedTotal)
		prometheus.MustRegister(backendRequestsTotal)
		prometheus.MustRegister(authRejections)
	})
}

// PrometheusMiddleware tracks per-request counters and latencies. Uses the
// matched route template rather than the raw path so parameterized routes do
// not explode the label space.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		status := c.Writer.Status()

		httpRequestsTotal.WithLabelValues(path, c.Request.Method, http.StatusText(status)).Inc()
		httpRequestDuration.WithLabelValues(path, c.Request.Method).Observe(time.Since(start).Seconds())

		if status == http.StatusUnauthorized {
			authRejections.WithLabelValues("401_unauthorized").Inc()
		} else if status == http.StatusForbidden {
			authRejections.WithLabelValues("403_forbidden").Inc()
		}
	}
}

// ObserveScoreComputed counts one domain aggregate computation.
func ObserveScoreComputed(domain string) {
	scoresComputedTotal.WithLabelValues(domain).Inc()
}

// ObserveBackendRequest counts one reference-API call.
func ObserveBackendRequest(outcome string) {
	backendRequestsTotal.WithLabelValues(outcome).Inc()
}

// MetricsBasicAuth protects the prometheus endpoint with HTTP basic auth.
// An empty password disables the endpoint entirely.
func MetricsBasicAuth(username, password string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if password == "" {
			c.AbortWithStatus(http.StatusNotFound)
			return
		}

		user, pass, ok := c.Request.BasicAuth()
		userOK := subtle.ConstantTimeCompare([]byte(user), []byte(username)) == 1
		passOK := subtle.ConstantTimeCompare([]byte(pass), []byte(password)) == 1
		if !ok || !userOK || !passOK {
			c.Header("WWW-Authenticate", `Basic realm="Metrics"`)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		c.Next()
	}
}

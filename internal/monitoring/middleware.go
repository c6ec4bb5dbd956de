package monitoring

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
)

// RequestTelemetry feeds every request into the metrics counters and the
// structured request log.
func RequestTelemetry(metrics *Metrics, logger *Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		metrics.IncrementRequest()

		c.Next()

		duration := time.Since(start)
		status := c.Writer.Status()
		method := c.Request.Method
		path := c.Request.URL.Path

		metrics.RecordResponseTime(duration)
		metrics.RecordRequestByStatus(status)
		if status >= 400 {
			metrics.IncrementError()
		}

		logger.RequestLogger(method, path, c.ClientIP(), c.GetHeader("User-Agent"), status, duration)

		for _, ginErr := range c.Errors {
			logger.APIErrorLogger(ginErr.Err, method, path, c.ClientIP(), status)
		}

		if duration > 5*time.Second {
			logger.PerformanceLogger("slow_request", duration.Seconds(), "seconds")
		}
		if status >= 500 {
			logger.SystemLogger("server_error", fmt.Sprintf("Status %d for %s %s", status, method, path))
		}
	}
}

// maxScorePayloadBytes flags unusually large measurement submissions; a full
// daily record with week-long histories stays well under this.
const maxScorePayloadBytes = 65536

// Lowercased needles matched against the lowercased query string. Coarse on
// purpose; this only feeds the security log, it never blocks a request.
var sqlProbePatterns = []string{
	"union select",
	"union all",
	"select * from",
	"drop table",
	"delete from",
	"update users set",
	"';--",
	"/*",
	"*/",
	" xp_",
	" sp_",
}

var scannerUserAgents = []string{
	"sqlmap",
	"nmap",
	"masscan",
	"zmap",
	"dirbuster",
	"gobuster",
	"nikto",
	"acunetix",
	"openvas",
	"rapid7",
	"qualys",
	"nessus",
}

// SecurityWatch logs requests that look like probing: SQL fragments in query
// strings, oversized score submissions, and known scanner user agents.
func SecurityWatch(logger *Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		details := make(map[string]interface{})

		if rawQuery := c.Request.URL.RawQuery; matchesAny(rawQuery, sqlProbePatterns) {
			details["type"] = "potential_sql_injection"
			details["query"] = rawQuery
		}

		if c.Request.Method == http.MethodPost && strings.HasPrefix(c.Request.URL.Path, "/api/v1/scores") {
			if size := c.Request.ContentLength; size > maxScorePayloadBytes {
				details["type"] = "large_request_body"
				details["size_bytes"] = size
			}
		}

		userAgent := c.GetHeader("User-Agent")
		if matchesAny(userAgent, scannerUserAgents) {
			details["type"] = "suspicious_user_agent"
			details["user_agent"] = userAgent
		}

		if len(details) > 0 {
			logger.SecurityLogger("suspicious_activity_detected", c.ClientIP(), userAgent, details)
		}

		c.Next()
	}
}

func matchesAny(s string, patterns []string) bool {
	lowered := strings.ToLower(s)
	for _, pattern := range patterns {
		if strings.Contains(lowered, pattern) {
			return true
		}
	}
	return false
}

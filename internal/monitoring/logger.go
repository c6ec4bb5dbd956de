package monitoring

import (
	"fmt"
	"log/slog"
	"os"
	"runtime"
	"time"
)

var processStart = time.Now()

// Logger wraps slog with helpers for the event shapes this service emits.
type Logger struct {
	*slog.Logger
}

// newHandler builds the JSON handler shared by NewLogger and SetLevel, so a
// level change keeps the same attribute rewrites.
func newHandler(level slog.Level) slog.Handler {
	return slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				return slog.Attr{
					Key:   "timestamp",
					Value: slog.StringValue(a.Value.Time().Format(time.RFC3339)),
				}
			}
			return a
		},
	})
}

func NewLogger() *Logger {
	return &Logger{Logger: slog.New(newHandler(slog.LevelInfo))}
}

// SetLevel swaps the handler for one at the given level.
func (l *Logger) SetLevel(level slog.Level) {
	l.Logger = slog.New(newHandler(level))
}

// RequestLogger logs one completed HTTP request.
func (l *Logger) RequestLogger(method, path, ip, userAgent string, statusCode int, duration time.Duration) {
	l.Info("HTTP Request",
		"method", method,
		"path", path,
		"ip", ip,
		"user_agent", userAgent,
		"status_code", statusCode,
		"duration_ms", duration.Milliseconds(),
	)
}

// ScoreLogger logs one completed daily scoring operation.
func (l *Logger) ScoreLogger(date string, sleep, activity, stress float64, energyDelta float64, duration time.Duration, cacheHit bool) {
	l.Info("Scores Computed",
		"date", date,
		"sleep_score", sleep,
		"activity_score", activity,
		"stress_score", stress,
		"energy_delta", energyDelta,
		"duration_ms", duration.Milliseconds(),
		"cache_hit", cacheHit,
	)
}

// APIErrorLogger logs a handler error with the call site that reported it.
func (l *Logger) APIErrorLogger(err error, method, path, ip string, statusCode int) {
	caller := "unknown"
	if _, file, line, ok := runtime.Caller(2); ok {
		caller = fmt.Sprintf("%s:%d", file, line)
	}

	l.Error("API Error",
		"error", err.Error(),
		"method", method,
		"path", path,
		"ip", ip,
		"status_code", statusCode,
		"caller", caller,
	)
}

// SystemLogger logs a lifecycle or operational event.
func (l *Logger) SystemLogger(event, details string) {
	l.Info("System Event",
		"event", event,
		"details", details,
		"uptime", time.Since(processStart).String(),
	)
}

// SecurityLogger logs suspicious activity with whatever detail the caller
// collected.
func (l *Logger) SecurityLogger(event, ip, userAgent string, details map[string]interface{}) {
	attrs := []any{
		"event", event,
		"ip", ip,
		"user_agent", userAgent,
	}
	for key, value := range details {
		attrs = append(attrs, key, value)
	}

	l.Warn("Security Event", attrs...)
}

// PerformanceLogger logs one timing or resource measurement.
func (l *Logger) PerformanceLogger(metric string, value float64, unit string) {
	l.Info("Performance Metric",
		"metric", metric,
		"value", value,
		"unit", unit,
	)
}

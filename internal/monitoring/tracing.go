package monitoring

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// TraceID identifies one request trace.
type TraceID string

// SpanID identifies one span within a trace.
type SpanID string

// SpanStatus is the terminal state of a span.
type SpanStatus string

const (
	SpanStatusOK    SpanStatus = "ok"
	SpanStatusError SpanStatus = "error"
)

// Span is one timed operation within a trace.
type Span struct {
	TraceID   TraceID           `json:"trace_id"`
	SpanID    SpanID            `json:"span_id"`
	ParentID  *SpanID           `json:"parent_id,omitempty"`
	Service   string            `json:"service"`
	Operation string            `json:"operation"`
	StartTime time.Time         `json:"start_time"`
	EndTime   *time.Time        `json:"end_time,omitempty"`
	Duration  *time.Duration    `json:"duration,omitempty"`
	Tags      map[string]string `json:"tags,omitempty"`
	Error     string            `json:"error,omitempty"`
	Status    SpanStatus        `json:"status"`
}

type spanContextKey struct{}

// Tracer records in-process request spans. Spans live in the tracer only
// while open; completed spans go to the log.
type Tracer struct {
	service string
	logger  *Logger
	mu      sync.RWMutex
	spans   map[SpanID]*Span
}

// NewTracer creates a tracer for the named service.
func NewTracer(service string, logger *Logger) *Tracer {
	return &Tracer{
		service: service,
		logger:  logger,
		spans:   make(map[SpanID]*Span),
	}
}

// StartSpan opens a span under the trace carried by ctx, starting a new trace
// when ctx has none. The returned context carries the span for child spans.
func (t *Tracer) StartSpan(ctx context.Context, operation string, opts ...SpanOption) (*Span, context.Context) {
	var traceID TraceID
	var parentID *SpanID

	if parent := spanFromContext(ctx); parent != nil {
		traceID = parent.TraceID
		parentID = &parent.SpanID
	} else {
		traceID = TraceID(randomHex(16))
	}

	span := &Span{
		TraceID:   traceID,
		SpanID:    SpanID(randomHex(8)),
		ParentID:  parentID,
		Service:   t.service,
		Operation: operation,
		StartTime: time.Now(),
		Tags:      make(map[string]string),
		Status:    SpanStatusOK,
	}

	for _, opt := range opts {
		opt(span)
	}

	t.mu.Lock()
	t.spans[span.SpanID] = span
	t.mu.Unlock()

	return span, context.WithValue(ctx, spanContextKey{}, span)
}

// EndSpan closes the span, logs it, and drops it from the open set.
func (t *Tracer) EndSpan(span *Span, err error) {
	endTime := time.Now()
	duration := endTime.Sub(span.StartTime)

	span.EndTime = &endTime
	span.Duration = &duration
	if err != nil {
		span.Error = err.Error()
		span.Status = SpanStatusError
	}

	t.logSpan(span)

	t.mu.Lock()
	delete(t.spans, span.SpanID)
	t.mu.Unlock()
}

// SetTag sets one tag on an open span.
func (t *Tracer) SetTag(span *Span, key, value string) {
	span.Tags[key] = value
}

// SpanOption configures a span at start time.
type SpanOption func(*Span)

// WithTag sets a tag when the span starts.
func WithTag(key, value string) SpanOption {
	return func(span *Span) {
		span.Tags[key] = value
	}
}

func randomHex(n int) string {
	bytes := make([]byte, n)
	rand.Read(bytes)
	return fmt.Sprintf("%x", bytes)
}

func spanFromContext(ctx context.Context) *Span {
	span, _ := ctx.Value(spanContextKey{}).(*Span)
	return span
}

func (t *Tracer) logSpan(span *Span) {
	entry := []any{
		"trace_id", span.TraceID,
		"span_id", span.SpanID,
		"service", span.Service,
		"operation", span.Operation,
		"status", span.Status,
	}
	if span.ParentID != nil {
		entry = append(entry, "parent_id", *span.ParentID)
	}
	if span.Duration != nil {
		entry = append(entry, "duration_ms", span.Duration.Milliseconds())
	}
	if span.Error != "" {
		entry = append(entry, "error", span.Error)
	}
	for k, v := range span.Tags {
		entry = append(entry, "tag_"+k, v)
	}

	t.logger.Info("Trace span", entry...)
}

// TracingMiddleware opens a span per request, propagates it through the
// request context, and reports trace IDs in response headers.
func TracingMiddleware(tracer *Tracer) gin.HandlerFunc {
	return func(c *gin.Context) {
		operation := fmt.Sprintf("%s %s", c.Request.Method, c.Request.URL.Path)

		span, ctx := tracer.StartSpan(c.Request.Context(), operation,
			WithTag("http.method", c.Request.Method),
			WithTag("client_ip", c.ClientIP()),
		)

		c.Header("X-Trace-ID", string(span.TraceID))
		c.Header("X-Span-ID", string(span.SpanID))
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		tracer.SetTag(span, "http.status_code", fmt.Sprintf("%d", c.Writer.Status()))

		var spanErr error
		if len(c.Errors) > 0 {
			spanErr = fmt.Errorf("request errors: %v", c.Errors)
		}
		tracer.EndSpan(span, spanErr)
	}
}

// OpenSpans returns a copy of the currently open spans.
func (t *Tracer) OpenSpans() map[SpanID]*Span {
	t.mu.RLock()
	defer t.mu.RUnlock()

	spans := make(map[SpanID]*Span, len(t.spans))
	for id, span := range t.spans {
		spans[id] = span
	}
	return spans
}

// OpenSpanCount returns how many spans are currently open.
func (t *Tracer) OpenSpanCount() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.spans)
}

// TraceOperation runs fn inside its own span, recording panics as span
// errors before re-raising them.
func (t *Tracer) TraceOperation(ctx context.Context, operation string, fn func(context.Context) error) error {
	span, spanCtx := t.StartSpan(ctx, operation)

	defer func() {
		if r := recover(); r != nil {
			t.EndSpan(span, fmt.Errorf("panic: %v", r))
			panic(r)
		}
	}()

	err := fn(spanCtx)
	t.EndSpan(span, err)
	return err
}

var globalTracer *Tracer

// InitGlobalTracer installs the process-wide tracer.
func InitGlobalTracer(service string, logger *Logger) {
	globalTracer = NewTracer(service, logger)
}

// GetGlobalTracer returns the process-wide tracer.
func GetGlobalTracer() *Tracer {
	return globalTracer
}

package monitoring

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// responseSampleCap bounds the latency window used for percentiles.
const responseSampleCap = 1000

// Metrics aggregates request, cache, scoring, and dependency counters for the
// stats endpoint. Plain counters are atomics; the latency window and the
// per-label maps take their own locks.
type Metrics struct {
	startTime time.Time

	requestCount   int64
	errorCount     int64
	cacheHits      int64
	cacheMisses    int64
	scoresComputed int64
	backendCalls   int64

	breakerOpens  int64
	breakerCloses int64

	// Lifetime totals for the average; the window below only covers the
	// most recent samples.
	responseTotalNs int64
	responseSamples int64

	respMu     sync.RWMutex
	respWindow []time.Duration
	respNext   int

	statusMu     sync.RWMutex
	statusCounts map[int]int64

	apiMu     sync.RWMutex
	apiCalls  map[string]int64
	apiErrors map[string]int64

	rateLimitIPBlocks    int64
	rateLimitUserBlocks  int64
	rateLimitRedisErrors int64
	rateLimitFallbacks   int64

	blockMu        sync.RWMutex
	endpointBlocks map[string]int64
}

func NewMetrics() *Metrics {
	return &Metrics{
		startTime:      time.Now(),
		respWindow:     make([]time.Duration, 0, responseSampleCap),
		statusCounts:   make(map[int]int64),
		apiCalls:       make(map[string]int64),
		apiErrors:      make(map[string]int64),
		endpointBlocks: make(map[string]int64),
	}
}

func (m *Metrics) IncrementRequest() {
	atomic.AddInt64(&m.requestCount, 1)
}

func (m *Metrics) IncrementError() {
	atomic.AddInt64(&m.errorCount, 1)
}

func (m *Metrics) IncrementCacheHit() {
	atomic.AddInt64(&m.cacheHits, 1)
}

func (m *Metrics) IncrementCacheMiss() {
	atomic.AddInt64(&m.cacheMisses, 1)
}

// IncrementScoresComputed counts one daily scoring operation.
func (m *Metrics) IncrementScoresComputed() {
	atomic.AddInt64(&m.scoresComputed, 1)
}

// IncrementBackendCalls counts one reference-API call.
func (m *Metrics) IncrementBackendCalls() {
	atomic.AddInt64(&m.backendCalls, 1)
}

func (m *Metrics) IncrementCircuitBreakerOpen() {
	atomic.AddInt64(&m.breakerOpens, 1)
}

func (m *Metrics) IncrementCircuitBreakerClose() {
	atomic.AddInt64(&m.breakerCloses, 1)
}

// RecordResponseTime feeds the lifetime average and the percentile window.
// Once the window is full the oldest sample is overwritten.
func (m *Metrics) RecordResponseTime(duration time.Duration) {
	atomic.AddInt64(&m.responseTotalNs, duration.Nanoseconds())
	atomic.AddInt64(&m.responseSamples, 1)

	m.respMu.Lock()
	if len(m.respWindow) < responseSampleCap {
		m.respWindow = append(m.respWindow, duration)
	} else {
		m.respWindow[m.respNext] = duration
		m.respNext = (m.respNext + 1) % responseSampleCap
	}
	m.respMu.Unlock()
}

// RecordRequestByStatus counts one response under its HTTP status code.
func (m *Metrics) RecordRequestByStatus(statusCode int) {
	m.statusMu.Lock()
	defer m.statusMu.Unlock()
	m.statusCounts[statusCode]++
}

// RecordExternalAPIRequest counts one upstream call and, on failure, one
// upstream error.
func (m *Metrics) RecordExternalAPIRequest(apiName string, success bool) {
	m.apiMu.Lock()
	defer m.apiMu.Unlock()

	m.apiCalls[apiName]++
	if !success {
		m.apiErrors[apiName]++
	}
}

// RequestTotals returns the lifetime request and error counts.
func (m *Metrics) RequestTotals() (requests, errors int64) {
	return atomic.LoadInt64(&m.requestCount), atomic.LoadInt64(&m.errorCount)
}

// ExternalAPITotals sums calls and errors across every upstream API.
func (m *Metrics) ExternalAPITotals() (requests, errors int64) {
	m.apiMu.RLock()
	defer m.apiMu.RUnlock()

	for _, count := range m.apiCalls {
		requests += count
	}
	for _, count := range m.apiErrors {
		errors += count
	}
	return requests, errors
}

// GetPercentileResponseTime reads the given percentile from the sample
// window. Returns 0 before any sample arrives.
func (m *Metrics) GetPercentileResponseTime(percentile float64) time.Duration {
	m.respMu.RLock()
	samples := make([]time.Duration, len(m.respWindow))
	copy(samples, m.respWindow)
	m.respMu.RUnlock()

	if len(samples) == 0 {
		return 0
	}

	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })

	index := int(float64(len(samples)-1) * percentile / 100.0)
	if index >= len(samples) {
		index = len(samples) - 1
	}
	return samples[index]
}

// GetStatusCodeDistribution returns a copy of the per-status counts.
func (m *Metrics) GetStatusCodeDistribution() map[int]int64 {
	m.statusMu.RLock()
	defer m.statusMu.RUnlock()

	distribution := make(map[int]int64, len(m.statusCounts))
	for code, count := range m.statusCounts {
		distribution[code] = count
	}
	return distribution
}

// GetExternalAPIStats reports per-upstream call counts and error rates.
func (m *Metrics) GetExternalAPIStats() map[string]interface{} {
	m.apiMu.RLock()
	defer m.apiMu.RUnlock()

	stats := make(map[string]interface{}, len(m.apiCalls))
	for api, requests := range m.apiCalls {
		errors := m.apiErrors[api]
		errorRate := float64(0)
		if requests > 0 {
			errorRate = float64(errors) / float64(requests) * 100
		}
		stats[api] = map[string]interface{}{
			"requests":   requests,
			"errors":     errors,
			"error_rate": errorRate,
		}
	}
	return stats
}

// GetStats assembles the application block of the stats endpoint.
func (m *Metrics) GetStats() map[string]interface{} {
	requests := atomic.LoadInt64(&m.requestCount)
	errors := atomic.LoadInt64(&m.errorCount)
	cacheHits := atomic.LoadInt64(&m.cacheHits)
	cacheMisses := atomic.LoadInt64(&m.cacheMisses)

	errorRate := float64(0)
	if requests > 0 {
		errorRate = float64(errors) / float64(requests) * 100
	}

	cacheHitRate := float64(0)
	if total := cacheHits + cacheMisses; total > 0 {
		cacheHitRate = float64(cacheHits) / float64(total) * 100
	}

	avgMs := float64(0)
	if samples := atomic.LoadInt64(&m.responseSamples); samples > 0 {
		avgMs = float64(atomic.LoadInt64(&m.responseTotalNs)) / float64(samples) / 1e6
	}

	return map[string]interface{}{
		"uptime_seconds":         time.Since(m.startTime).Seconds(),
		"total_requests":         requests,
		"error_count":            errors,
		"error_rate_percent":     errorRate,
		"cache_hits":             cacheHits,
		"cache_misses":           cacheMisses,
		"cache_hit_rate_percent": cacheHitRate,
		"scores_computed":        atomic.LoadInt64(&m.scoresComputed),
		"backend_api_calls":      atomic.LoadInt64(&m.backendCalls),
		"avg_response_time_ms":   avgMs,
		"start_time":             m.startTime.Format(time.RFC3339),

		"p50_response_time_ms":     float64(m.GetPercentileResponseTime(50)) / 1e6,
		"p95_response_time_ms":     float64(m.GetPercentileResponseTime(95)) / 1e6,
		"p99_response_time_ms":     float64(m.GetPercentileResponseTime(99)) / 1e6,
		"status_code_distribution": m.GetStatusCodeDistribution(),
		"external_api_stats":       m.GetExternalAPIStats(),

		"circuit_breaker_opens":  atomic.LoadInt64(&m.breakerOpens),
		"circuit_breaker_closes": atomic.LoadInt64(&m.breakerCloses),
	}
}

func (m *Metrics) IncrementRateLimitIPBlock() {
	atomic.AddInt64(&m.rateLimitIPBlocks, 1)
}

func (m *Metrics) IncrementRateLimitUserBlock() {
	atomic.AddInt64(&m.rateLimitUserBlocks, 1)
}

func (m *Metrics) IncrementRateLimitRedisError() {
	atomic.AddInt64(&m.rateLimitRedisErrors, 1)
}

func (m *Metrics) IncrementRateLimitFallback() {
	atomic.AddInt64(&m.rateLimitFallbacks, 1)
}

// IncrementRateLimitEndpoint counts one blocked request per route template.
func (m *Metrics) IncrementRateLimitEndpoint(endpoint string) {
	m.blockMu.Lock()
	defer m.blockMu.Unlock()
	m.endpointBlocks[endpoint]++
}

// GetRateLimitStats reports limiter block counts for the admin surface.
func (m *Metrics) GetRateLimitStats() map[string]interface{} {
	m.blockMu.RLock()
	endpointCopy := make(map[string]int64, len(m.endpointBlocks))
	for endpoint, count := range m.endpointBlocks {
		endpointCopy[endpoint] = count
	}
	m.blockMu.RUnlock()

	return map[string]interface{}{
		"ip_blocks":       atomic.LoadInt64(&m.rateLimitIPBlocks),
		"user_blocks":     atomic.LoadInt64(&m.rateLimitUserBlocks),
		"redis_errors":    atomic.LoadInt64(&m.rateLimitRedisErrors),
		"fallback_count":  atomic.LoadInt64(&m.rateLimitFallbacks),
		"endpoint_blocks": endpointCopy,
	}
}

// Reset zeroes every counter and restarts the uptime clock.
func (m *Metrics) Reset() {
	atomic.StoreInt64(&m.requestCount, 0)
	atomic.StoreInt64(&m.errorCount, 0)
	atomic.StoreInt64(&m.cacheHits, 0)
	atomic.StoreInt64(&m.cacheMisses, 0)
	atomic.StoreInt64(&m.scoresComputed, 0)
	atomic.StoreInt64(&m.backendCalls, 0)
	atomic.StoreInt64(&m.breakerOpens, 0)
	atomic.StoreInt64(&m.breakerCloses, 0)
	atomic.StoreInt64(&m.responseTotalNs, 0)
	atomic.StoreInt64(&m.responseSamples, 0)
	atomic.StoreInt64(&m.rateLimitIPBlocks, 0)
	atomic.StoreInt64(&m.rateLimitUserBlocks, 0)
	atomic.StoreInt64(&m.rateLimitRedisErrors, 0)
	atomic.StoreInt64(&m.rateLimitFallbacks, 0)

	m.respMu.Lock()
	m.respWindow = m.respWindow[:0]
	m.respNext = 0
	m.respMu.Unlock()

	m.statusMu.Lock()
	m.statusCounts = make(map[int]int64)
	m.statusMu.Unlock()

	m.apiMu.Lock()
	m.apiCalls = make(map[string]int64)
	m.apiErrors = make(map[string]int64)
	m.apiMu.Unlock()

	m.blockMu.Lock()
	m.endpointBlocks = make(map[string]int64)
	m.blockMu.Unlock()

	m.startTime = time.Now()
}

// The cache layer only needs hit and miss counters.
var _ interface {
	IncrementCacheHit()
	IncrementCacheMiss()
} = (*Metrics)(nil)

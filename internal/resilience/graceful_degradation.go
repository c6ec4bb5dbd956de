package resilience

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/OksanaKushniaryk/wellness-meter/internal/errors"
)

// DegradationLevel classifies how unhealthy a dependency currently is.
type DegradationLevel int

const (
	LevelNormal DegradationLevel = iota
	LevelDegraded
	LevelCritical
	LevelEmergency
)

func (l DegradationLevel) String() string {
	switch l {
	case LevelNormal:
		return "normal"
	case LevelDegraded:
		return "degraded"
	case LevelCritical:
		return "critical"
	case LevelEmergency:
		return "emergency"
	default:
		return "unknown"
	}
}

// DegradationConfig tunes when a dependency is considered degraded and how
// often it is probed.
type DegradationConfig struct {
	HealthCheckInterval time.Duration `json:"health_check_interval"`
	DegradedThreshold   float64       `json:"degraded_threshold"`
	CriticalThreshold   float64       `json:"critical_threshold"`
	EmergencyThreshold  float64       `json:"emergency_threshold"`
	RecoveryTimeWindow  time.Duration `json:"recovery_time_window"`
	HealthCheckTimeout  time.Duration `json:"health_check_timeout"`
	MaxDegradedDuration time.Duration `json:"max_degraded_duration"`
}

func DefaultDegradationConfig() DegradationConfig {
	return DegradationConfig{
		HealthCheckInterval: 30 * time.Second,
		DegradedThreshold:   0.1,
		CriticalThreshold:   0.25,
		EmergencyThreshold:  0.5,
		RecoveryTimeWindow:  5 * time.Minute,
		HealthCheckTimeout:  5 * time.Second,
		MaxDegradedDuration: 10 * time.Minute,
	}
}

// ServiceHealth is the observed state of one dependency. Request and error
// counts cover the current RecoveryTimeWindow, not the process lifetime, so a
// dependency that stops failing can actually recover.
type ServiceHealth struct {
	ServiceName   string           `json:"service_name"`
	Level         DegradationLevel `json:"level"`
	ErrorRate     float64          `json:"error_rate"`
	TotalRequests int64            `json:"total_requests"`
	ErrorCount    int64            `json:"error_count"`
	LastError     error            `json:"-"`
	LastErrorTime time.Time        `json:"last_error_time"`
	DegradedSince *time.Time       `json:"degraded_since,omitempty"`
	StatusMessage string           `json:"status_message"`
	windowStart   time.Time
}

func (s *ServiceHealth) snapshot() *ServiceHealth {
	cp := *s
	return &cp
}

// HealthCheckFunc probes a dependency. A nil error counts as a successful
// request against the error-rate window.
type HealthCheckFunc func(ctx context.Context) error

// DegradationManager tracks error rates per dependency and maps them onto
// degradation levels the handlers and health endpoint act on.
type DegradationManager struct {
	config       DegradationConfig
	services     map[string]*ServiceHealth
	healthChecks map[string]HealthCheckFunc
	mu           sync.RWMutex
}

func NewDegradationManager(config DegradationConfig) *DegradationManager {
	return &DegradationManager{
		config:       config,
		services:     make(map[string]*ServiceHealth),
		healthChecks: make(map[string]HealthCheckFunc),
	}
}

// RegisterService starts tracking a dependency. The health check may be nil
// for dependencies that only report through RecordRequest.
func (dm *DegradationManager) RegisterService(serviceName string, healthCheck HealthCheckFunc) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	dm.services[serviceName] = &ServiceHealth{
		ServiceName:   serviceName,
		Level:         LevelNormal,
		StatusMessage: "healthy",
		windowStart:   time.Now(),
	}
	if healthCheck != nil {
		dm.healthChecks[serviceName] = healthCheck
	}

	slog.Info("Tracking dependency health", "service", serviceName)
}

// RecordRequest feeds one request outcome into the dependency's window.
func (dm *DegradationManager) RecordRequest(serviceName string, success bool) {
	if success {
		dm.record(serviceName, nil)
		return
	}
	dm.record(serviceName, errors.NewInternalError("Service request failed", nil))
}

// RecordError feeds a failed request with its actual error.
func (dm *DegradationManager) RecordError(serviceName string, err error) {
	dm.record(serviceName, err)
}

func (dm *DegradationManager) record(serviceName string, err error) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	service, ok := dm.services[serviceName]
	if !ok {
		return
	}

	if time.Since(service.windowStart) > dm.config.RecoveryTimeWindow {
		service.windowStart = time.Now()
		service.TotalRequests = 0
		service.ErrorCount = 0
	}

	service.TotalRequests++
	if err != nil {
		service.ErrorCount++
		service.LastError = err
		service.LastErrorTime = time.Now()
	}
	service.ErrorRate = float64(service.ErrorCount) / float64(service.TotalRequests)

	dm.reclassify(service)
}

// reclassify maps the current error rate onto a level. A dependency stuck at
// degraded past MaxDegradedDuration escalates to emergency so a slow burn
// cannot hide below the critical threshold forever.
func (dm *DegradationManager) reclassify(service *ServiceHealth) {
	oldLevel := service.Level
	now := time.Now()

	var newLevel DegradationLevel
	var status string
	switch {
	case service.ErrorRate >= dm.config.EmergencyThreshold:
		newLevel, status = LevelEmergency, "error rate critical"
	case service.ErrorRate >= dm.config.CriticalThreshold:
		newLevel, status = LevelCritical, "error rate high, shedding load"
	case service.ErrorRate >= dm.config.DegradedThreshold:
		newLevel, status = LevelDegraded, "error rate elevated"
	default:
		newLevel, status = LevelNormal, "healthy"
	}

	if newLevel == LevelDegraded && service.DegradedSince != nil &&
		now.Sub(*service.DegradedSince) > dm.config.MaxDegradedDuration {
		newLevel, status = LevelEmergency, "degraded too long"
	}

	if newLevel == LevelDegraded && oldLevel != LevelDegraded {
		service.DegradedSince = &now
	} else if newLevel != LevelDegraded {
		service.DegradedSince = nil
	}

	service.Level = newLevel
	service.StatusMessage = status

	if oldLevel != newLevel {
		slog.Warn("Dependency degradation level changed",
			"service", service.ServiceName,
			"old_level", oldLevel,
			"new_level", newLevel,
			"error_rate", service.ErrorRate,
			"total_requests", service.TotalRequests,
			"error_count", service.ErrorCount)
	}
}

// GetServiceHealth returns a copy of one dependency's state.
func (dm *DegradationManager) GetServiceHealth(serviceName string) (*ServiceHealth, bool) {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	service, ok := dm.services[serviceName]
	if !ok {
		return nil, false
	}
	return service.snapshot(), true
}

// GetAllServiceHealth returns a copy of every tracked dependency's state.
func (dm *DegradationManager) GetAllServiceHealth() map[string]*ServiceHealth {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	result := make(map[string]*ServiceHealth, len(dm.services))
	for name, service := range dm.services {
		result[name] = service.snapshot()
	}
	return result
}

// IsServiceAvailable reports whether callers should still use the dependency.
// Only the emergency level takes it out of rotation.
func (dm *DegradationManager) IsServiceAvailable(serviceName string) bool {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	service, ok := dm.services[serviceName]
	return ok && service.Level != LevelEmergency
}

// ShouldThrottleRequests reports whether callers should shed load.
func (dm *DegradationManager) ShouldThrottleRequests(serviceName string) bool {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	service, ok := dm.services[serviceName]
	return ok && service.Level >= LevelCritical
}

// GetThrottleFactor returns the fraction of normal load a dependency should
// receive at its current level.
func (dm *DegradationManager) GetThrottleFactor(serviceName string) float64 {
	dm.mu.RLock()
	defer dm.mu.RUnlock()

	service, ok := dm.services[serviceName]
	if !ok {
		return 1.0
	}
	switch service.Level {
	case LevelDegraded:
		return 0.7
	case LevelCritical:
		return 0.3
	case LevelEmergency:
		return 0.1
	default:
		return 1.0
	}
}

// ResetService clears a dependency's window and returns it to normal.
func (dm *DegradationManager) ResetService(serviceName string) {
	dm.mu.Lock()
	defer dm.mu.Unlock()

	service, ok := dm.services[serviceName]
	if !ok {
		return
	}
	*service = ServiceHealth{
		ServiceName:   serviceName,
		Level:         LevelNormal,
		StatusMessage: "healthy",
		windowStart:   time.Now(),
	}

	slog.Info("Dependency health reset", "service", serviceName)
}

// StartHealthChecks probes every registered dependency on the configured
// interval until the context is cancelled.
func (dm *DegradationManager) StartHealthChecks(ctx context.Context) {
	ticker := time.NewTicker(dm.config.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			dm.runHealthChecks(ctx)
		}
	}
}

func (dm *DegradationManager) runHealthChecks(ctx context.Context) {
	dm.mu.RLock()
	checks := make(map[string]HealthCheckFunc, len(dm.healthChecks))
	for name, check := range dm.healthChecks {
		checks[name] = check
	}
	dm.mu.RUnlock()

	for serviceName, healthCheck := range checks {
		go func(name string, check HealthCheckFunc) {
			checkCtx, cancel := context.WithTimeout(ctx, dm.config.HealthCheckTimeout)
			defer cancel()

			if err := check(checkCtx); err != nil {
				dm.RecordError(name, errors.WrapError(err, "health check failed for service %s", name))
				return
			}
			dm.RecordRequest(name, true)
		}(serviceName, healthCheck)
	}
}

// defaultManager backs the package-level helpers main wires dependencies into.
var defaultManager = NewDegradationManager(DefaultDegradationConfig())

// RegisterService tracks a dependency on the shared manager.
func RegisterService(serviceName string, healthCheck HealthCheckFunc) {
	defaultManager.RegisterService(serviceName, healthCheck)
}

// RecordRequest records one request outcome on the shared manager.
func RecordRequest(serviceName string, success bool) {
	defaultManager.RecordRequest(serviceName, success)
}

// GetAllServiceHealth reads every dependency's state from the shared manager.
func GetAllServiceHealth() map[string]*ServiceHealth {
	return defaultManager.GetAllServiceHealth()
}

// StartHealthChecks runs the shared manager's probe loop in the background.
func StartHealthChecks(ctx context.Context) {
	go defaultManager.StartHealthChecks(ctx)
}

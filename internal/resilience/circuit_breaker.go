package resilience

import (
	"sync"
	"sync/atomic"
	"time"
)

// CircuitBreakerState is the breaker's position in the closed/open/half-open
// cycle.
type CircuitBreakerState int32

const (
	StateClosed CircuitBreakerState = iota
	StateOpen
	StateHalfOpen
)

func (s CircuitBreakerState) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig tunes when the breaker opens and how it recovers.
// OnStateChange, when set, fires once per transition.
type CircuitBreakerConfig struct {
	FailureThreshold int           `json:"failure_threshold"`
	RecoveryTimeout  time.Duration `json:"recovery_timeout"`
	SuccessThreshold int           `json:"success_threshold"`

	OnStateChange func(from, to CircuitBreakerState) `json:"-"`
}

// CircuitBreaker fails calls fast once a dependency has shown a run of
// consecutive failures, then probes it again after RecoveryTimeout.
type CircuitBreaker struct {
	config      CircuitBreakerConfig
	state       int32
	failures    int32
	successes   int32
	nextAttempt int64 // unix nanos; read concurrently in Call
}

// NewCircuitBreaker creates a breaker, filling in defaults for zero fields.
func NewCircuitBreaker(config CircuitBreakerConfig) *CircuitBreaker {
	if config.FailureThreshold == 0 {
		config.FailureThreshold = 5
	}
	if config.RecoveryTimeout == 0 {
		config.RecoveryTimeout = 30 * time.Second
	}
	if config.SuccessThreshold == 0 {
		config.SuccessThreshold = 3
	}

	return &CircuitBreaker{
		config: config,
		state:  int32(StateClosed),
	}
}

// Call runs fn under the breaker. While open it returns a
// *CircuitBreakerError without invoking fn.
func (cb *CircuitBreaker) Call(fn func() error) error {
	if !cb.allow() {
		return NewCircuitBreakerError("circuit breaker is open", StateOpen)
	}

	if err := fn(); err != nil {
		cb.onFailure()
		return err
	}
	cb.onSuccess()
	return nil
}

// allow decides whether a call may proceed, moving an expired open breaker to
// half-open on the way.
func (cb *CircuitBreaker) allow() bool {
	if CircuitBreakerState(atomic.LoadInt32(&cb.state)) != StateOpen {
		return true
	}
	if time.Now().UnixNano() < atomic.LoadInt64(&cb.nextAttempt) {
		return false
	}
	if cb.transition(StateOpen, StateHalfOpen) {
		atomic.StoreInt32(&cb.successes, 0)
	}
	return true
}

// transition swaps states and fires the callback. Returns false when another
// goroutine got there first, so the callback fires once per change.
func (cb *CircuitBreaker) transition(from, to CircuitBreakerState) bool {
	if !atomic.CompareAndSwapInt32(&cb.state, int32(from), int32(to)) {
		return false
	}
	if cb.config.OnStateChange != nil {
		cb.config.OnStateChange(from, to)
	}
	return true
}

func (cb *CircuitBreaker) onFailure() {
	failures := atomic.AddInt32(&cb.failures, 1)
	atomic.StoreInt32(&cb.successes, 0)

	if int(failures) < cb.config.FailureThreshold {
		return
	}
	atomic.StoreInt64(&cb.nextAttempt, time.Now().Add(cb.config.RecoveryTimeout).UnixNano())
	if !cb.transition(StateClosed, StateOpen) {
		cb.transition(StateHalfOpen, StateOpen)
	}
}

func (cb *CircuitBreaker) onSuccess() {
	atomic.StoreInt32(&cb.failures, 0)

	if CircuitBreakerState(atomic.LoadInt32(&cb.state)) != StateHalfOpen {
		return
	}
	if atomic.AddInt32(&cb.successes, 1) >= int32(cb.config.SuccessThreshold) {
		cb.transition(StateHalfOpen, StateClosed)
	}
}

// State returns the breaker's current state.
func (cb *CircuitBreaker) State() CircuitBreakerState {
	return CircuitBreakerState(atomic.LoadInt32(&cb.state))
}

// Failures returns the consecutive failure count.
func (cb *CircuitBreaker) Failures() int {
	return int(atomic.LoadInt32(&cb.failures))
}

// Reset forces the breaker closed and clears its counters.
func (cb *CircuitBreaker) Reset() {
	atomic.StoreInt32(&cb.state, int32(StateClosed))
	atomic.StoreInt32(&cb.failures, 0)
	atomic.StoreInt32(&cb.successes, 0)
	atomic.StoreInt64(&cb.nextAttempt, 0)
}

// CircuitBreakerError is returned for calls rejected by an open breaker.
type CircuitBreakerError struct {
	Message string
	State   CircuitBreakerState
}

func (e *CircuitBreakerError) Error() string {
	return e.Message
}

func NewCircuitBreakerError(message string, state CircuitBreakerState) *CircuitBreakerError {
	return &CircuitBreakerError{
		Message: message,
		State:   state,
	}
}

// CircuitBreakerRegistry holds named breakers so callers and the health
// endpoint see the same instances.
type CircuitBreakerRegistry struct {
	breakers map[string]*CircuitBreaker
	mu       sync.RWMutex
}

func NewCircuitBreakerRegistry() *CircuitBreakerRegistry {
	return &CircuitBreakerRegistry{
		breakers: make(map[string]*CircuitBreaker),
	}
}

// GetOrCreate returns the breaker registered under name, creating it with
// config on first use.
func (r *CircuitBreakerRegistry) GetOrCreate(name string, config CircuitBreakerConfig) *CircuitBreaker {
	r.mu.Lock()
	defer r.mu.Unlock()

	if breaker, ok := r.breakers[name]; ok {
		return breaker
	}
	breaker := NewCircuitBreaker(config)
	r.breakers[name] = breaker
	return breaker
}

// Track registers an externally built breaker under name, replacing any
// previous entry.
func (r *CircuitBreakerRegistry) Track(name string, cb *CircuitBreaker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.breakers[name] = cb
}

// Get looks up a breaker by name.
func (r *CircuitBreakerRegistry) Get(name string) (*CircuitBreaker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	breaker, ok := r.breakers[name]
	return breaker, ok
}

// ResetAll forces every registered breaker closed.
func (r *CircuitBreakerRegistry) ResetAll() {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, breaker := range r.breakers {
		breaker.Reset()
	}
}

// GetStats reports state and failure counts for every registered breaker.
func (r *CircuitBreakerRegistry) GetStats() map[string]interface{} {
	r.mu.RLock()
	defer r.mu.RUnlock()

	stats := make(map[string]interface{}, len(r.breakers))
	for name, breaker := range r.breakers {
		stats[name] = map[string]interface{}{
			"state":    breaker.State().String(),
			"failures": breaker.Failures(),
		}
	}
	return stats
}

var globalRegistry = NewCircuitBreakerRegistry()

// TrackCircuitBreaker registers a breaker with the shared registry so it
// shows up in the health endpoint.
func TrackCircuitBreaker(name string, cb *CircuitBreaker) {
	globalRegistry.Track(name, cb)
}

// GetCircuitBreakerStats reads the shared registry.
func GetCircuitBreakerStats() map[string]interface{} {
	return globalRegistry.GetStats()
}

// ResetCircuitBreakers forces every breaker in the shared registry closed.
// Exposed to operators for recovery after a dependency outage.
func ResetCircuitBreakers() {
	globalRegistry.ResetAll()
}

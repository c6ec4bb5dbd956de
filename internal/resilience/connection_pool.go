package resilience

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

// pooledConnection is an idle client plus the time it was checked back in,
// used to expire clients that sat unused past the idle timeout.
type pooledConnection struct {
	client   *http.Client
	lastUsed time.Time
}

// ConnectionPool hands out HTTP clients that share one transport, caps the
// number checked out at once, and runs every request through a circuit
// breaker. activeConnections counts checked-out clients, not sockets; socket
// reuse is the transport's job.
type ConnectionPool struct {
	maxIdle     int
	maxActive   int
	idleTimeout time.Duration

	circuitBreaker *CircuitBreaker
	transport      *http.Transport

	mu                sync.RWMutex
	activeConnections int
	idleConnections   []*pooledConnection
}

// NewConnectionPool sizes the shared transport from the pool limits.
func NewConnectionPool(maxIdle, maxActive int, idleTimeout time.Duration, cb *CircuitBreaker) *ConnectionPool {
	transport := &http.Transport{
		MaxIdleConns:          maxIdle,
		MaxConnsPerHost:       maxActive,
		MaxIdleConnsPerHost:   maxIdle / 2,
		IdleConnTimeout:       idleTimeout,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	return &ConnectionPool{
		maxIdle:         maxIdle,
		maxActive:       maxActive,
		idleTimeout:     idleTimeout,
		circuitBreaker:  cb,
		transport:       transport,
		idleConnections: make([]*pooledConnection, 0),
	}
}

// GetClient checks a client out of the pool, preferring the most recently
// returned one. Fails when maxActive clients are already out.
func (cp *ConnectionPool) GetClient() (*http.Client, error) {
	cp.mu.Lock()
	defer cp.mu.Unlock()

	if cp.activeConnections >= cp.maxActive {
		return nil, fmt.Errorf("connection pool exhausted: %d/%d active connections", cp.activeConnections, cp.maxActive)
	}

	cp.expireIdle()

	if n := len(cp.idleConnections); n > 0 {
		conn := cp.idleConnections[n-1]
		cp.idleConnections = cp.idleConnections[:n-1]
		cp.activeConnections++

		slog.Debug("Reusing idle connection", "active", cp.activeConnections, "idle", len(cp.idleConnections))
		return conn.client, nil
	}

	client := &http.Client{
		Transport: cp.transport,
		Timeout:   30 * time.Second,
	}
	cp.activeConnections++

	slog.Debug("Created new connection", "active", cp.activeConnections, "idle", len(cp.idleConnections))
	return client, nil
}

// ReturnClient checks a client back in. Clients beyond maxIdle are dropped;
// their sockets stay with the shared transport.
func (cp *ConnectionPool) ReturnClient(client *http.Client) {
	cp.mu.Lock()
	defer cp.mu.Unlock()

	if cp.activeConnections > 0 {
		cp.activeConnections--
	}

	if len(cp.idleConnections) >= cp.maxIdle {
		slog.Debug("Connection pool full, not tracking returned connection")
		return
	}
	cp.idleConnections = append(cp.idleConnections, &pooledConnection{
		client:   client,
		lastUsed: time.Now(),
	})
	slog.Debug("Added connection to idle pool", "idle", len(cp.idleConnections))
}

// expireIdle drops idle clients older than the timeout. Caller holds the lock.
func (cp *ConnectionPool) expireIdle() {
	cutoff := time.Now().Add(-cp.idleTimeout)

	kept := cp.idleConnections[:0]
	for _, conn := range cp.idleConnections {
		if conn.lastUsed.Before(cutoff) {
			slog.Debug("Removing expired idle connection")
			continue
		}
		kept = append(kept, conn)
	}
	cp.idleConnections = kept
}

// GetStats reports pool occupancy and the breaker state.
func (cp *ConnectionPool) GetStats() map[string]interface{} {
	cp.mu.RLock()
	defer cp.mu.RUnlock()

	return map[string]interface{}{
		"active_connections":    cp.activeConnections,
		"idle_connections":      len(cp.idleConnections),
		"max_idle":              cp.maxIdle,
		"max_active":            cp.maxActive,
		"idle_timeout_ms":       cp.idleTimeout.Milliseconds(),
		"circuit_breaker_state": cp.circuitBreaker.State().String(),
	}
}

// DoRequest runs one HTTP request through the breaker with a pooled client.
// Transport errors count against the breaker; HTTP error statuses do not,
// they are the caller's to interpret.
func (cp *ConnectionPool) DoRequest(ctx context.Context, method, url string, headers map[string]string, body io.Reader) (*http.Response, error) {
	var resp *http.Response

	err := cp.circuitBreaker.Call(func() error {
		client, err := cp.GetClient()
		if err != nil {
			return err
		}
		defer cp.ReturnClient(client)

		req, err := http.NewRequestWithContext(ctx, method, url, body)
		if err != nil {
			return err
		}
		for key, value := range headers {
			req.Header.Set(key, value)
		}

		start := time.Now()
		resp, err = client.Do(req)
		duration := time.Since(start)

		if err != nil {
			slog.Warn("Request failed", "url", url, "error", err, "duration_ms", duration.Milliseconds())
			return err
		}

		slog.Debug("Request completed", "url", url, "status", resp.StatusCode, "duration_ms", duration.Milliseconds())
		return nil
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

// Close releases idle clients and the transport's kept-alive sockets.
func (cp *ConnectionPool) Close() error {
	cp.mu.Lock()
	defer cp.mu.Unlock()

	cp.transport.CloseIdleConnections()
	cp.idleConnections = nil
	cp.activeConnections = 0

	slog.Info("Connection pool closed")
	return nil
}

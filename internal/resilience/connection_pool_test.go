package resilience

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPool(maxIdle, maxActive int) *ConnectionPool {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 3})
	return NewConnectionPool(maxIdle, maxActive, 30*time.Second, cb)
}

func TestConnectionPoolReusesReturnedClients(t *testing.T) {
	pool := newTestPool(5, 10)
	defer pool.Close()

	client, err := pool.GetClient()
	require.NoError(t, err)

	pool.ReturnClient(client)

	again, err := pool.GetClient()
	require.NoError(t, err)
	assert.Same(t, client, again)

	stats := pool.GetStats()
	assert.Equal(t, 1, stats["active_connections"])
	assert.Equal(t, 0, stats["idle_connections"])
}

func TestConnectionPoolExhaustion(t *testing.T) {
	pool := newTestPool(2, 2)
	defer pool.Close()

	first, err := pool.GetClient()
	require.NoError(t, err)
	_, err = pool.GetClient()
	require.NoError(t, err)

	// Pool is at capacity
	_, err = pool.GetClient()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection pool exhausted")

	// Returning a client frees a slot
	pool.ReturnClient(first)
	_, err = pool.GetClient()
	assert.NoError(t, err)
}

func TestConnectionPoolDoRequest(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer token123", r.Header.Get("Authorization"))
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"success":true}`))
	}))
	defer server.Close()

	pool := newTestPool(5, 10)
	defer pool.Close()

	headers := map[string]string{"Authorization": "Bearer token123"}
	resp, err := pool.DoRequest(context.Background(), "GET", server.URL, headers, nil)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Client was checked back in after the request
	stats := pool.GetStats()
	assert.Equal(t, 0, stats["active_connections"])
	assert.Equal(t, 1, stats["idle_connections"])
}

func TestConnectionPoolReturnsClientOnFailure(t *testing.T) {
	pool := newTestPool(2, 2)
	defer pool.Close()

	// Unroutable address; every attempt must still release its client
	for i := 0; i < 5; i++ {
		_, err := pool.DoRequest(context.Background(), "GET", "http://127.0.0.1:1", nil, nil)
		require.Error(t, err)
	}

	stats := pool.GetStats()
	assert.Equal(t, 0, stats["active_connections"])
}

func TestConnectionPoolCircuitBreakerIntegration(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 2,
		RecoveryTimeout:  time.Minute,
	})
	pool := NewConnectionPool(2, 4, 30*time.Second, cb)
	defer pool.Close()

	for i := 0; i < 2; i++ {
		_, err := pool.DoRequest(context.Background(), "GET", "http://127.0.0.1:1", nil, nil)
		require.Error(t, err)
	}

	require.Equal(t, StateOpen, cb.State())

	// Circuit rejects before any connection is attempted
	_, err := pool.DoRequest(context.Background(), "GET", "http://127.0.0.1:1", nil, nil)
	var cbErr *CircuitBreakerError
	assert.ErrorAs(t, err, &cbErr)
}

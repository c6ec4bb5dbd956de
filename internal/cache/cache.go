package cache

import (
	"bytes"
	"crypto/md5"
	"encoding/hex"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/OksanaKushniaryk/wellness-meter/internal/monitoring"
	"github.com/gin-gonic/gin"
)

// scoresPath is the one endpoint whose responses are cached. Score
// computation is deterministic for an identical payload, so a repeat
// submission can be answered without recomputing.
const scoresPath = "/api/v1/scores"

// sweepInterval is how often the janitor removes expired entries.
const sweepInterval = 5 * time.Minute

type entry struct {
	data      []byte
	expiresAt time.Time
}

// Cache is an in-memory response cache with a fixed TTL per entry.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]entry
	ttl     time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

// NewCache creates a cache whose entries live for ttl. A background janitor
// sweeps expired entries until Stop is called.
func NewCache(ttl time.Duration) *Cache {
	c := &Cache{
		entries: make(map[string]entry),
		ttl:     ttl,
		stop:    make(chan struct{}),
	}
	go c.janitor()
	return c
}

// Stop terminates the background janitor.
func (c *Cache) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Cache) janitor() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-c.stop:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *Cache) sweep() {
	now := time.Now()

	c.mu.Lock()
	defer c.mu.Unlock()
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}

// Get returns the cached bytes for key, or false if absent or expired.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok {
		return nil, false
	}
	if time.Now().After(e.expiresAt) {
		c.mu.Lock()
		// Re-check: a Set may have refreshed the entry in between
		if cur, ok := c.entries[key]; ok && time.Now().After(cur.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return e.data, true
}

// Set stores data under key for the cache's TTL.
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = entry{data: data, expiresAt: time.Now().Add(c.ttl)}
}

// Delete removes one entry.
func (c *Cache) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]entry)
}

// Size returns the number of stored entries, expired ones included.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Stats summarizes occupancy for the stats endpoint.
func (c *Cache) Stats() map[string]interface{} {
	c.mu.RLock()
	defer c.mu.RUnlock()

	expired := 0
	now := time.Now()
	for _, e := range c.entries {
		if now.After(e.expiresAt) {
			expired++
		}
	}

	return map[string]interface{}{
		"total_items":   len(c.entries),
		"expired_items": expired,
		"active_items":  len(c.entries) - expired,
		"ttl_seconds":   c.ttl.Seconds(),
	}
}

// requestKey fingerprints a score request. The client address and metered
// user identity are part of the key: scoring also persists the day's row for
// the requesting user, so identical payloads from different callers must not
// share an entry.
func requestKey(clientIP, userID string, body []byte) string {
	h := md5.New()
	io.WriteString(h, clientIP)
	io.WriteString(h, "|")
	io.WriteString(h, userID)
	io.WriteString(h, "|")
	h.Write(body)
	return hex.EncodeToString(h.Sum(nil))
}

// Middleware serves repeated score computations from the cache. Mount it
// after the session and quota middleware so an entry can only be served to a
// caller who passed both.
func (c *Cache) Middleware(metrics *monitoring.Metrics) func(*gin.Context) {
	return func(ctx *gin.Context) {
		if ctx.Request.Method != http.MethodPost || ctx.Request.URL.Path != scoresPath {
			ctx.Next()
			return
		}

		body, err := io.ReadAll(ctx.Request.Body)
		if err != nil {
			ctx.Next()
			return
		}
		ctx.Request.Body = io.NopCloser(bytes.NewReader(body))

		key := requestKey(ctx.ClientIP(), ctx.GetString("user_id"), body)

		if data, ok := c.Get(key); ok {
			slog.Info("Score cache hit", "key", key[:8])
			metrics.IncrementCacheHit()
			ctx.Data(http.StatusOK, "application/json", data)
			ctx.Abort()
			return
		}
		metrics.IncrementCacheMiss()

		capture := &captureWriter{ResponseWriter: ctx.Writer, body: &bytes.Buffer{}}
		ctx.Writer = capture
		ctx.Next()

		// Only successful computations are worth replaying
		if capture.Status() == http.StatusOK {
			c.Set(key, capture.body.Bytes())
			slog.Info("Cached score response", "key", key[:8], "bytes", capture.body.Len())
		}
	}
}

// captureWriter duplicates the response body so it can be stored.
type captureWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *captureWriter) Write(data []byte) (int, error) {
	w.body.Write(data)
	return w.ResponseWriter.Write(data)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

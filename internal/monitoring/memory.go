package monitoring

import (
	"fmt"
	"log/slog"
	"runtime"
	"sync"
	"time"
)

// MemorySnapshot is one reading of the runtime memory state.
type MemorySnapshot struct {
	Alloc      uint64 `json:"alloc_bytes"`
	TotalAlloc uint64 `json:"total_alloc_bytes"`
	Sys        uint64 `json:"sys_bytes"`
	Mallocs    uint64 `json:"mallocs"`
	Frees      uint64 `json:"frees"`

	HeapAlloc   uint64 `json:"heap_alloc_bytes"`
	HeapSys     uint64 `json:"heap_sys_bytes"`
	HeapIdle    uint64 `json:"heap_idle_bytes"`
	HeapInuse   uint64 `json:"heap_inuse_bytes"`
	HeapObjects uint64 `json:"heap_objects"`

	GCCPUFraction float64 `json:"gc_cpu_fraction"`
	NumGC         uint32  `json:"num_gc"`
	NumGoroutine  int     `json:"num_goroutine"`

	Timestamp time.Time `json:"timestamp"`
}

// MemoryMonitor samples runtime memory usage on an interval, keeps a short
// history for rate calculations, and forces a collection when the heap grows
// past the configured threshold.
type MemoryMonitor struct {
	mu          sync.RWMutex
	current     MemorySnapshot
	history     []MemorySnapshot
	maxHistory  int
	interval    time.Duration
	gcThreshold uint64
	stop        chan struct{}
	logger      *Logger
}

// NewMemoryMonitor creates a monitor sampling at interval. gcThreshold is the
// heap size in bytes above which a manual collection is triggered.
func NewMemoryMonitor(interval time.Duration, gcThreshold uint64, logger *Logger) *MemoryMonitor {
	return &MemoryMonitor{
		history:     make([]MemorySnapshot, 0, 100),
		maxHistory:  100,
		interval:    interval,
		gcThreshold: gcThreshold,
		stop:        make(chan struct{}),
		logger:      logger,
	}
}

// Start begins sampling in a goroutine.
func (mm *MemoryMonitor) Start() {
	go func() {
		ticker := time.NewTicker(mm.interval)
		defer ticker.Stop()

		slog.Info("Memory monitoring started", "interval_ms", mm.interval.Milliseconds())

		for {
			select {
			case <-ticker.C:
				mm.sample()
			case <-mm.stop:
				slog.Info("Memory monitoring stopped")
				return
			}
		}
	}()
}

// Stop halts sampling.
func (mm *MemoryMonitor) Stop() {
	close(mm.stop)
}

func (mm *MemoryMonitor) sample() {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	snap := MemorySnapshot{
		Alloc:         ms.Alloc,
		TotalAlloc:    ms.TotalAlloc,
		Sys:           ms.Sys,
		Mallocs:       ms.Mallocs,
		Frees:         ms.Frees,
		HeapAlloc:     ms.HeapAlloc,
		HeapSys:       ms.HeapSys,
		HeapIdle:      ms.HeapIdle,
		HeapInuse:     ms.HeapInuse,
		HeapObjects:   ms.HeapObjects,
		GCCPUFraction: ms.GCCPUFraction,
		NumGC:         ms.NumGC,
		NumGoroutine:  runtime.NumGoroutine(),
		Timestamp:     time.Now(),
	}

	mm.mu.Lock()
	mm.current = snap
	mm.history = append(mm.history, snap)
	if len(mm.history) > mm.maxHistory {
		mm.history = mm.history[1:]
	}
	mm.mu.Unlock()

	if ms.HeapAlloc > mm.gcThreshold {
		slog.Info("Heap over threshold, collecting",
			"heap_alloc_mb", ms.HeapAlloc/(1024*1024),
			"threshold_mb", mm.gcThreshold/(1024*1024))

		start := time.Now()
		runtime.GC()
		mm.logger.PerformanceLogger("threshold_gc", float64(time.Since(start).Milliseconds()), "ms")
	}

	// A line in the log every 30 seconds is enough
	if snap.Timestamp.Second()%30 == 0 {
		mm.logger.SystemLogger("memory_stats", fmt.Sprintf(
			"alloc:%dMB sys:%dMB heap:%dMB/%dMB gc:%d goroutines:%d",
			snap.Alloc/(1024*1024),
			snap.Sys/(1024*1024),
			snap.HeapInuse/(1024*1024),
			snap.HeapSys/(1024*1024),
			snap.NumGC,
			snap.NumGoroutine,
		))
	}
}

// GetStats returns the latest snapshot plus derived rates for the stats
// endpoint.
func (mm *MemoryMonitor) GetStats() map[string]interface{} {
	mm.mu.RLock()
	defer mm.mu.RUnlock()

	heapUtilization := float64(0)
	if mm.current.HeapSys > 0 {
		heapUtilization = float64(mm.current.HeapInuse) / float64(mm.current.HeapSys)
	}

	mallocRate := float64(0)
	if len(mm.history) >= 2 {
		oldest := mm.history[0]
		elapsed := mm.current.Timestamp.Sub(oldest.Timestamp).Seconds()
		if elapsed > 0 {
			mallocRate = float64(mm.current.Mallocs-oldest.Mallocs) / elapsed
		}
	}

	return map[string]interface{}{
		"alloc_mb":            mm.current.Alloc / (1024 * 1024),
		"total_alloc_mb":      mm.current.TotalAlloc / (1024 * 1024),
		"sys_mb":              mm.current.Sys / (1024 * 1024),
		"heap_alloc_mb":       mm.current.HeapAlloc / (1024 * 1024),
		"heap_sys_mb":         mm.current.HeapSys / (1024 * 1024),
		"heap_inuse_mb":       mm.current.HeapInuse / (1024 * 1024),
		"heap_objects":        mm.current.HeapObjects,
		"heap_utilization":    heapUtilization,
		"malloc_rate_per_sec": mallocRate,
		"gc_cpu_fraction":     mm.current.GCCPUFraction,
		"num_gc":              mm.current.NumGC,
		"num_goroutine":       mm.current.NumGoroutine,
		"gc_threshold_mb":     mm.gcThreshold / (1024 * 1024),
		"history_count":       len(mm.history),
	}
}

// History returns a copy of the recorded snapshots, oldest first.
func (mm *MemoryMonitor) History() []MemorySnapshot {
	mm.mu.RLock()
	defer mm.mu.RUnlock()

	out := make([]MemorySnapshot, len(mm.history))
	copy(out, mm.history)
	return out
}

// ForceGC runs a collection immediately and logs its duration.
func (mm *MemoryMonitor) ForceGC() {
	start := time.Now()
	runtime.GC()
	duration := time.Since(start)

	mm.logger.PerformanceLogger("forced_gc", float64(duration.Milliseconds()), "ms")
	slog.Info("Forced garbage collection completed", "duration_ms", duration.Milliseconds())
}

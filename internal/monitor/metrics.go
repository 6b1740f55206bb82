package monitor

import (
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// SystemMetrics tracks gateway throughput and health.
type SystemMetrics struct {
	mu sync.RWMutex

	// Latency of the full signal handling path, webhook to confirmed fill.
	SignalLatency *LatencyHistogram

	signalsHandled  uint64
	ordersSubmitted uint64
	errorsCount     uint64

	byStatus map[string]uint64

	startedAt time.Time
}

// LatencyHistogram tracks latency samples with a sliding window.
// Stats are recomputed lazily, only when samples changed.
type LatencyHistogram struct {
	mu          sync.Mutex
	samples     []float64
	maxSize     int
	dirty       bool
	cachedStats LatencyStats
}

// NewSystemMetrics creates a new metrics instance.
func NewSystemMetrics() *SystemMetrics {
	return &SystemMetrics{
		SignalLatency: NewLatencyHistogram(1000),
		byStatus:      make(map[string]uint64),
		startedAt:     time.Now(),
	}
}

// NewLatencyHistogram creates a sliding window histogram.
func NewLatencyHistogram(size int) *LatencyHistogram {
	if size <= 0 {
		size = 1000
	}
	return &LatencyHistogram{
		samples: make([]float64, 0, size),
		maxSize: size,
		dirty:   true,
	}
}

// Record adds a latency sample in milliseconds.
func (h *LatencyHistogram) Record(latencyMs float64) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if len(h.samples) >= h.maxSize {
		h.samples = h.samples[1:]
	}
	h.samples = append(h.samples, latencyMs)
	h.dirty = true
}

// RecordDuration converts duration to ms and records.
func (h *LatencyHistogram) RecordDuration(d time.Duration) {
	h.Record(float64(d.Nanoseconds()) / 1e6)
}

// Stats returns min, max, avg, p50, p95, p99.
func (h *LatencyHistogram) Stats() LatencyStats {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.dirty && h.cachedStats.Count > 0 {
		return h.cachedStats
	}

	n := len(h.samples)
	if n == 0 {
		return LatencyStats{}
	}

	sorted := make([]float64, n)
	copy(sorted, h.samples)
	sort.Float64s(sorted)

	var sum float64
	min, max := sorted[0], sorted[n-1]
	for _, v := range sorted {
		sum += v
	}

	h.cachedStats = LatencyStats{
		Min:   min,
		Max:   max,
		Avg:   sum / float64(n),
		P50:   sorted[n/2],
		P95:   sorted[int(float64(n)*0.95)],
		P99:   sorted[int(float64(n)*0.99)],
		Count: n,
	}
	h.dirty = false

	return h.cachedStats
}

// LatencyStats holds computed latency statistics.
type LatencyStats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Avg   float64 `json:"avg"`
	P50   float64 `json:"p50"`
	P95   float64 `json:"p95"`
	P99   float64 `json:"p99"`
	Count int     `json:"count"`
}

// IncrementSignals increments the handled signal counter.
func (m *SystemMetrics) IncrementSignals() {
	atomic.AddUint64(&m.signalsHandled, 1)
}

// IncrementOrders increments the submitted order counter.
func (m *SystemMetrics) IncrementOrders() {
	atomic.AddUint64(&m.ordersSubmitted, 1)
}

// IncrementErrors increments the error counter.
func (m *SystemMetrics) IncrementErrors() {
	atomic.AddUint64(&m.errorsCount, 1)
}

// CountStatus increments the per-outcome counter.
func (m *SystemMetrics) CountStatus(status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byStatus[status]++
}

// MetricsSnapshot is a point-in-time view of the counters.
type MetricsSnapshot struct {
	SignalLatency   LatencyStats      `json:"signal_latency"`
	SignalsHandled  uint64            `json:"signals_handled"`
	OrdersSubmitted uint64            `json:"orders_submitted"`
	ErrorsCount     uint64            `json:"errors_count"`
	ByStatus        map[string]uint64 `json:"by_status"`
	UptimeSeconds   float64           `json:"uptime_seconds"`
	GoroutineCount  int               `json:"goroutine_count"`
	HeapAlloc       uint64            `json:"heap_alloc_bytes"`
	Timestamp       time.Time         `json:"timestamp"`
}

// GetSnapshot returns a point-in-time metrics snapshot.
func (m *SystemMetrics) GetSnapshot() MetricsSnapshot {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	m.mu.RLock()
	byStatus := make(map[string]uint64, len(m.byStatus))
	for k, v := range m.byStatus {
		byStatus[k] = v
	}
	m.mu.RUnlock()

	return MetricsSnapshot{
		SignalLatency:   m.SignalLatency.Stats(),
		SignalsHandled:  atomic.LoadUint64(&m.signalsHandled),
		OrdersSubmitted: atomic.LoadUint64(&m.ordersSubmitted),
		ErrorsCount:     atomic.LoadUint64(&m.errorsCount),
		ByStatus:        byStatus,
		UptimeSeconds:   time.Since(m.startedAt).Seconds(),
		GoroutineCount:  runtime.NumGoroutine(),
		HeapAlloc:       memStats.HeapAlloc,
		Timestamp:       time.Now(),
	}
}

// Timer helps measure operation duration.
type Timer struct {
	start     time.Time
	histogram *LatencyHistogram
}

// NewTimer creates a timer that records to the given histogram.
func NewTimer(h *LatencyHistogram) *Timer {
	return &Timer{
		start:     time.Now(),
		histogram: h,
	}
}

// Stop records elapsed time to histogram.
func (t *Timer) Stop() time.Duration {
	elapsed := time.Since(t.start)
	if t.histogram != nil {
		t.histogram.RecordDuration(elapsed)
	}
	return elapsed
}

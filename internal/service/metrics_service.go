package service

import (
	"fmt"
	"net/http"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsSnapshot is a JSON-friendly summary of process counters.
type MetricsSnapshot struct {
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CodeAttempts             uint64    `json:"code_attempts"`
	CodeCollisions           uint64    `json:"code_collisions"`
	Registrations            uint64    `json:"registrations"`
	Repairs                  uint64    `json:"repairs"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}

// MetricsService encapsulates Prometheus instrumentation and provides lightweight snapshots for API consumption.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	cacheLatency    prometheus.Observer
	cacheWrite      prometheus.Observer
	cacheHitRatio   prometheus.Gauge
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	codeAttempts    *prometheus.CounterVec
	registrations   *prometheus.CounterVec
	loginOutcomes   *prometheus.CounterVec
	repairs         *prometheus.CounterVec

	cacheHitCount        uint64
	cacheMissCount       uint64
	requestCount         uint64
	requestDurationTotal uint64
	codeAttemptCount     uint64
	codeCollisionCount   uint64
	registrationCount    uint64
	repairCount          uint64
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	cacheLatency := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_latency_seconds",
		Help:    "Latency for cache operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheWrite := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "cache_write_seconds",
		Help:    "Latency for cache set operations",
		Buckets: prometheus.DefBuckets,
	})

	cacheHitRatio := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "cache_hit_ratio",
		Help: "Ratio of cache hits to total cache lookups",
	})

	cacheHits := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_hits_total",
		Help: "Total cache hits",
	})

	cacheMisses := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "cache_misses_total",
		Help: "Total cache misses",
	})

	codeAttempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "instructor_code_attempts_total",
		Help: "Instructor code candidates checked, by result",
	}, []string{"result"})

	registrations := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "registrations_total",
		Help: "Completed registrations by role",
	}, []string{"role"})

	loginOutcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "login_validations_total",
		Help: "Login validation results by outcome",
	}, []string{"outcome"})

	repairs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "registration_repairs_total",
		Help: "Registration repair runs by result",
	}, []string{"result"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, cacheLatency, cacheWrite, cacheHitRatio, cacheHits, cacheMisses,
		codeAttempts, registrations, loginOutcomes, repairs, goroutines)

	handler := promhttp.HandlerFor(registry, promhttp.HandlerOpts{})

	return &MetricsService{
		registry:        registry,
		handler:         handler,
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		cacheLatency:    cacheLatency,
		cacheWrite:      cacheWrite,
		cacheHitRatio:   cacheHitRatio,
		cacheHits:       cacheHits,
		cacheMisses:     cacheMisses,
		codeAttempts:    codeAttempts,
		registrations:   registrations,
		loginOutcomes:   loginOutcomes,
		repairs:         repairs,
	}
}

// Handler exposes the Prometheus HTTP handler.
func (m *MetricsService) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// ObserveHTTPRequest records request metrics and aggregates simple stats for snapshots.
func (m *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	labelStatus := fmt.Sprintf("%d", status)
	m.requestDuration.WithLabelValues(method, path, labelStatus).Observe(duration.Seconds())
	m.requestTotal.WithLabelValues(method, path, labelStatus).Inc()
	atomic.AddUint64(&m.requestCount, 1)
	atomic.AddUint64(&m.requestDurationTotal, uint64(duration.Nanoseconds()))
}

// RecordCacheOperation records cache hit/miss metrics and updates hit ratio.
func (m *MetricsService) RecordCacheOperation(hit bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheLatency.Observe(duration.Seconds())
	if hit {
		m.cacheHits.Inc()
		atomic.AddUint64(&m.cacheHitCount, 1)
	} else {
		m.cacheMisses.Inc()
		atomic.AddUint64(&m.cacheMissCount, 1)
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	if total := hits + misses; total > 0 {
		m.cacheHitRatio.Set(float64(hits) / float64(total))
	}
}

// ObserveCacheWrite tracks the duration for cache write operations.
func (m *MetricsService) ObserveCacheWrite(duration time.Duration) {
	if m == nil {
		return
	}
	m.cacheWrite.Observe(duration.Seconds())
}

// RecordCodeAttempt counts one uniqueness check of a generated code.
func (m *MetricsService) RecordCodeAttempt(taken bool) {
	if m == nil {
		return
	}
	result := "available"
	if taken {
		result = "taken"
		atomic.AddUint64(&m.codeCollisionCount, 1)
	}
	m.codeAttempts.WithLabelValues(result).Inc()
	atomic.AddUint64(&m.codeAttemptCount, 1)
}

// RecordRegistration counts a completed registration.
func (m *MetricsService) RecordRegistration(role string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(role).Inc()
	atomic.AddUint64(&m.registrationCount, 1)
}

// RecordLoginValidation counts a login validation outcome.
func (m *MetricsService) RecordLoginValidation(outcome string) {
	if m == nil {
		return
	}
	m.loginOutcomes.WithLabelValues(outcome).Inc()
}

// RecordRepair counts a reconciliation run for one student.
func (m *MetricsService) RecordRepair(ok bool) {
	if m == nil {
		return
	}
	result := "repaired"
	if !ok {
		result = "failed"
	}
	m.repairs.WithLabelValues(result).Inc()
	atomic.AddUint64(&m.repairCount, 1)
}

// Snapshot returns aggregated metrics suitable for the summary endpoint.
func (m *MetricsService) Snapshot() MetricsSnapshot {
	if m == nil {
		return MetricsSnapshot{}
	}
	hits := atomic.LoadUint64(&m.cacheHitCount)
	misses := atomic.LoadUint64(&m.cacheMissCount)
	requests := atomic.LoadUint64(&m.requestCount)
	reqDuration := atomic.LoadUint64(&m.requestDurationTotal)

	var cacheRatio float64
	if totalLookups := hits + misses; totalLookups > 0 {
		cacheRatio = float64(hits) / float64(totalLookups)
	}

	var avgRequestMs float64
	if requests > 0 {
		avgRequestMs = float64(reqDuration) / float64(requests) / float64(time.Millisecond)
	}

	return MetricsSnapshot{
		RequestsTotal:            requests,
		AverageRequestDurationMs: avgRequestMs,
		CacheHits:                hits,
		CacheMisses:              misses,
		CacheHitRatio:            cacheRatio,
		CodeAttempts:             atomic.LoadUint64(&m.codeAttemptCount),
		CodeCollisions:           atomic.LoadUint64(&m.codeCollisionCount),
		Registrations:            atomic.LoadUint64(&m.registrationCount),
		Repairs:                  atomic.LoadUint64(&m.repairCount),
		Goroutines:               runtime.NumGoroutine(),
		GeneratedAt:              time.Now().UTC(),
	}
}

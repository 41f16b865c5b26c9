package middleware

import (
	"encoding/json"
	"net/http"
	"runtime"
	"strconv"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/bryanwahyu/urlsentry/internal/domain/analysis"
)

// Metrics stores application metrics
type Metrics struct {
	RequestsTotal      uint64
	RequestsInProgress uint64
	RequestsSuccess    uint64
	RequestsFailed     uint64
	AnalysesTotal      uint64
	AnalysesWarned     uint64
	AnalysesErrored    uint64
	ReputationFailures uint64
	StartTime          time.Time
}

var globalMetrics = &Metrics{
	StartTime: time.Now(),
}

var (
	promRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "urlsentry_http_requests_total",
		Help: "HTTP requests by method and status code",
	}, []string{"method", "code"})
	promAnalyses = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "urlsentry_analyses_total",
		Help: "Stored analyses by fused status",
	}, []string{"status"})
	promReputationFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "urlsentry_reputation_failures_total",
		Help: "Reputation lookups that did not complete, by service",
	}, []string{"service"})
	promCombinedScore = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "urlsentry_combined_score",
		Help:    "Distribution of fused combined scores",
		Buckets: []float64{10, 20, 30, 40, 50, 60, 70, 80, 90, 100},
	})
)

func init() {
	prometheus.MustRegister(promRequests, promAnalyses, promReputationFailures, promCombinedScore)
}

// IncrementRequests increments total request counter
func IncrementRequests() {
	atomic.AddUint64(&globalMetrics.RequestsTotal, 1)
}

// IncrementInProgress increments in-progress request counter
func IncrementInProgress() {
	atomic.AddUint64(&globalMetrics.RequestsInProgress, 1)
}

// DecrementInProgress decrements in-progress request counter
func DecrementInProgress() {
	atomic.AddUint64(&globalMetrics.RequestsInProgress, ^uint64(0))
}

// IncrementSuccess increments successful request counter
func IncrementSuccess() {
	atomic.AddUint64(&globalMetrics.RequestsSuccess, 1)
}

// IncrementFailed increments failed request counter
func IncrementFailed() {
	atomic.AddUint64(&globalMetrics.RequestsFailed, 1)
}

// RecordAnalysis counts one stored analysis. Wired as the coordinator's
// OnResult hook.
func RecordAnalysis(r *analysis.Result) {
	if r == nil {
		return
	}
	atomic.AddUint64(&globalMetrics.AnalysesTotal, 1)
	promAnalyses.WithLabelValues(string(r.Status)).Inc()

	switch {
	case r.Status == analysis.StatusError:
		atomic.AddUint64(&globalMetrics.AnalysesErrored, 1)
	case r.Status.Warns():
		atomic.AddUint64(&globalMetrics.AnalysesWarned, 1)
	}
	if r.Skipped || r.Status == analysis.StatusError {
		return
	}
	promCombinedScore.Observe(float64(r.CombinedScore))
	if r.Reputation != nil {
		for _, svc := range r.Reputation.Unchecked() {
			atomic.AddUint64(&globalMetrics.ReputationFailures, 1)
			promReputationFailures.WithLabelValues(svc).Inc()
		}
	}
}

// GetMetrics returns current metrics
func GetMetrics() map[string]interface{} {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	return map[string]interface{}{
		"requests_total":       atomic.LoadUint64(&globalMetrics.RequestsTotal),
		"requests_in_progress": atomic.LoadUint64(&globalMetrics.RequestsInProgress),
		"requests_success":     atomic.LoadUint64(&globalMetrics.RequestsSuccess),
		"requests_failed":      atomic.LoadUint64(&globalMetrics.RequestsFailed),
		"analyses_total":       atomic.LoadUint64(&globalMetrics.AnalysesTotal),
		"analyses_warned":      atomic.LoadUint64(&globalMetrics.AnalysesWarned),
		"analyses_errored":     atomic.LoadUint64(&globalMetrics.AnalysesErrored),
		"reputation_failures":  atomic.LoadUint64(&globalMetrics.ReputationFailures),
		"uptime_seconds":       time.Since(globalMetrics.StartTime).Seconds(),
		"memory": map[string]interface{}{
			"alloc_bytes":       m.Alloc,
			"total_alloc_bytes": m.TotalAlloc,
			"sys_bytes":         m.Sys,
			"num_gc":            m.NumGC,
		},
		"goroutines": runtime.NumGoroutine(),
	}
}

// MetricsMiddleware tracks request metrics
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		IncrementRequests()
		IncrementInProgress()
		defer DecrementInProgress()

		wrapped := &responseWriter{
			ResponseWriter: w,
			statusCode:     http.StatusOK,
		}

		next.ServeHTTP(wrapped, r)

		promRequests.WithLabelValues(r.Method, strconv.Itoa(wrapped.statusCode)).Inc()
		if wrapped.statusCode >= 200 && wrapped.statusCode < 400 {
			IncrementSuccess()
		} else {
			IncrementFailed()
		}
	})
}

// MetricsHandler returns metrics as JSON
func MetricsHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(GetMetrics())
}

// PrometheusHandler exposes the registered collectors.
func PrometheusHandler() http.Handler {
	return promhttp.Handler()
}

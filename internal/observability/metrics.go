package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce              sync.Once
	httpRequestsTotal         *prometheus.CounterVec
	httpLatencySeconds        *prometheus.HistogramVec
	httpErrorsTotal           *prometheus.CounterVec
	plagiarismChecksTotal     *prometheus.CounterVec
	plagiarismCheckDuration   prometheus.Histogram
	embeddingFallbacksTotal   prometheus.Counter
	notificationsPublishedVec *prometheus.CounterVec
	sseClientsActive          prometheus.Gauge
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "veritas_http_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "veritas_http_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0, 2.0},
		}, []string{"method", "route"})

		httpErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "veritas_http_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		plagiarismChecksTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "veritas",
			Subsystem: "plagiarism",
			Name:      "checks_total",
			Help:      "Total number of completed plagiarism checks by risk level.",
		}, []string{"risk"})

		plagiarismCheckDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "veritas",
			Subsystem: "plagiarism",
			Name:      "check_duration_seconds",
			Help:      "End-to-end duration of the detection pipeline.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		})

		embeddingFallbacksTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "veritas",
			Subsystem: "plagiarism",
			Name:      "embedding_fallbacks_total",
			Help:      "Checks that fell back to structural-only scoring because the embedding provider failed.",
		})

		notificationsPublishedVec = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "veritas",
			Subsystem: "notifications",
			Name:      "published_total",
			Help:      "Notifications published by type.",
		}, []string{"type"})

		sseClientsActive = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "veritas",
			Subsystem: "notifications",
			Name:      "sse_clients_active",
			Help:      "Currently connected notification stream clients.",
		})

		prometheus.MustRegister(
			httpRequestsTotal,
			httpLatencySeconds,
			httpErrorsTotal,
			plagiarismChecksTotal,
			plagiarismCheckDuration,
			embeddingFallbacksTotal,
			notificationsPublishedVec,
			sseClientsActive,
		)
	})
}

// HTTPRequests exposes the counter for API requests.
func HTTPRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return httpRequestsTotal
}

// HTTPLatency exposes the latency histogram for API requests.
func HTTPLatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return httpLatencySeconds
}

// HTTPErrors exposes the counter for API error responses.
func HTTPErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return httpErrorsTotal
}

// PlagiarismChecksTotal exposes the per-risk check counter.
func PlagiarismChecksTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return plagiarismChecksTotal
}

// PlagiarismCheckDuration exposes the pipeline duration histogram.
func PlagiarismCheckDuration() prometheus.Histogram {
	RegisterMetrics()
	return plagiarismCheckDuration
}

// EmbeddingFallbacksTotal exposes the structural-fallback counter.
func EmbeddingFallbacksTotal() prometheus.Counter {
	RegisterMetrics()
	return embeddingFallbacksTotal
}

// NotificationsPublishedTotal exposes the per-type notification counter.
func NotificationsPublishedTotal() *prometheus.CounterVec {
	RegisterMetrics()
	return notificationsPublishedVec
}

// SSEClientsActive exposes the connected stream client gauge.
func SSEClientsActive() prometheus.Gauge {
	RegisterMetrics()
	return sseClientsActive
}

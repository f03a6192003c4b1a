package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce         sync.Once
	apiRequestsTotal     *prometheus.CounterVec
	apiLatencySeconds    *prometheus.HistogramVec
	apiErrorsTotal       *prometheus.CounterVec
	analysisCacheLookups *prometheus.CounterVec
	analysisOutcomes     *prometheus.CounterVec
	reviewEventsTotal    *prometheus.CounterVec
)

// RegisterMetrics initialises the Prometheus collectors used by the API.
func RegisterMetrics() {
	registerOnce.Do(func() {
		apiRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nerus_api_requests_total",
			Help: "Total number of API requests served.",
		}, []string{"method", "route", "status"})

		apiLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nerus_api_latency_seconds",
			Help:    "Latency distribution for API requests.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0, 60.0},
		}, []string{"method", "route"})

		apiErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nerus_api_errors_total",
			Help: "Total number of error responses returned by the API.",
		}, []string{"method", "route", "status"})

		analysisCacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nerus_analysis_cache_lookups_total",
			Help: "Analysis cache lookups partitioned by result.",
		}, []string{"result"})

		analysisOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nerus_analysis_outcomes_total",
			Help: "Completed analyses partitioned by outcome and provider.",
		}, []string{"outcome", "provider"})

		reviewEventsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "nerus_review_events_total",
			Help: "Review notifications partitioned by transport and result.",
		}, []string{"transport", "result"})

		prometheus.MustRegister(apiRequestsTotal, apiLatencySeconds, apiErrorsTotal, analysisCacheLookups, analysisOutcomes, reviewEventsTotal)
	})
}

// APIRequests exposes the counter for API requests.
func APIRequests() *prometheus.CounterVec {
	RegisterMetrics()
	return apiRequestsTotal
}

// APILatency exposes the latency histogram for API requests.
func APILatency() *prometheus.HistogramVec {
	RegisterMetrics()
	return apiLatencySeconds
}

// APIErrors exposes the counter for API error responses.
func APIErrors() *prometheus.CounterVec {
	RegisterMetrics()
	return apiErrorsTotal
}

// AnalysisCacheLookups exposes the hit/miss counter of the analysis cache.
func AnalysisCacheLookups() *prometheus.CounterVec {
	RegisterMetrics()
	return analysisCacheLookups
}

// AnalysisOutcomes exposes the counter of completed analyses.
func AnalysisOutcomes() *prometheus.CounterVec {
	RegisterMetrics()
	return analysisOutcomes
}

// ReviewEvents exposes the counter of review notifications.
func ReviewEvents() *prometheus.CounterVec {
	RegisterMetrics()
	return reviewEventsTotal
}

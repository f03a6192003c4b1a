package ai

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	providerDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "nerus",
		Subsystem: "ai",
		Name:      "provider_duration_seconds",
		Help:      "Duration of LLM provider analysis requests",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60},
	}, []string{"provider", "model"})

	providerFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nerus",
		Subsystem: "ai",
		Name:      "provider_failures_total",
		Help:      "Number of LLM provider analysis failures",
	}, []string{"provider", "kind"})

	fallbacksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nerus",
		Subsystem: "ai",
		Name:      "fallbacks_total",
		Help:      "Number of analyses answered by the secondary provider",
	}, []string{"primary", "secondary"})

	normalizerRepairs = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "nerus",
		Subsystem: "ai",
		Name:      "normalizer_repairs_total",
		Help:      "Number of model responses that needed repair before use",
	}, []string{"reason"})
)

func observeFailure(provider string, err error) {
	providerFailures.WithLabelValues(provider, string(KindOf(err))).Inc()
}

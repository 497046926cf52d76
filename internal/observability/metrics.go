// Package observability holds the gateway's Prometheus metrics.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Counters are registered on the default registry; the server exposes them
// through promhttp when metrics are enabled.
var (
	chatRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polychat_chat_requests_total",
			Help: "Total chat requests by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)

	imageGenerations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "polychat_image_generations_total",
			Help: "Total image generation runs by committed service and outcome",
		},
		[]string{"service", "outcome"},
	)

	imageDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "polychat_image_generation_duration_seconds",
			Help:    "Wall time of successful image generation runs",
			Buckets: []float64{0.1, 0.5, 1, 2, 5, 10, 20, 40},
		},
	)
)

// RecordChatRequest counts one chat call. Outcome is "ok" or the normalized
// error kind.
func RecordChatRequest(provider, outcome string) {
	chatRequests.WithLabelValues(provider, outcome).Inc()
}

// RecordImageGeneration counts one fallback-chain run. Service is the
// committed adapter name, or "none" when the run timed out.
func RecordImageGeneration(service, outcome string) {
	imageGenerations.WithLabelValues(service, outcome).Inc()
}

// ObserveImageDuration records how long a successful run took.
func ObserveImageDuration(seconds float64) {
	imageDuration.Observe(seconds)
}

package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HttpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HttpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	// Provider metrics
	ProviderRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "provider_requests_total",
			Help: "Total number of mapping provider requests",
		},
		[]string{"provider", "operation", "outcome"},
	)

	ProviderRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "provider_request_duration_seconds",
			Help:    "Mapping provider request duration in seconds",
			Buckets: []float64{.05, .1, .25, .5, 1, 2, 5},
		},
		[]string{"provider", "operation"},
	)

	// Booking form metrics
	ActiveFormsGauge = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "booking_forms_active",
			Help: "Current number of open booking forms",
		},
	)

	SuggestSkippedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "suggest_skipped_total",
			Help: "Suggest requests skipped because the query was too short",
		},
	)

	StaleResponsesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "stale_responses_discarded_total",
			Help: "Provider responses discarded because a newer request superseded them",
		},
		[]string{"operation"},
	)

	HandoffsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "handoff_links_total",
			Help: "Total number of messaging handoff links produced",
		},
	)
)

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	code := strconv.Itoa(status)
	HttpRequestsTotal.WithLabelValues(method, path, code).Inc()
	HttpRequestDuration.WithLabelValues(method, path, code).Observe(duration.Seconds())
}

func RecordProviderCall(provider, operation string, duration time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	ProviderRequestsTotal.WithLabelValues(provider, operation, outcome).Inc()
	ProviderRequestDuration.WithLabelValues(provider, operation).Observe(duration.Seconds())
}

package telemetry

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
)

var (
	requestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ticketscout",
			Name:      "upstream_requests_total",
			Help:      "Outbound requests per platform, layer and outcome",
		},
		[]string{"platform", "layer", "outcome"},
	)

	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "ticketscout",
			Name:      "upstream_request_duration_seconds",
			Help:      "Duration of outbound requests",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		},
		[]string{"platform", "layer"},
	)

	botDetections = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ticketscout",
			Name:      "bot_detections_total",
			Help:      "Responses classified as captcha or challenge pages",
		},
		[]string{"platform"},
	)

	throttleWait = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ticketscout",
			Name:      "throttle_wait_seconds_total",
			Help:      "Time spent blocked by the per-platform rate limiter",
		},
		[]string{"platform"},
	)

	cacheLookups = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ticketscout",
			Name:      "cache_lookups_total",
			Help:      "API response cache lookups",
		},
		[]string{"platform", "result"},
	)

	extractionFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ticketscout",
			Name:      "extraction_failures_total",
			Help:      "Adapter calls that degraded to an empty result because of an error",
		},
		[]string{"platform", "operation"},
	)

	eventsReturned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "ticketscout",
			Name:      "events_returned_total",
			Help:      "Canonical events returned by adapters",
		},
		[]string{"platform"},
	)
)

// ObserveRequest records the outcome of a single upstream request.
func ObserveRequest(platform, layer, outcome string, elapsed time.Duration) {
	requestsTotal.WithLabelValues(platform, layer, outcome).Inc()
	requestDuration.WithLabelValues(platform, layer).Observe(elapsed.Seconds())
}

func ObserveBotDetection(platform string) {
	botDetections.WithLabelValues(platform).Inc()
}

func ObserveThrottleWait(platform string, wait time.Duration) {
	throttleWait.WithLabelValues(platform).Add(wait.Seconds())
}

// ObserveCache records a cache lookup, hit is false for misses.
func ObserveCache(platform string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	cacheLookups.WithLabelValues(platform, result).Inc()
}

// ObserveExtractionFailure counts an adapter call whose error was swallowed.
// This is what separates "extraction broke" from "no results" in dashboards.
func ObserveExtractionFailure(platform, operation string) {
	extractionFailures.WithLabelValues(platform, operation).Inc()
}

func ObserveEvents(platform string, n int) {
	eventsReturned.WithLabelValues(platform).Add(float64(n))
}

// MetricsHandler serves the default prometheus registry.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}

// ExtractionFailureCount exposes the current counter value, used by tests
// and the CLI summary.
func ExtractionFailureCount(platform, operation string) float64 {
	return counterValue(extractionFailures.WithLabelValues(platform, operation))
}

func BotDetectionCount(platform string) float64 {
	return counterValue(botDetections.WithLabelValues(platform))
}

func counterValue(c prometheus.Counter) float64 {
	return promtestutil.ToFloat64(c)
}

package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	metricPrefix = "taxtrail_"

	ResultSuccess = "success"
	ResultError   = "error"

	CacheHit     = "hit"
	CacheRefresh = "refresh"
	CacheError   = "error"
)

var (
	registerOnce sync.Once

	httpRequests *prometheus.CounterVec
	httpLatency  *prometheus.HistogramVec

	upstreamRequests *prometheus.CounterVec
	upstreamLatency  *prometheus.HistogramVec

	rateCacheLookups *prometheus.CounterVec

	verdictsTotal *prometheus.CounterVec
)

// Init registers the service metrics with the default registry.
func Init() {
	registerOnce.Do(func() {
		httpRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "http_requests_total",
				Help: "HTTP requests by route, method and status",
			},
			[]string{"route", "method", "status"},
		)
		httpLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"route", "method"},
		)

		upstreamRequests = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "upstream_requests_total",
				Help: "Outbound requests to indicator and exchange-rate APIs by result",
			},
			[]string{"source", "result"},
		)
		upstreamLatency = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    metricPrefix + "upstream_request_duration_seconds",
				Help:    "Outbound request latency in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"source"},
		)

		rateCacheLookups = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "rate_cache_lookups_total",
				Help: "Exchange rate cache lookups by outcome",
			},
			[]string{"outcome"},
		)

		verdictsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: metricPrefix + "analysis_verdicts_total",
				Help: "Analysis verdicts by analysis type and classification",
			},
			[]string{"analysis", "classification"},
		)

		prometheus.MustRegister(
			httpRequests,
			httpLatency,
			upstreamRequests,
			upstreamLatency,
			rateCacheLookups,
			verdictsTotal,
		)
	})
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveHTTP records one served request.
func ObserveHTTP(route, method string, status int, duration time.Duration) {
	if route == "" {
		route = "unmatched"
	}
	if httpRequests != nil {
		httpRequests.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	}
	if httpLatency != nil {
		httpLatency.WithLabelValues(route, method).Observe(duration.Seconds())
	}
}

// ObserveUpstream records an outbound call.
func ObserveUpstream(source, result string, duration time.Duration) {
	if result == "" {
		result = ResultSuccess
	}
	if upstreamRequests != nil {
		upstreamRequests.WithLabelValues(source, result).Inc()
	}
	if upstreamLatency != nil {
		upstreamLatency.WithLabelValues(source).Observe(duration.Seconds())
	}
}

// IncRateCache counts a cache lookup outcome.
func IncRateCache(outcome string) {
	if rateCacheLookups != nil {
		rateCacheLookups.WithLabelValues(outcome).Inc()
	}
}

// IncVerdict counts a produced analysis classification.
func IncVerdict(analysis, classification string) {
	if verdictsTotal != nil {
		verdictsTotal.WithLabelValues(analysis, classification).Inc()
	}
}

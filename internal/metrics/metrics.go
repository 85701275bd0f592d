package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "searchgateway",
		Name:      "http_requests_total",
		Help:      "Total HTTP requests by method, path and status code.",
	}, []string{"method", "path", "status"})

	HTTPRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "searchgateway",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.3, 0.5, 1, 2, 5, 10, 20},
	}, []string{"method", "path"})

	ProviderRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "searchgateway",
		Name:      "provider_requests_total",
		Help:      "Total upstream provider queries by provider key and result status.",
	}, []string{"provider", "status"})

	ProviderRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "searchgateway",
		Name:      "provider_request_duration_seconds",
		Help:      "Upstream provider query duration in seconds.",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30},
	}, []string{"provider"})

	CacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "searchgateway",
		Name:      "cache_hits_total",
		Help:      "Total number of result cache hits.",
	})

	CacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "searchgateway",
		Name:      "cache_misses_total",
		Help:      "Total number of result cache misses.",
	})

	CacheErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "searchgateway",
		Name:      "cache_errors_total",
		Help:      "Total cache store failures treated as forced misses.",
	})

	QueryBlockedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "searchgateway",
		Name:      "query_blocked_total",
		Help:      "Total requests short-circuited by the query-level blocklist.",
	})

	ItemsFilteredTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "searchgateway",
		Name:      "items_filtered_total",
		Help:      "Total provider items rejected by the content filter pipeline.",
	})
)

func Register(reg prometheus.Registerer) {
	reg.MustRegister(
		HTTPRequestsTotal,
		HTTPRequestDuration,
		ProviderRequestsTotal,
		ProviderRequestDuration,
		CacheHitsTotal,
		CacheMissesTotal,
		CacheErrorsTotal,
		QueryBlockedTotal,
		ItemsFilteredTotal,
	)
}

package catalog

import "github.com/prometheus/client_golang/prometheus"

var (
	// catalogRequests counts catalog calls by operation and outcome
	// (ok, status, invalid, error, throttled).
	catalogRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedsync_catalog_requests_total",
			Help: "Total number of remote catalog requests.",
		},
		[]string{"op", "result"},
	)

	// catalogLatency records end-to-end request duration, throttling included.
	catalogLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "feedsync_catalog_request_duration_seconds",
			Help:    "Duration of remote catalog requests in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(catalogRequests, catalogLatency)
}

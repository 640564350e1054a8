package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// storeCommits counts write-through commits by key and result (ok, error).
	storeCommits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedsync_store_commits_total",
			Help: "Total number of durable store commits.",
		},
		[]string{"key", "result"},
	)

	// hydrationLoads counts startup hydration reads by key and outcome.
	hydrationLoads = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "feedsync_hydration_total",
			Help: "Total number of hydration reads by outcome.",
		},
		[]string{"key", "result"},
	)
)

func init() {
	prometheus.MustRegister(storeCommits, hydrationLoads)
}

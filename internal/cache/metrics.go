package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Request result label values.
const (
	ResultHit    = "hit"
	ResultStale  = "stale"
	ResultMiss   = "miss"
	ResultIdle   = "idle"
	ResultForced = "forced"
)

var (
	// Requests counts cache reads by policy and result.
	Requests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsfront_cache_requests_total",
		Help: "Total number of cache reads by policy and result",
	}, []string{"policy", "result"})

	// Failures counts failed loads by policy.
	Failures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsfront_cache_load_failures_total",
		Help: "Total number of failed cache loads",
	}, []string{"policy"})

	Abandoned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsfront_cache_abandoned_loads_total",
		Help: "Loads whose result was dropped because the cache was cleared",
	})

	SharedHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsfront_cache_shared_hits_total",
		Help: "Loads served from the shared redis tier",
	})

	Entries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "newsfront_cache_entries",
		Help: "Number of entries in the in-memory cache",
	})
)

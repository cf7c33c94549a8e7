package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestDuration measures HTTP request latency by route.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "newsfront_http_request_duration_seconds",
		Help:    "Duration of HTTP requests served by newsfront",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	// PageRenders counts rendered HTML pages by page and status class.
	PageRenders = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsfront_page_renders_total",
		Help: "Total number of rendered HTML pages",
	}, []string{"page", "status"})

	// RateLimited counts regeneration requests rejected by the per-IP limiter.
	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsfront_regenerate_rate_limited_total",
		Help: "Total number of rate-limited regeneration requests",
	})
)

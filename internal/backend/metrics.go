package backend

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Endpoint label values.
const (
	EndpointListEvents  = "list_events"
	EndpointGetEvent    = "get_event"
	EndpointGetInsights = "get_insights"
	EndpointArticleBias = "article_bias"
	EndpointRegenerate  = "regenerate_insights"
)

// Outcome label values.
const (
	OutcomeOK        = "ok"
	OutcomeHTTPError = "http_error"
	OutcomeNetwork   = "network_error"
	OutcomeDecode    = "decode_error"
)

var (
	// RequestDuration measures backend call latency.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "newsfront_backend_request_duration_seconds",
		Help:    "Duration of requests to the news backend",
		Buckets: prometheus.DefBuckets,
	}, []string{"endpoint", "outcome"})
)

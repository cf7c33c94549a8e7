package service

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Regenerations counts regeneration requests by trigger and outcome.
	Regenerations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "newsfront_insights_regenerations_total",
		Help: "Total number of insights regeneration requests",
	}, []string{"trigger", "status"})

	// BiasFailures counts article bias lookups that failed during page assembly.
	BiasFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "newsfront_bias_fetch_failures_total",
		Help: "Total number of failed article bias lookups",
	})
)

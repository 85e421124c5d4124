// Package metrics provides Prometheus metrics for mentiondigest.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "mentiondigest"
)

// Search metrics
var (
	// SearchRequestsTotal counts search page requests by result.
	SearchRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "requests_total",
			Help:      "Total search page requests",
		},
		[]string{"result"}, // ok, api_error, invalid_auth, transport_error
	)

	// SearchMatchesTotal counts matches returned by the search API.
	SearchMatchesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "matches_total",
			Help:      "Total matches retrieved from the search API",
		},
	)

	// SearchCappedTotal counts searches stopped by the page cap.
	SearchCappedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "search",
			Name:      "capped_total",
			Help:      "Searches stopped by the page cap with pages remaining",
		},
	)
)

// Webhook metrics
var (
	// WebhookDeliveriesTotal counts webhook posts by outcome.
	WebhookDeliveriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "webhook",
			Name:      "deliveries_total",
			Help:      "Total webhook deliveries",
		},
		[]string{"result"}, // ok, rejected, transport_error
	)
)

// Job metrics
var (
	// JobRunsTotal counts handler runs by handler and outcome status.
	JobRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "job",
			Name:      "runs_total",
			Help:      "Total handler runs",
		},
		[]string{"handler", "status"},
	)

	// JobDuration tracks handler run latency.
	JobDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "job",
			Name:      "duration_seconds",
			Help:      "Handler run latency in seconds",
			Buckets:   []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"handler"},
	)

	// TriggersFiredTotal counts due triggers dispatched by the runner.
	TriggersFiredTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scheduler",
			Name:      "triggers_fired_total",
			Help:      "Total due triggers dispatched",
		},
		[]string{"handler"},
	)
)

// Package metrics defines the Prometheus collectors of the expense API.
// Collectors register with the default registry on import and are served
// on /metrics through promhttp.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "expense"

// TransitionsTotal counts lifecycle transitions that committed.
// Label:
//   - action: SUBMIT, APPROVE, REJECT or REIMBURSE
var TransitionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transitions_total",
		Help:      "Total number of committed expense lifecycle transitions.",
	},
	[]string{"action"},
)

// TransitionErrorsTotal counts transitions that were refused or failed.
// Labels:
//   - action: the attempted action
//   - reason: not_found, forbidden, invalid_state, validation or internal
var TransitionErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "transition_errors_total",
		Help:      "Total number of expense transitions that did not commit.",
	},
	[]string{"action", "reason"},
)

// TransitionDuration measures a transition's unit of work end to end.
var TransitionDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "transition_duration_seconds",
		Help:      "Duration of an expense transition including its audit record.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"action"},
)

// HTTPRequestsTotal counts served HTTP requests.
// Labels:
//   - route: the matched gin route template, "unmatched" otherwise
//   - method, status
var HTTPRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests by route, method and status.",
	},
	[]string{"route", "method", "status"},
)

// HTTPRequestDuration measures request latency per route.
var HTTPRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "Latency of HTTP requests by route and method.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"route", "method"},
)

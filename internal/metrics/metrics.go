// Package metrics declares the Prometheus collectors exposed on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RequestTotal counts HTTP requests by method, route pattern and status.
	RequestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "innovation_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)
	// RequestDuration is the latency of HTTP requests.
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "innovation_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
	// LoginsTotal counts login attempts by outcome: ok, verification_failed,
	// domain_rejected, access_denied, error.
	LoginsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "innovation_logins_total",
			Help: "Login attempts by outcome",
		},
		[]string{"outcome"},
	)
	// RosterOpsTotal counts roster mutations by operation and result.
	RosterOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "innovation_roster_operations_total",
			Help: "Roster add/remove operations by result",
		},
		[]string{"operation", "result"},
	)
	// RateLimitedTotal counts requests rejected by the login rate limiter.
	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "innovation_rate_limited_total",
			Help: "Requests rejected by the login rate limiter",
		},
	)
)

// Package metrics provides Prometheus metrics for the Clover service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// EntityOperationsTotal tracks entity mutations by kind and operation
	EntityOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "entity",
			Name:      "operations_total",
			Help:      "Total number of entity operations by kind and operation",
		},
		[]string{"kind", "operation", "status"},
	)

	// ShareMutationsTotal tracks share grants, revokes and permission changes
	ShareMutationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "sharing",
			Name:      "mutations_total",
			Help:      "Total number of share mutations by kind and mutation",
		},
		[]string{"kind", "mutation", "status"},
	)

	// AccessDeniedTotal tracks denied single-entity reads
	AccessDeniedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "sharing",
			Name:      "access_denied_total",
			Help:      "Total number of reads denied for non-owners without a share",
		},
		[]string{"kind"},
	)

	// RequestDuration tracks HTTP request latency by route and status
	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clover",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "route", "status"},
	)

	// ListDuration tracks combined owned+shared listing duration
	ListDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clover",
			Subsystem: "entity",
			Name:      "list_duration_seconds",
			Help:      "Duration of combined owned+shared listings in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
		[]string{"kind"},
	)
)

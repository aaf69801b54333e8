// Package metrics exposes prometheus counters for lifecycle operations
// and cascade steps.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Operations counts lifecycle operations by kind, operation, and outcome.
	Operations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_operations_total",
			Help: "Lifecycle operations processed, by resource kind, operation, and outcome",
		},
		[]string{"kind", "operation", "outcome"},
	)

	// CascadeSteps counts dependent-record updates performed by cascades.
	CascadeSteps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "registry_cascade_steps_total",
			Help: "Cascade steps executed, by cascade type and outcome",
		},
		[]string{"cascade", "outcome"},
	)
)

// RecordOperation increments the operation counter.
func RecordOperation(kind, operation string, err error) {
	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	Operations.WithLabelValues(kind, operation, outcome).Inc()
}

// RecordCascadeStep increments the cascade step counter.
func RecordCascadeStep(cascade string, failed bool) {
	outcome := "success"
	if failed {
		outcome = "failure"
	}
	CascadeSteps.WithLabelValues(cascade, outcome).Inc()
}

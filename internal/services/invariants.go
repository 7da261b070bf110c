package services

import (
	"chamberhub/campaigns/internal/logging"
	"chamberhub/campaigns/internal/metrics"
)

// Invariants decides what happens when a post-write check fails. In strict
// mode the transaction is aborted; otherwise the violation is logged and
// counted and the write stands.
type Invariants struct {
	Strict bool
}

func (iv Invariants) Check(name string, violation error, fields ...interface{}) error {
	if violation == nil {
		return nil
	}

	metrics.Get().InvariantViolationsTotal.WithLabelValues(name).Inc()
	logging.Error("Invariant violated",
		append(fields, "invariant", name, "error", violation.Error())...,
	)

	if iv.Strict {
		return Consistency(name+" check failed", violation)
	}
	return nil
}

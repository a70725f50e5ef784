// Package telemetry exposes Prometheus metrics for the decision engine.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Evaluation outcome labels.
const (
	OutcomeCacheHit        = "cache_hit"
	OutcomeDisabled        = "disabled"
	OutcomeValidationError = "validation_error"
	OutcomeEncodeError     = "encode_error"
	OutcomeTimeout         = "timeout"
	OutcomeDecodeError     = "decode_error"
	OutcomeAllowed         = "allowed"
	OutcomeDenied          = "denied"
)

// Override result labels.
const (
	OverrideApplied   = "applied"
	OverrideUnknownID = "unknown_id"
	OverrideMalformed = "malformed"
)

// PolicyMetrics tracks decision engine activity.
//
// Metrics:
//   - warden_policy_evaluations_total: evaluations by outcome
//   - warden_policy_evaluation_duration_seconds: end-to-end evaluation time
//   - warden_policy_overrides_total: inbound overrides by result
type PolicyMetrics struct {
	evaluationsTotal   *prometheus.CounterVec
	evaluationDuration prometheus.Histogram
	overridesTotal     *prometheus.CounterVec
}

// NewPolicyMetrics creates and registers policy metrics with the provided
// registry.
func NewPolicyMetrics(registry *prometheus.Registry) *PolicyMetrics {
	pm := &PolicyMetrics{
		evaluationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "warden",
				Subsystem: "policy",
				Name:      "evaluations_total",
				Help:      "Total number of policy evaluations by outcome",
			},
			[]string{"outcome"},
		),

		evaluationDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "warden",
				Subsystem: "policy",
				Name:      "evaluation_duration_seconds",
				Help:      "End-to-end duration of policy evaluations",
				// Cache hits are sub-microsecond; remote round trips are
				// bounded by the configured RPC timeout.
				Buckets: prometheus.ExponentialBuckets(0.000001, 4, 12),
			},
		),

		overridesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "warden",
				Subsystem: "policy",
				Name:      "overrides_total",
				Help:      "Total number of inbound decision overrides by result",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(pm.evaluationsTotal, pm.evaluationDuration, pm.overridesTotal)
	return pm
}

// RecordEvaluation counts one evaluation with the given outcome label.
func (m *PolicyMetrics) RecordEvaluation(outcome string) {
	m.evaluationsTotal.WithLabelValues(outcome).Inc()
}

// ObserveEvaluationDuration records how long an evaluation took.
func (m *PolicyMetrics) ObserveEvaluationDuration(d time.Duration) {
	m.evaluationDuration.Observe(d.Seconds())
}

// RecordOverride counts one inbound override with the given result label.
func (m *PolicyMetrics) RecordOverride(result string) {
	m.overridesTotal.WithLabelValues(result).Inc()
}

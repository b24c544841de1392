package reconciler

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"doodba-operator/pkg/logging"
)

const (
	metricsNamespace = "doodba"
	metricsSubsystem = "reconciler"
)

// Reconcile results as reported in the result label.
const (
	ResultSuccess = "success"
	ResultRequeue = "requeue"
	ResultError   = "error"
)

// Metrics tracks reconciliation metrics for monitoring and alerting.
type Metrics struct {
	reconcileTotal     *prometheus.CounterVec
	reconcileDuration  *prometheus.HistogramVec
	phaseTransitions   *prometheus.CounterVec
	statusSyncFailures *prometheus.CounterVec
}

// NewMetrics creates the reconciler metrics and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		reconcileTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "reconcile_total",
			Help:      "Number of reconcile passes by resource type and result.",
		}, []string{"resource_type", "result"}),
		reconcileDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "reconcile_duration_seconds",
			Help:      "Duration of reconcile passes.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"resource_type"}),
		phaseTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "phase_transitions_total",
			Help:      "Number of Doodba phase transitions.",
		}, []string{"from", "to"}),
		statusSyncFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "status_sync_failures_total",
			Help:      "Number of failed status writes.",
		}, []string{"resource_type"}),
	}
	reg.MustRegister(m.reconcileTotal, m.reconcileDuration, m.phaseTransitions, m.statusSyncFailures)
	return m
}

// RecordReconcile records the outcome and duration of one pass.
func (m *Metrics) RecordReconcile(resourceType ResourceType, result ReconcileResult, duration time.Duration) {
	outcome := ResultSuccess
	switch {
	case result.Error != nil:
		outcome = ResultError
	case result.Requeue || result.RequeueAfter > 0:
		outcome = ResultRequeue
	}
	m.reconcileTotal.WithLabelValues(string(resourceType), outcome).Inc()
	m.reconcileDuration.WithLabelValues(string(resourceType)).Observe(duration.Seconds())
}

// RecordPhaseTransition counts a phase change. An empty from means the
// resource had no status yet.
func (m *Metrics) RecordPhaseTransition(from, to string) {
	if from == "" {
		from = "None"
	}
	m.phaseTransitions.WithLabelValues(from, to).Inc()
}

// RecordStatusSyncFailure records a failed status write.
//
// A rising rate usually means API server trouble, missing RBAC on the status
// subresource, or a CRD schema that rejects the status document.
func (m *Metrics) RecordStatusSyncFailure(resourceType ResourceType, resourceName string, reason string) {
	m.statusSyncFailures.WithLabelValues(string(resourceType)).Inc()
	logging.Warn("Metrics", "Status sync failure for %s %s: %s", resourceType, resourceName, reason)
}

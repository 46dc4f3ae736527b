package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the domains module.
// Tracks lifecycle transitions, verification outcomes and sweeper passes.
type Metrics struct {
	Transitions       *prometheus.CounterVec
	Verifications     *prometheus.CounterVec
	DedupeHits        prometheus.Counter
	NotifyFailures    prometheus.Counter
	ReconcileDuration prometheus.Histogram
	SweepDuration     prometheus.Histogram
	SweepRecords      prometheus.Counter
	LockTimeouts      prometheus.Counter
	AwaitPolls        prometheus.Counter
}

// New creates a new Metrics instance registered on the default registry.
// Call it once per process.
func New() *Metrics {
	return &Metrics{
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ons_domain_transitions_total",
			Help: "Domain status transitions applied",
		}, []string{"from", "to"}),
		Verifications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "ons_verifications_total",
			Help: "Transaction verifications by intent and outcome",
		}, []string{"intent", "outcome"}),
		DedupeHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ons_dedupe_hits_total",
			Help: "Transitions skipped because the transaction was already applied",
		}),
		NotifyFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ons_notify_failures_total",
			Help: "Notifications that could not be published",
		}),
		ReconcileDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ons_reconcile_duration_seconds",
			Help:    "Duration of a single-domain reconciliation pass",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}),
		SweepDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "ons_sweep_duration_seconds",
			Help:    "Duration of a sweeper pass",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
		}),
		SweepRecords: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ons_sweep_records_total",
			Help: "Records visited by the sweeper",
		}),
		LockTimeouts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ons_domain_lock_timeouts_total",
			Help: "Mutations abandoned while waiting for the per-domain lock",
		}),
		AwaitPolls: promauto.NewCounter(prometheus.CounterOpts{
			Name: "ons_await_polls_total",
			Help: "Chain polls made while waiting for confirmations",
		}),
	}
}

// IncrementTransition records a status change.
func (m *Metrics) IncrementTransition(from, to string) {
	m.Transitions.WithLabelValues(from, to).Inc()
}

// IncrementVerification records one verification outcome.
func (m *Metrics) IncrementVerification(intent, outcome string) {
	m.Verifications.WithLabelValues(intent, outcome).Inc()
}

func (m *Metrics) IncrementDedupeHit()     { m.DedupeHits.Inc() }
func (m *Metrics) IncrementNotifyFailure() { m.NotifyFailures.Inc() }
func (m *Metrics) IncrementLockTimeout()   { m.LockTimeouts.Inc() }
func (m *Metrics) IncrementAwaitPoll()     { m.AwaitPolls.Inc() }

// ObserveReconcile records the duration of a reconciliation pass.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveReconcile(start time.Time) {
	m.ReconcileDuration.Observe(time.Since(start).Seconds())
}

// ObserveSweep records one sweeper pass over n records.
func (m *Metrics) ObserveSweep(start time.Time, n int) {
	m.SweepDuration.Observe(time.Since(start).Seconds())
	m.SweepRecords.Add(float64(n))
}

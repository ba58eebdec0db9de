package metrics

import (
	"sync"

	"github.com/corvana/dispatch/types"
	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector implements types.MetricsCollector backed by Prometheus.
//
// Registration is lazy: collectors are created and registered on first use
// so constructing the collector never panics on duplicate registration in
// tests that share the default registerer.
type PrometheusCollector struct {
	reg       prometheus.Registerer
	namespace string
	once      sync.Once

	assignOutcomes  *prometheus.CounterVec
	assignmentScore prometheus.Histogram
	trackerCalls    *prometheus.CounterVec
	trackerRetries  *prometheus.CounterVec

	batchItems    prometheus.Histogram
	batchFallback prometheus.Histogram
	batchDuration prometheus.Histogram
	inferenceMiss prometheus.Counter

	transitions *prometheus.CounterVec
	fitness     prometheus.Histogram
	workerCount *prometheus.GaugeVec

	registrySaves *prometheus.CounterVec
	ledgerSize    prometheus.Gauge
}

// Compile-time assertion that PrometheusCollector implements MetricsCollector.
var _ types.MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheus creates a new Prometheus-backed metrics collector.
//
// Parameters:
//   - reg: Prometheus registerer interface (uses prometheus.DefaultRegisterer if nil)
//   - namespace: Prometheus metrics namespace (defaults to "dispatch" if empty)
//
// Returns:
//   - *PrometheusCollector: A MetricsCollector implementation using Prometheus
func NewPrometheus(reg prometheus.Registerer, namespace string) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if namespace == "" {
		namespace = "dispatch"
	}

	return &PrometheusCollector{reg: reg, namespace: namespace}
}

func (p *PrometheusCollector) ensureRegistered() {
	p.once.Do(func() {
		p.assignOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "coordinator",
			Name:      "assign_outcomes_total",
			Help:      "Total TryAssign outcomes by kind and reason code.",
		}, []string{"kind", "reason"})

		p.assignmentScore = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "coordinator",
			Name:      "assignment_adjusted_score",
			Help:      "Adjusted scores of successful assignments.",
			Buckets:   prometheus.LinearBuckets(0, 2, 10),
		})

		p.trackerCalls = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "tracker",
			Name:      "calls_total",
			Help:      "Total external tracker calls by operation.",
		}, []string{"op"})

		p.trackerRetries = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "tracker",
			Name:      "retries_total",
			Help:      "Total tracker call retry attempts by operation.",
		}, []string{"op"})

		p.batchItems = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "telemetry",
			Name:      "batch_items",
			Help:      "Items returned by the broad telemetry query per cycle.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		})

		p.batchFallback = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "telemetry",
			Name:      "batch_fallback_calls",
			Help:      "Per-item event-history fallback lookups per cycle.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 8),
		})

		p.batchDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "telemetry",
			Name:      "batch_duration_seconds",
			Help:      "Wall time of one CollectAll cycle in seconds.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 10),
		})

		p.inferenceMiss = prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "telemetry",
			Name:      "inference_misses_total",
			Help:      "Items whose worker could not be determined after fallback.",
		})

		p.transitions = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "lifecycle",
			Name:      "transitions_total",
			Help:      "Worker status transitions by from/to status.",
		}, []string{"from", "to"})

		p.fitness = prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: p.namespace,
			Subsystem: "lifecycle",
			Name:      "fitness_score",
			Help:      "Computed composite fitness scores.",
			Buckets:   prometheus.LinearBuckets(0, 0.1, 11),
		})

		p.workerCount = prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "lifecycle",
			Name:      "workers",
			Help:      "Current worker count by status.",
		}, []string{"status"})

		p.registrySaves = prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: p.namespace,
			Subsystem: "registry",
			Name:      "saves_total",
			Help:      "Registry save attempts by result (ok, conflict).",
		}, []string{"result"})

		p.ledgerSize = prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: p.namespace,
			Subsystem: "dedup",
			Name:      "ledger_size",
			Help:      "Current deduplication ledger entry count.",
		})

		for _, c := range []prometheus.Collector{
			p.assignOutcomes, p.assignmentScore, p.trackerCalls, p.trackerRetries,
			p.batchItems, p.batchFallback, p.batchDuration, p.inferenceMiss,
			p.transitions, p.fitness, p.workerCount,
			p.registrySaves, p.ledgerSize,
		} {
			// AlreadyRegisteredError is tolerated so shared registerers work.
			if err := p.reg.Register(c); err != nil {
				if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
					panic(err)
				}
			}
		}
	})
}

// RecordAssignOutcome records one TryAssign outcome.
func (p *PrometheusCollector) RecordAssignOutcome(kind types.OutcomeKind, reason string) {
	p.ensureRegistered()
	p.assignOutcomes.WithLabelValues(string(kind), reason).Inc()
}

// RecordAssignmentScore records the adjusted score of an assignment.
func (p *PrometheusCollector) RecordAssignmentScore(score float64) {
	p.ensureRegistered()
	p.assignmentScore.Observe(score)
}

// RecordTrackerCall records one tracker call by operation.
func (p *PrometheusCollector) RecordTrackerCall(op string) {
	p.ensureRegistered()
	p.trackerCalls.WithLabelValues(op).Inc()
}

// RecordRetry records one tracker retry attempt by operation.
func (p *PrometheusCollector) RecordRetry(op string) {
	p.ensureRegistered()
	p.trackerRetries.WithLabelValues(op).Inc()
}

// RecordBatchCollection records one telemetry collection cycle.
func (p *PrometheusCollector) RecordBatchCollection(items, fallbackCalls int, duration float64) {
	p.ensureRegistered()
	p.batchItems.Observe(float64(items))
	p.batchFallback.Observe(float64(fallbackCalls))
	p.batchDuration.Observe(duration)
}

// RecordInferenceMiss records an unresolvable item.
func (p *PrometheusCollector) RecordInferenceMiss() {
	p.ensureRegistered()
	p.inferenceMiss.Inc()
}

// RecordTransition records one worker status transition.
func (p *PrometheusCollector) RecordTransition(from, to types.WorkerStatus) {
	p.ensureRegistered()
	p.transitions.WithLabelValues(string(from), string(to)).Inc()
}

// RecordFitness records a computed fitness score.
func (p *PrometheusCollector) RecordFitness(score float64) {
	p.ensureRegistered()
	p.fitness.Observe(score)
}

// RecordWorkerCount sets the current worker count for a status.
func (p *PrometheusCollector) RecordWorkerCount(status types.WorkerStatus, count int) {
	p.ensureRegistered()
	p.workerCount.WithLabelValues(string(status)).Set(float64(count))
}

// RecordRegistrySave records a registry save attempt.
func (p *PrometheusCollector) RecordRegistrySave(conflict bool) {
	p.ensureRegistered()
	result := "ok"
	if conflict {
		result = "conflict"
	}
	p.registrySaves.WithLabelValues(result).Inc()
}

// RecordLedgerSize sets the current ledger size.
func (p *PrometheusCollector) RecordLedgerSize(size int) {
	p.ensureRegistered()
	p.ledgerSize.Set(float64(size))
}

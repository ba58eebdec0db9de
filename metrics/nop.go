// Package metrics provides types.MetricsCollector implementations.
package metrics

import "github.com/corvana/dispatch/types"

// NopMetrics implements a no-op metrics collector.
//
// All metrics are discarded. Useful for testing or when external
// metrics collection is used.
type NopMetrics struct{}

// Compile-time assertion that NopMetrics implements MetricsCollector.
var _ types.MetricsCollector = (*NopMetrics)(nil)

// NewNop creates a new no-op metrics collector.
func NewNop() *NopMetrics {
	return &NopMetrics{}
}

// CoordinatorMetrics implementation

// RecordAssignOutcome discards the outcome metric.
func (n *NopMetrics) RecordAssignOutcome(_ /* kind */ types.OutcomeKind, _ /* reason */ string) {
	// No-op
}

// RecordAssignmentScore discards the score metric.
func (n *NopMetrics) RecordAssignmentScore(_ /* score */ float64) {
	// No-op
}

// RecordTrackerCall discards the tracker call metric.
func (n *NopMetrics) RecordTrackerCall(_ /* op */ string) {
	// No-op
}

// RecordRetry discards the retry metric.
func (n *NopMetrics) RecordRetry(_ /* op */ string) {
	// No-op
}

// TelemetryMetrics implementation

// RecordBatchCollection discards the batch collection metric.
func (n *NopMetrics) RecordBatchCollection(_ /* items */, _ /* fallbackCalls */ int, _ /* duration */ float64) {
	// No-op
}

// RecordInferenceMiss discards the inference miss metric.
func (n *NopMetrics) RecordInferenceMiss() {
	// No-op
}

// LifecycleMetrics implementation

// RecordTransition discards the transition metric.
func (n *NopMetrics) RecordTransition(_ /* from */, _ /* to */ types.WorkerStatus) {
	// No-op
}

// RecordFitness discards the fitness metric.
func (n *NopMetrics) RecordFitness(_ /* score */ float64) {
	// No-op
}

// RecordWorkerCount discards the worker count metric.
func (n *NopMetrics) RecordWorkerCount(_ /* status */ types.WorkerStatus, _ /* count */ int) {
	// No-op
}

// RegistryMetrics implementation

// RecordRegistrySave discards the registry save metric.
func (n *NopMetrics) RecordRegistrySave(_ /* conflict */ bool) {
	// No-op
}

// RecordLedgerSize discards the ledger size metric.
func (n *NopMetrics) RecordLedgerSize(_ /* size */ int) {
	// No-op
}

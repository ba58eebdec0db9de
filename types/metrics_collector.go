package types

// MetricsCollector defines methods for recording operational metrics.
//
// Implementations must be non-blocking and thread-safe; methods are called
// from hot paths in the coordinator and collector.
//
// This interface composes smaller, domain-focused interfaces so components
// can depend on only the slice they record.
type MetricsCollector interface {
	CoordinatorMetrics
	TelemetryMetrics
	LifecycleMetrics
	RegistryMetrics
}

// CoordinatorMetrics defines metrics for assignment coordination.
type CoordinatorMetrics interface {
	// RecordAssignOutcome records one TryAssign outcome by kind and reason.
	// Reason is empty for assigned outcomes.
	RecordAssignOutcome(kind OutcomeKind, reason string)

	// RecordAssignmentScore records the adjusted score of a successful
	// assignment.
	RecordAssignmentScore(score float64)

	// RecordTrackerCall records one external tracker call by operation
	// ("list_items", "get_item", "set_label", "set_assignee",
	// "add_comment", "list_events", "open_change_request").
	RecordTrackerCall(op string)

	// RecordRetry records a retry attempt for a tracker operation.
	RecordRetry(op string)
}

// TelemetryMetrics defines metrics for batch telemetry collection.
type TelemetryMetrics interface {
	// RecordBatchCollection records one CollectAll cycle.
	//
	// Parameters:
	//   - items: Number of items returned by the broad query
	//   - fallbackCalls: Number of per-item event lookups that were needed
	//   - duration: Wall time of the cycle in seconds
	RecordBatchCollection(items, fallbackCalls int, duration float64)

	// RecordInferenceMiss records an item whose worker could not be
	// determined even after the event-history fallback.
	RecordInferenceMiss()
}

// LifecycleMetrics defines metrics for worker lifecycle evaluation.
type LifecycleMetrics interface {
	// RecordTransition records one worker status transition.
	RecordTransition(from, to WorkerStatus)

	// RecordFitness records a computed fitness score.
	RecordFitness(score float64)

	// RecordWorkerCount sets the current count of workers by status.
	RecordWorkerCount(status WorkerStatus, count int)
}

// RegistryMetrics defines metrics for the shared worker registry.
type RegistryMetrics interface {
	// RecordRegistrySave records a Save attempt and whether it conflicted.
	RecordRegistrySave(conflict bool)

	// RecordLedgerSize sets the current deduplication ledger size.
	RecordLedgerSize(size int)
}

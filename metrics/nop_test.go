package metrics

import (
	"testing"

	"github.com/corvana/dispatch/types"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

func TestNopMetrics_ImplementsCollector(t *testing.T) {
	var collector types.MetricsCollector = NewNop()

	// Every method must be callable without side effects or panics.
	collector.RecordAssignOutcome(types.OutcomeSkipped, types.ReasonAlreadyClaimed)
	collector.RecordAssignmentScore(3.5)
	collector.RecordTrackerCall("get_item")
	collector.RecordRetry("set_label")
	collector.RecordBatchCollection(50, 3, 1.2)
	collector.RecordInferenceMiss()
	collector.RecordTransition(types.StatusActive, types.StatusPromoted)
	collector.RecordFitness(0.71)
	collector.RecordWorkerCount(types.StatusActive, 5)
	collector.RecordRegistrySave(false)
	collector.RecordLedgerSize(100)
}

func TestPrometheusCollector_RegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	collector := NewPrometheus(reg, "dispatch_test")

	collector.RecordAssignOutcome(types.OutcomeAssigned, "")
	collector.RecordAssignOutcome(types.OutcomeAssigned, "")
	collector.RecordBatchCollection(10, 0, 0.5)
	collector.RecordRegistrySave(true)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)

	found := false
	for _, mf := range families {
		if mf.GetName() == "dispatch_test_coordinator_assign_outcomes_total" {
			found = true
			require.Len(t, mf.GetMetric(), 1)
			require.InDelta(t, 2.0, mf.GetMetric()[0].GetCounter().GetValue(), 1e-9)
		}
	}
	require.True(t, found, "assign outcomes counter should be registered")
}

func TestPrometheusCollector_SharedRegistererTolerated(t *testing.T) {
	reg := prometheus.NewRegistry()

	a := NewPrometheus(reg, "dispatch_shared")
	b := NewPrometheus(reg, "dispatch_shared")

	a.RecordTrackerCall("list_items")
	// Second collector hits AlreadyRegisteredError internally; must not panic.
	b.RecordTrackerCall("list_items")
}

package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/corvana/dispatch/types"
)

var evalNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestEvaluator(opts Options) *Evaluator {
	if opts.Clock == nil {
		opts.Clock = types.ClockFunc(func() time.Time { return evalNow })
	}

	return NewEvaluator(opts)
}

func matureWorker(id string, status types.WorkerStatus, m types.WorkerMetrics) *types.WorkerProfile {
	return &types.WorkerProfile{
		ID:        id,
		Status:    status,
		CreatedAt: evalNow.Add(-30 * 24 * time.Hour),
		Metrics:   m,
	}
}

func TestEvaluator_FitnessBlend(t *testing.T) {
	e := newTestEvaluator(Options{})

	// All components saturated: 0.30+0.25+0.25+0.20+0.10 clamps to 1.
	perfect := types.WorkerMetrics{
		IssuesResolved: 10,
		PRsMerged:      5,
		PRsOpened:      5,
		ReviewCount:    10,
		QualityScore:   1.0,
		NoveltyScore:   1.0,
	}
	require.Equal(t, 1.0, e.Fitness(perfect))

	// Half of everything, no creativity:
	// 0.30*0.5 + 0.25*0.5 + 0.25*0.5 + 0.20*0.5 = 0.5
	half := types.WorkerMetrics{
		IssuesResolved: 5,
		PRsMerged:      1,
		PRsOpened:      2,
		ReviewCount:    5,
		QualityScore:   0.5,
	}
	require.InDelta(t, 0.5, e.Fitness(half), 1e-12)

	require.Zero(t, e.Fitness(types.WorkerMetrics{}))
}

func TestEvaluator_FitnessDeterminism(t *testing.T) {
	e := newTestEvaluator(Options{})
	m := types.WorkerMetrics{
		IssuesResolved: 3,
		PRsMerged:      2,
		PRsOpened:      3,
		ReviewCount:    7,
		QualityScore:   0.42,
		NoveltyScore:   0.17,
	}

	first := e.Fitness(m)
	for i := 0; i < 100; i++ {
		require.Equal(t, first, e.Fitness(m))
	}
}

func TestEvaluator_RetiresBelowThreshold(t *testing.T) {
	e := newTestEvaluator(Options{})
	w := matureWorker("w1", types.StatusActive, types.WorkerMetrics{QualityScore: 0.2})

	result := e.Evaluate(w, nil)
	require.Equal(t, types.StatusActive, result.StatusBefore)
	require.Equal(t, types.StatusRetired, result.StatusAfter)
	require.Equal(t, ReasonLowFitness, result.Reason)
	require.Equal(t, types.StatusRetired, w.Status)
	require.False(t, w.Assignable())
}

func TestEvaluator_PromotesAboveThreshold(t *testing.T) {
	e := newTestEvaluator(Options{})
	w := matureWorker("w1", types.StatusActive, types.WorkerMetrics{
		IssuesResolved: 10,
		PRsMerged:      4,
		PRsOpened:      5,
		ReviewCount:    10,
		QualityScore:   0.8,
	})

	result := e.Evaluate(w, nil)
	require.Equal(t, types.StatusPromoted, result.StatusAfter)
	require.Equal(t, ReasonHighFitness, result.Reason)
	require.GreaterOrEqual(t, result.Fitness, 0.65)
}

func TestEvaluator_MaintainIsIdempotent(t *testing.T) {
	e := newTestEvaluator(Options{})
	w := matureWorker("w1", types.StatusActive, types.WorkerMetrics{
		IssuesResolved: 5,
		ReviewCount:    5,
		QualityScore:   0.5,
	})

	for i := 0; i < 3; i++ {
		result := e.Evaluate(w, nil)
		require.Equal(t, types.StatusActive, result.StatusAfter)
		require.Equal(t, ReasonMaintained, result.Reason)
	}
}

func TestEvaluator_ProtectedNeverRetired(t *testing.T) {
	e := newTestEvaluator(Options{})
	w := matureWorker("guardian", types.StatusProtected, types.WorkerMetrics{})

	result := e.Evaluate(w, nil)
	require.Equal(t, types.StatusProtected, result.StatusAfter)
	require.Equal(t, ReasonProtected, result.Reason)
	require.Zero(t, result.Fitness)
}

func TestEvaluator_GracePeriodBlocksRetirement(t *testing.T) {
	e := newTestEvaluator(Options{})

	fresh := &types.WorkerProfile{
		ID:        "fresh",
		Status:    types.StatusActive,
		CreatedAt: evalNow.Add(-47 * time.Hour),
	}
	result := e.Evaluate(fresh, nil)
	require.Equal(t, types.StatusActive, result.StatusAfter)
	require.Equal(t, ReasonGracePeriod, result.Reason)

	// One hour past the grace boundary the same worker is retired.
	fresh.CreatedAt = evalNow.Add(-49 * time.Hour)
	result = e.Evaluate(fresh, nil)
	require.Equal(t, types.StatusRetired, result.StatusAfter)
}

func TestEvaluator_RetiredIsTerminal(t *testing.T) {
	e := newTestEvaluator(Options{})
	w := matureWorker("w1", types.StatusRetired, types.WorkerMetrics{
		IssuesResolved: 10,
		PRsMerged:      5,
		PRsOpened:      5,
		ReviewCount:    10,
		QualityScore:   1.0,
	})

	result := e.Evaluate(w, nil)
	require.Equal(t, types.StatusRetired, result.StatusAfter)
}

func TestEvaluator_PromotedStaysPromoted(t *testing.T) {
	e := newTestEvaluator(Options{})
	w := matureWorker("w1", types.StatusPromoted, types.WorkerMetrics{
		IssuesResolved: 10,
		PRsMerged:      5,
		PRsOpened:      5,
		ReviewCount:    10,
		QualityScore:   1.0,
	})

	result := e.Evaluate(w, nil)
	require.Equal(t, types.StatusPromoted, result.StatusAfter)
	require.Equal(t, ReasonMaintained, result.Reason)
}

func TestEvaluator_RecentClosedItemsFoldIntoMetrics(t *testing.T) {
	e := newTestEvaluator(Options{})
	w := matureWorker("w1", types.StatusActive, types.WorkerMetrics{
		IssuesResolved: 8,
		QualityScore:   0.9,
		ReviewCount:    10,
	})

	closed := evalNow.Add(-time.Hour)
	recent := []types.WorkItem{
		{ID: "a", ClosedAt: &closed},
		{ID: "b", ClosedAt: &closed},
		{ID: "c"}, // still open, does not count
	}

	result := e.Evaluate(w, recent)
	require.Equal(t, 10, w.Metrics.IssuesResolved)
	// 0.30*0.9 + 0.25*1.0 + 0.20*1.0 = 0.72 -> promoted.
	require.Equal(t, types.StatusPromoted, result.StatusAfter)
}

func TestEvaluator_CustomThresholds(t *testing.T) {
	e := newTestEvaluator(Options{
		RetirementThreshold: 0.10,
		PromotionThreshold:  0.90,
	})
	w := matureWorker("w1", types.StatusActive, types.WorkerMetrics{QualityScore: 0.5})

	// 0.15 fitness: below the default threshold but above the custom one.
	result := e.Evaluate(w, nil)
	require.Equal(t, types.StatusActive, result.StatusAfter)
}

package dispatch

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/corvana/dispatch/tracker"
	"github.com/corvana/dispatch/types"
)

var cycleNow = time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)

func cycleClock() types.Clock {
	return types.ClockFunc(func() time.Time { return cycleNow })
}

// conflictOnce fails the first Save with a registry conflict, then
// passes everything through.
type conflictOnce struct {
	types.Registry
	tripped bool
	saves   int
}

func (c *conflictOnce) Save(ctx context.Context, snap *types.RegistrySnapshot, version uint64) error {
	c.saves++
	if !c.tripped {
		c.tripped = true

		return types.ErrRegistryConflict
	}

	return c.Registry.Save(ctx, snap, version)
}

func seedClosedItems(mem *tracker.Memory, worker string, n int) {
	closed := cycleNow.Add(-time.Hour)
	for i := 0; i < n; i++ {
		id := worker + "-done-" + string(rune('a'+i))
		mem.Seed(types.WorkItem{
			ID:        id,
			Title:     "completed work",
			Assignee:  worker,
			CreatedAt: cycleNow.Add(-2 * time.Hour),
			ClosedAt:  &closed,
		})
	}
}

func TestEvaluator_EvaluateAll(t *testing.T) {
	mem := tracker.NewMemory()

	strong := &types.WorkerProfile{
		ID:        "strong",
		Status:    types.StatusActive,
		CreatedAt: cycleNow.Add(-30 * 24 * time.Hour),
		Metrics: types.WorkerMetrics{
			IssuesResolved: 8,
			PRsMerged:      4,
			PRsOpened:      5,
			ReviewCount:    10,
			QualityScore:   0.9,
		},
	}
	weak := &types.WorkerProfile{
		ID:        "weak",
		Status:    types.StatusActive,
		CreatedAt: cycleNow.Add(-30 * 24 * time.Hour),
		Metrics:   types.WorkerMetrics{QualityScore: 0.1},
	}
	guardian := &types.WorkerProfile{
		ID:        "guardian",
		Status:    types.StatusProtected,
		CreatedAt: cycleNow.Add(-30 * 24 * time.Hour),
	}
	seedClosedItems(mem, "strong", 2)

	reg := newTestRegistry(t, strong, weak, guardian)
	eval, err := NewEvaluator(mem, reg, TestConfig(), WithClock(cycleClock()))
	require.NoError(t, err)

	results, err := eval.EvaluateAll(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)

	byWorker := make(map[string]types.EvaluationResult)
	for _, r := range results {
		byWorker[r.WorkerID] = r
	}

	require.Equal(t, types.StatusPromoted, byWorker["strong"].StatusAfter)
	require.Equal(t, types.StatusRetired, byWorker["weak"].StatusAfter)
	require.Equal(t, types.StatusProtected, byWorker["guardian"].StatusAfter)

	// Transitions and folded metrics persisted to the shared registry.
	snap, _, err := reg.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, types.StatusPromoted, snap.Workers["strong"].Status)
	require.Equal(t, 10, snap.Workers["strong"].Metrics.IssuesResolved)
	require.Equal(t, types.StatusRetired, snap.Workers["weak"].Status)

	// One broad query, no per-item fallbacks: every item carried its
	// assignee.
	require.Equal(t, 1, mem.CallCount("list_items"))
	require.Zero(t, mem.CallCount("list_events"))
}

func TestEvaluator_ConflictRecomputesAndRetries(t *testing.T) {
	mem := tracker.NewMemory()
	weak := &types.WorkerProfile{
		ID:        "weak",
		Status:    types.StatusActive,
		CreatedAt: cycleNow.Add(-30 * 24 * time.Hour),
	}

	wrapped := &conflictOnce{Registry: newTestRegistry(t, weak)}
	eval, err := NewEvaluator(mem, wrapped, TestConfig(), WithClock(cycleClock()))
	require.NoError(t, err)

	results, err := eval.EvaluateAll(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, types.StatusRetired, results[0].StatusAfter)
	require.Equal(t, 2, wrapped.saves)

	// The telemetry batch was not re-collected for the retry.
	require.Equal(t, 1, mem.CallCount("list_items"))
}

func TestEvaluator_SynthesizesWorkerFromDefaults(t *testing.T) {
	mem := tracker.NewMemory()
	seedClosedItems(mem, "newcomer", 1)

	cfg := TestConfig()
	cfg.DefaultCapabilities = map[string][]types.Capability{
		"newcomer": {{Term: "bug"}},
	}

	reg := newTestRegistry(t)
	eval, err := NewEvaluator(mem, reg, cfg, WithClock(cycleClock()))
	require.NoError(t, err)

	results, err := eval.EvaluateAll(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, "newcomer", results[0].WorkerID)
	// Synthesized at evaluation time, so inside the grace period.
	require.Equal(t, types.StatusActive, results[0].StatusAfter)

	snap, _, err := reg.Load(context.Background())
	require.NoError(t, err)
	require.Contains(t, snap.Workers, "newcomer")
	require.Equal(t, 1, snap.Workers["newcomer"].Metrics.IssuesResolved)
}

func TestEvaluator_UnknownWorkerDropped(t *testing.T) {
	mem := tracker.NewMemory()
	seedClosedItems(mem, "stranger", 1)

	reg := newTestRegistry(t)
	eval, err := NewEvaluator(mem, reg, TestConfig(), WithClock(cycleClock()))
	require.NoError(t, err)

	results, err := eval.EvaluateAll(context.Background())
	require.NoError(t, err)
	require.Empty(t, results)

	snap, _, err := reg.Load(context.Background())
	require.NoError(t, err)
	require.NotContains(t, snap.Workers, "stranger")
}

func TestNewEvaluator_RequiredDependencies(t *testing.T) {
	reg := newTestRegistry(t)

	_, err := NewEvaluator(nil, reg, TestConfig())
	require.ErrorIs(t, err, ErrTrackerRequired)

	_, err = NewEvaluator(tracker.NewMemory(), nil, TestConfig())
	require.ErrorIs(t, err, ErrRegistryRequired)
}

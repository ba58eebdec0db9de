package telemetry

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/corvana/dispatch/tracker"
	"github.com/corvana/dispatch/types"
)

func testWindow() types.Window {
	return types.Window{
		Since: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Until: time.Date(2026, 1, 8, 0, 0, 0, 0, time.UTC),
	}
}

func seedItems(t *testing.T, mem *tracker.Memory, n int, workers int) {
	t.Helper()
	created := testWindow().Since.Add(time.Hour)
	for i := 0; i < n; i++ {
		mem.Seed(types.WorkItem{
			ID:        fmt.Sprintf("item-%03d", i),
			Title:     fmt.Sprintf("task %d", i),
			Assignee:  fmt.Sprintf("worker-%d", i%workers),
			CreatedAt: created,
		})
	}
}

func TestCollector_AssigneeInference(t *testing.T) {
	mem := tracker.NewMemory()
	seedItems(t, mem, 10, 3)

	c := NewCollector(mem, types.ItemFilter{}, nil, nil, nil)
	batch, err := c.CollectAll(context.Background(), testWindow())
	require.NoError(t, err)

	require.Len(t, batch.Workers(), 3)
	require.Len(t, batch.ItemsFor("worker-0"), 4)
	require.Len(t, batch.ItemsFor("worker-1"), 3)
	require.Empty(t, batch.Unattributed())

	// Everything was inferable from the broad query alone.
	require.Equal(t, 1, mem.CallCount("list_items"))
	require.Zero(t, mem.CallCount("list_events"))
}

func TestCollector_BodyAnnotationInference(t *testing.T) {
	mem := tracker.NewMemory()
	mem.Seed(types.WorkItem{
		ID:        "item-1",
		Body:      "Fix the flaky retry loop.\n\nAssigned-to: bug-hunter\n",
		CreatedAt: testWindow().Since.Add(time.Hour),
	})

	c := NewCollector(mem, types.ItemFilter{}, nil, nil, nil)
	batch, err := c.CollectAll(context.Background(), testWindow())
	require.NoError(t, err)

	require.Len(t, batch.ItemsFor("bug-hunter"), 1)
	require.Zero(t, mem.CallCount("list_events"))
}

func TestCollector_EventFallbackMemoized(t *testing.T) {
	mem := tracker.NewMemory()
	mem.Seed(types.WorkItem{ID: "item-1", CreatedAt: testWindow().Since.Add(time.Hour)})

	// Assign then unassign then reassign through the tracker so the
	// history, not the (empty) assignee field, holds the answer.
	ctx := context.Background()
	require.NoError(t, mem.SetAssignee(ctx, "item-1", "doc-writer"))
	require.NoError(t, mem.SetAssignee(ctx, "item-1", ""))
	require.NoError(t, mem.SetAssignee(ctx, "item-1", "bug-hunter"))
	require.NoError(t, mem.SetAssignee(ctx, "item-1", ""))
	require.NoError(t, mem.SetAssignee(ctx, "item-1", "doc-writer"))
	require.NoError(t, mem.SetAssignee(ctx, "item-1", ""))

	c := NewCollector(mem, types.ItemFilter{}, nil, nil, nil)

	batch, err := c.CollectAll(ctx, testWindow())
	require.NoError(t, err)
	require.Empty(t, batch.ItemsFor("doc-writer"),
		"final unassignment should clear the attribution")
	require.Equal(t, 1, mem.CallCount("list_events"))

	// A second cycle with the same collector hits the memo.
	_, err = c.CollectAll(ctx, testWindow())
	require.NoError(t, err)
	require.Equal(t, 1, mem.CallCount("list_events"))
	require.Equal(t, 2, mem.CallCount("list_items"))
}

func TestCollector_EventFallbackLatestAssignmentWins(t *testing.T) {
	mem := tracker.NewMemory()
	mem.Seed(types.WorkItem{ID: "item-1", CreatedAt: testWindow().Since.Add(time.Hour)})

	ctx := context.Background()
	require.NoError(t, mem.SetAssignee(ctx, "item-1", "doc-writer"))
	require.NoError(t, mem.SetAssignee(ctx, "item-1", "bug-hunter"))
	// Clear the live field so only the history can answer.
	mem.Seed(types.WorkItem{ID: "item-1", CreatedAt: testWindow().Since.Add(time.Hour)})

	c := NewCollector(mem, types.ItemFilter{}, nil, nil, nil)
	batch, err := c.CollectAll(ctx, testWindow())
	require.NoError(t, err)
	require.Len(t, batch.ItemsFor("bug-hunter"), 1)
}

func TestCollector_CallCountIndependentOfWorkerCount(t *testing.T) {
	for _, workers := range []int{5, 50} {
		t.Run(fmt.Sprintf("%d-workers", workers), func(t *testing.T) {
			mem := tracker.NewMemory()
			seedItems(t, mem, 50, workers)

			c := NewCollector(mem, types.ItemFilter{}, nil, nil, nil)
			batch, err := c.CollectAll(context.Background(), testWindow())
			require.NoError(t, err)
			require.Len(t, batch.Workers(), workers)

			// One broad query regardless of how many workers exist.
			require.Equal(t, 1, mem.CallCount("list_items"))
			require.Zero(t, mem.CallCount("list_events"))
		})
	}
}

func TestCollector_UnreadableHistorySkipsItem(t *testing.T) {
	mem := tracker.NewMemory()
	mem.Seed(types.WorkItem{ID: "item-1", CreatedAt: testWindow().Since.Add(time.Hour)})
	mem.Seed(types.WorkItem{
		ID:        "item-2",
		Assignee:  "worker-1",
		CreatedAt: testWindow().Since.Add(time.Hour),
	})
	mem.FailNext("list_events", fmt.Errorf("%w: history unavailable", types.ErrMalformedItem))

	c := NewCollector(mem, types.ItemFilter{}, nil, nil, nil)
	batch, err := c.CollectAll(context.Background(), testWindow())
	require.NoError(t, err, "one bad item must not abort the batch")

	require.Len(t, batch.ItemsFor("worker-1"), 1)
	require.Len(t, batch.Unattributed(), 1)
	require.Equal(t, "item-1", batch.Unattributed()[0].ID)
}

func TestCollector_BroadQueryFailurePropagates(t *testing.T) {
	mem := tracker.NewMemory()
	mem.FailNext("list_items", fmt.Errorf("%w: tracker down", types.ErrTransient))

	c := NewCollector(mem, types.ItemFilter{}, nil, nil, nil)
	_, err := c.CollectAll(context.Background(), testWindow())
	require.Error(t, err)
	require.True(t, types.IsTransient(err))
}

// Package telemetry provides the batched activity collector feeding the
// lifecycle evaluator.
//
// The collector's central property is call-count scaling: one broad
// tracker query per evaluation cycle, and local inference of each item's
// worker from the already-fetched content. Only items whose worker
// cannot be inferred locally fall back to a per-item event-history
// lookup, and that lookup is memoized so it never repeats for the same
// item within a cycle. Total external calls are therefore O(items), not
// O(workers x items).
package telemetry

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/corvana/dispatch/types"
)

// assignedToLine matches the in-body assignment annotation written by
// the mission pipeline, e.g. "Assigned-to: bug-hunter".
var assignedToLine = regexp.MustCompile(`(?im)^assigned-to:\s*(\S+)\s*$`)

// Batch is the per-cycle activity snapshot keyed by worker ID.
//
// A Batch is immutable after construction and discarded at cycle end.
type Batch struct {
	window       types.Window
	byWorker     map[string][]types.WorkItem
	unattributed []types.WorkItem
	collectedAt  time.Time
}

// ItemsFor returns the items attributed to workerID within the window.
func (b *Batch) ItemsFor(workerID string) []types.WorkItem {
	return b.byWorker[workerID]
}

// Workers returns the set of worker IDs with at least one item.
func (b *Batch) Workers() []string {
	out := make([]string, 0, len(b.byWorker))
	for id := range b.byWorker {
		out = append(out, id)
	}

	return out
}

// Unattributed returns items whose worker could not be determined even
// after the event-history fallback.
func (b *Batch) Unattributed() []types.WorkItem {
	return b.unattributed
}

// CollectedAt returns when the snapshot was built.
func (b *Batch) CollectedAt() time.Time { return b.collectedAt }

// Window returns the window the snapshot covers.
func (b *Batch) Window() types.Window { return b.window }

// Collector builds telemetry batches from the external tracker.
//
// A Collector is created per invocation; the fallback memo spans the
// collector's lifetime, which bounds repeated event lookups within and
// across cycles run by the same invocation.
type Collector struct {
	tracker types.TrackerClient
	filter  types.ItemFilter
	logger  types.Logger
	metrics types.TelemetryMetrics
	clock   types.Clock

	// memo caches item ID -> inferred worker for event-history fallbacks.
	memo *xsync.Map[string, string]
}

// NewCollector creates a telemetry collector.
//
// Parameters:
//   - trackerClient: Source of items and event histories
//   - filter: Item filter for the broad query (e.g. mission label)
//   - logger: Logger, may be nil for no logging
//   - metrics: Telemetry metrics, may be nil
//   - clock: Clock for snapshot timestamps, nil uses the system clock
func NewCollector(
	trackerClient types.TrackerClient,
	filter types.ItemFilter,
	logger types.Logger,
	metrics types.TelemetryMetrics,
	clock types.Clock,
) *Collector {
	if clock == nil {
		clock = types.SystemClock()
	}

	return &Collector{
		tracker: trackerClient,
		filter:  filter,
		logger:  logger,
		metrics: metrics,
		clock:   clock,
		memo:    xsync.NewMap[string, string](),
	}
}

// CollectAll fetches all relevant items in one broad query and indexes
// them by worker.
//
// Per-item event lookups happen only for items whose worker cannot be
// inferred from the item itself, and a data error on one item skips that
// item with a warning instead of aborting the batch.
//
// Parameters:
//   - ctx: Context bounding all tracker calls
//   - window: Time range of items to include
//
// Returns:
//   - *Batch: Immutable snapshot keyed by worker ID
//   - error: Only when the broad query itself fails
func (c *Collector) CollectAll(ctx context.Context, window types.Window) (*Batch, error) {
	start := c.clock.Now()

	items, err := c.tracker.ListItems(ctx, c.filter, window)
	if err != nil {
		return nil, err
	}

	batch := &Batch{
		window:      window,
		byWorker:    make(map[string][]types.WorkItem),
		collectedAt: start,
	}

	fallbackCalls := 0
	for _, item := range items {
		worker, usedFallback, err := c.inferWorker(ctx, &item)
		if usedFallback {
			fallbackCalls++
		}
		if err != nil {
			if c.logger != nil {
				c.logger.Warn("skipping item with unreadable history",
					"item", item.ID, "reason", types.ReasonMalformedItem, "error", err)
			}
			batch.unattributed = append(batch.unattributed, item)

			continue
		}
		if worker == "" {
			if c.metrics != nil {
				c.metrics.RecordInferenceMiss()
			}
			batch.unattributed = append(batch.unattributed, item)

			continue
		}

		batch.byWorker[worker] = append(batch.byWorker[worker], item)
	}

	if c.metrics != nil {
		c.metrics.RecordBatchCollection(len(items), fallbackCalls, c.clock.Now().Sub(start).Seconds())
	}
	if c.logger != nil {
		c.logger.Debug("telemetry batch collected",
			"items", len(items), "workers", len(batch.byWorker), "fallback_calls", fallbackCalls)
	}

	return batch, nil
}

// inferWorker determines the worker responsible for item, cheapest
// signal first. The second return value reports whether the expensive
// event-history fallback was used (memo hits do not count).
func (c *Collector) inferWorker(ctx context.Context, item *types.WorkItem) (string, bool, error) {
	// 1. The assignee field is already in hand.
	if item.Assignee != "" {
		return item.Assignee, false, nil
	}

	// 2. An in-body assignment annotation is also free.
	if m := assignedToLine.FindStringSubmatch(item.Body); m != nil {
		return strings.TrimSpace(m[1]), false, nil
	}

	// 3. Memoized event-history result from earlier in this invocation.
	if worker, ok := c.memo.Load(item.ID); ok {
		return worker, false, nil
	}

	// 4. Expensive per-item fallback: walk the change history.
	events, err := c.tracker.ListEvents(ctx, item.ID)
	if err != nil {
		return "", true, err
	}

	worker := ""
	for _, ev := range events {
		// The latest assignment wins; unassignment clears it.
		switch ev.Kind {
		case "assigned":
			worker = ev.Actor
		case "unassigned":
			worker = ""
		}
	}

	c.memo.Store(item.ID, worker)

	return worker, true, nil
}

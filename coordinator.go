package dispatch

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/corvana/dispatch/internal/retry"
	"github.com/corvana/dispatch/locking"
	"github.com/corvana/dispatch/scoring"
	"github.com/corvana/dispatch/types"
)

// assignedPrefix introduces the assignment annotation comment, which the
// telemetry collector reads back to attribute work without extra calls.
const assignedPrefix = "dispatch-assigned:"

// registrySaveAttempts bounds the reload-reapply loop when flushing cycle
// counters against a conflicting concurrent write.
const registrySaveAttempts = 3

// Coordinator orchestrates the race-free assignment protocol:
// check-not-already-assigned, acquire the claim marker, confirm the
// tie-break, score and allocate, write the assignment.
//
// Each coordination cycle is expected to run as a short-lived invocation;
// the Coordinator holds no background goroutines. Per-item serialization
// should be requested from the triggering layer as the primary defense
// against duplicate assignment; the double-read marker protocol is the
// second, independent defense and works even when the first is absent.
type Coordinator struct {
	cfg     Config
	tracker types.TrackerClient
	reg     types.Registry

	scorer    scoring.Scorer
	allocator *scoring.DiversityAllocator
	locker    types.MarkerLocker
	policy    retry.Policy
	logger    types.Logger
	metrics   types.MetricsCollector
	clock     types.Clock

	// ownerID identifies this invocation in the claim tie-break.
	ownerID string

	mu      sync.Mutex
	records []types.AssignmentRecord
}

// NewCoordinator creates an assignment coordinator.
//
// Parameters:
//   - trackerClient: External tracker the assignments are written through
//   - reg: Shared worker registry
//   - cfg: Configuration; Validate() is called and defaults are applied
//   - opts: Optional dependencies (scorer, allocator, locker, logger,
//     metrics, clock, owner ID)
//
// Returns:
//   - *Coordinator: Initialized coordinator
//   - error: When a required dependency is missing or cfg is invalid
//
// Example:
//
//	cfg := dispatch.DefaultConfig()
//	coord, err := dispatch.NewCoordinator(trackerClient, reg, cfg,
//	    dispatch.WithLogger(logging.NewSlogDefault()))
func NewCoordinator(trackerClient types.TrackerClient, reg types.Registry, cfg Config, opts ...Option) (*Coordinator, error) {
	if trackerClient == nil {
		return nil, ErrTrackerRequired
	}
	if reg == nil {
		return nil, ErrRegistryRequired
	}

	SetDefaults(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	if o.logger != nil {
		cfg.ValidateWithWarnings(o.logger)
	}
	if o.scorer == nil {
		o.scorer = scoring.NewKeywordScorer()
	}
	if o.allocator == nil {
		allocator, err := scoring.NewDiversityAllocator(cfg.Scoring.DiversityWeight, cfg.Scoring.PenaltyCap)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		o.allocator = allocator
	}
	if o.locker == nil {
		o.locker = locking.NewLabelLocker(trackerClient, cfg.LockLabel, o.logger)
	}
	if o.clock == nil {
		o.clock = types.SystemClock()
	}
	if o.ownerID == "" {
		o.ownerID = "dispatch-" + uuid.NewString()
	}

	var coordMetrics types.CoordinatorMetrics
	if o.metrics != nil {
		coordMetrics = o.metrics
	}

	return &Coordinator{
		cfg:       cfg,
		tracker:   trackerClient,
		reg:       reg,
		scorer:    o.scorer,
		allocator: o.allocator,
		locker:    o.locker,
		policy: retry.Policy{
			Attempts: cfg.Retry.MaxAttempts,
			Base:     cfg.Retry.Backoff,
			Logger:   o.logger,
			Metrics:  coordMetrics,
		},
		logger:  o.logger,
		metrics: o.metrics,
		clock:   o.clock,
		ownerID: o.ownerID,
	}, nil
}

// OwnerID returns the claim owner identity of this coordinator.
func (c *Coordinator) OwnerID() string { return c.ownerID }

// Records returns a copy of the structured assignment log produced so
// far. This log and the outcomes are the only stable outputs downstream
// report generators may depend on.
func (c *Coordinator) Records() []types.AssignmentRecord {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := make([]types.AssignmentRecord, len(c.records))
	copy(out, c.records)

	return out
}

// TryAssign runs the assignment protocol for a single item.
//
// The registry is loaded, the cycle counter of the selected worker is
// incremented, and the snapshot is saved back under optimistic
// concurrency before returning.
//
// Parameters:
//   - ctx: Context bounding all external calls
//   - itemID: Work item to assign
//
// Returns:
//   - types.Outcome: assigned, skipped(reason), or failed(reason); never
//     two assigned outcomes for the same item across racing invocations
//   - error: Only for invocation-fatal conditions (registry unreachable);
//     per-item problems are reported in the outcome instead
func (c *Coordinator) TryAssign(ctx context.Context, itemID string) (types.Outcome, error) {
	snap, version, err := c.loadRegistry(ctx)
	if err != nil {
		return types.Outcome{}, err
	}

	outcome := c.tryAssignWithSnapshot(ctx, itemID, snap)

	if outcome.Kind == types.OutcomeAssigned {
		if err := c.saveRegistry(ctx, snap, version); err != nil {
			// The assignment is already written externally; a counter flush
			// failure must not turn it into a reported failure.
			c.warn("cycle counter flush failed", "item", itemID, "error", err)
		}
	}

	return outcome, nil
}

// AssignPending runs the assignment protocol over every eligible pending
// item in one invocation.
//
// Cycle counters are reset at the start of the batch, shared across the
// items so the diversity penalty accumulates within the batch, and
// flushed back to the registry once at the end with bounded
// reload-reapply retries on conflict.
//
// Parameters:
//   - ctx: Context for the whole invocation; wrapped with the configured
//     InvocationTimeout
//
// Returns:
//   - []types.Outcome: One outcome per eligible item, in item ID order
//   - error: Only for invocation-fatal conditions (listing or registry
//     unreachable after retries)
func (c *Coordinator) AssignPending(ctx context.Context) ([]types.Outcome, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.InvocationTimeout)
	defer cancel()

	var items []types.WorkItem
	err := c.policy.Do(ctx, "list_items", func(ctx context.Context) error {
		var err error
		items, err = c.tracker.ListItems(ctx, c.cfg.ItemFilter, types.Window{})
		c.recordTrackerCall("list_items")

		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list pending items: %w", err)
	}

	snap, version, err := c.loadRegistry(ctx)
	if err != nil {
		return nil, err
	}
	for _, w := range snap.Workers {
		w.CycleAssignments = 0
	}

	outcomes := make([]types.Outcome, 0, len(items))
	assignedTo := make(map[string]int)
	for _, item := range items {
		outcome := c.tryAssignWithSnapshot(ctx, item.ID, snap)
		outcomes = append(outcomes, outcome)
		if outcome.Kind == types.OutcomeAssigned {
			assignedTo[outcome.WorkerID]++
		}
	}

	if len(assignedTo) > 0 {
		if err := c.flushCounters(ctx, snap, version, assignedTo); err != nil {
			return outcomes, err
		}
	}
	sortOutcomes(outcomes)

	return outcomes, nil
}

// recordTrackerCall forwards one external call to the metrics collector.
func (c *Coordinator) recordTrackerCall(op string) {
	if c.metrics != nil {
		c.metrics.RecordTrackerCall(op)
	}
}

// tryAssignWithSnapshot runs protocol steps 1-7 against a shared registry
// snapshot, mutating the selected worker's cycle counter in place.
func (c *Coordinator) tryAssignWithSnapshot(ctx context.Context, itemID string, snap *types.RegistrySnapshot) types.Outcome {
	// Step 1: re-fetch the live item state; never trust a stale snapshot.
	var item *types.WorkItem
	err := c.policy.Do(ctx, "get_item", func(ctx context.Context) error {
		var err error
		item, err = c.tracker.GetItem(ctx, itemID)
		c.recordTrackerCall("get_item")

		return err
	})
	if err != nil {
		return c.failed(itemID, types.ReasonTransientExhausted, err)
	}

	// Step 2: assignee or marker present means someone else got here first.
	if item.ClosedAt != nil {
		return c.skipped(itemID, types.ReasonItemClosed)
	}
	if item.Assignee != "" || item.HasLabel(c.cfg.LockLabel) {
		return c.skipped(itemID, types.ReasonAlreadyClaimed)
	}

	// Step 3: idempotent add-if-absent write of the claim marker.
	acquired, err := c.locker.Acquire(ctx, itemID, c.ownerID)
	if err != nil {
		return c.failed(itemID, types.ReasonTransientExhausted, err)
	}
	if !acquired {
		return c.skipped(itemID, types.ReasonAlreadyClaimed)
	}

	// Step 4: immediately re-read; the deterministic tie-break picks one
	// logical winner among concurrent writers. Losers leave the marker
	// alone: it belongs to the winner now.
	won, err := c.locker.Confirm(ctx, itemID, c.ownerID)
	if err != nil {
		return c.lockedFailure(itemID, err)
	}
	if !won {
		return c.skipped(itemID, types.ReasonLostTieBreak)
	}

	// Step 5: score all assignable workers and rank with the diversity
	// penalty. Pure and deterministic given the snapshot.
	ranking, best := c.rank(item, snap)
	if best == nil {
		// Nothing qualified. Hand the marker back so the item stays
		// eligible for a future cycle with a different worker pool.
		if err := c.locker.Release(ctx, itemID, c.ownerID); err != nil {
			c.warn("marker release after empty ranking failed", "item", itemID, "error", err)
		}

		return c.skipped(itemID, types.ReasonNoCandidates)
	}

	// Step 6: write the assignment. From here on the marker is never
	// removed: a failure leaves the item locked-but-unassigned for manual
	// follow-up rather than risking a duplicate assignment.
	err = c.policy.Do(ctx, "set_assignee", func(ctx context.Context) error {
		c.recordTrackerCall("set_assignee")

		return c.tracker.SetAssignee(ctx, itemID, best.WorkerID)
	})
	if err != nil {
		return c.lockedFailure(itemID, err)
	}

	// The annotation comment is best-effort: the assignee field already
	// carries the attribution the collector needs.
	if err := c.tracker.AddComment(ctx, itemID, assignedPrefix+" "+best.WorkerID); err != nil {
		c.warn("assignment annotation failed", "item", itemID, "error", err)
	}
	c.recordTrackerCall("add_comment")

	// Step 7: account for the assignment and log the decision.
	if worker, ok := snap.Workers[best.WorkerID]; ok {
		worker.CycleAssignments++
	}
	c.appendRecord(itemID, best)

	if c.metrics != nil {
		c.metrics.RecordAssignOutcome(types.OutcomeAssigned, "")
		c.metrics.RecordAssignmentScore(best.AdjustedScore)
	}
	if c.logger != nil {
		c.logger.Info("item assigned",
			"item", itemID,
			"worker", best.WorkerID,
			"baseScore", best.BaseScore,
			"adjustedScore", best.AdjustedScore)
	}

	return types.Outcome{
		Kind:     types.OutcomeAssigned,
		ItemID:   itemID,
		WorkerID: best.WorkerID,
		Ranking:  ranking,
	}
}

// rank scores every assignable worker for the item and returns the full
// ranking plus the selected row (highest adjusted score above zero).
func (c *Coordinator) rank(item *types.WorkItem, snap *types.RegistrySnapshot) ([]types.ScoreRecord, *scoring.Ranked) {
	base := make(map[string]float64)
	counts := make(map[string]int)
	for id, worker := range snap.Workers {
		if !worker.Assignable() {
			continue
		}
		base[id] = c.scorer.Score(item, worker)
		counts[id] = worker.CycleAssignments
	}

	ranked := c.allocator.Allocate(base, counts)

	records := make([]types.ScoreRecord, len(ranked))
	for i, r := range ranked {
		records[i] = types.ScoreRecord{
			ItemID:        item.ID,
			WorkerID:      r.WorkerID,
			BaseScore:     r.BaseScore,
			AdjustedScore: r.AdjustedScore,
			Rank:          i + 1,
		}
	}

	if len(ranked) == 0 || ranked[0].AdjustedScore <= 0 {
		return records, nil
	}
	best := ranked[0]

	return records, &best
}

// loadRegistry loads the shared registry snapshot with retries.
func (c *Coordinator) loadRegistry(ctx context.Context) (*types.RegistrySnapshot, uint64, error) {
	var (
		snap    *types.RegistrySnapshot
		version uint64
	)
	err := c.policy.Do(ctx, "registry_load", func(ctx context.Context) error {
		var err error
		snap, version, err = c.reg.Load(ctx)

		return err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("load worker registry: %w", err)
	}

	return snap, version, nil
}

// saveRegistry saves the snapshot, reporting conflicts to metrics.
func (c *Coordinator) saveRegistry(ctx context.Context, snap *types.RegistrySnapshot, version uint64) error {
	err := c.reg.Save(ctx, snap, version)
	if c.metrics != nil {
		c.metrics.RecordRegistrySave(types.IsRegistryConflict(err))
	}

	return err
}

// flushCounters writes the batch's cycle counters back under optimistic
// concurrency. On conflict the registry is reloaded and the per-worker
// deltas reapplied, a bounded number of times.
func (c *Coordinator) flushCounters(ctx context.Context, snap *types.RegistrySnapshot, version uint64, deltas map[string]int) error {
	for attempt := 1; ; attempt++ {
		err := c.saveRegistry(ctx, snap, version)
		if err == nil {
			return nil
		}
		if !types.IsRegistryConflict(err) || attempt >= registrySaveAttempts {
			return fmt.Errorf("flush cycle counters: %w", err)
		}

		c.warn("registry conflict flushing counters, reloading", "attempt", attempt)
		snap, version, err = c.loadRegistry(ctx)
		if err != nil {
			return err
		}
		// The reloaded snapshot carries last cycle's counters; the
		// batch-start reset must be reapplied along with the deltas.
		for _, worker := range snap.Workers {
			worker.CycleAssignments = 0
		}
		for workerID, delta := range deltas {
			if worker, ok := snap.Workers[workerID]; ok {
				worker.CycleAssignments += delta
			}
		}
	}
}

// appendRecord appends one assignment log entry.
func (c *Coordinator) appendRecord(itemID string, best *scoring.Ranked) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.records = append(c.records, types.AssignmentRecord{
		ID:            uuid.NewString(),
		ItemID:        itemID,
		WorkerID:      best.WorkerID,
		BaseScore:     best.BaseScore,
		AdjustedScore: best.AdjustedScore,
		Timestamp:     c.clock.Now(),
	})
}

func (c *Coordinator) skipped(itemID, reason string) types.Outcome {
	if c.metrics != nil {
		c.metrics.RecordAssignOutcome(types.OutcomeSkipped, reason)
	}
	if c.logger != nil {
		c.logger.Info("item skipped", "item", itemID, "reason", reason)
	}

	return types.Outcome{Kind: types.OutcomeSkipped, ItemID: itemID, Reason: reason}
}

func (c *Coordinator) failed(itemID, reason string, err error) types.Outcome {
	if c.metrics != nil {
		c.metrics.RecordAssignOutcome(types.OutcomeFailed, reason)
	}
	if c.logger != nil {
		c.logger.Error("item assignment failed", "item", itemID, "reason", reason, "error", err)
	}

	return types.Outcome{Kind: types.OutcomeFailed, ItemID: itemID, Reason: reason}
}

// lockedFailure reports a failure after the marker write succeeded. The
// marker is deliberately left in place: a stuck, visible item is safer
// than a duplicate assignment.
func (c *Coordinator) lockedFailure(itemID string, err error) types.Outcome {
	return c.failed(itemID, types.ReasonLockedUnassigned, err)
}

func (c *Coordinator) warn(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Warn(msg, args...)
	}
}

// sortOutcomes orders outcomes by item ID for stable reporting.
func sortOutcomes(outcomes []types.Outcome) {
	sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].ItemID < outcomes[j].ItemID })
}

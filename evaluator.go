package dispatch

import (
	"context"
	"fmt"
	"sort"

	"github.com/corvana/dispatch/internal/lifecycle"
	"github.com/corvana/dispatch/internal/retry"
	"github.com/corvana/dispatch/internal/telemetry"
	"github.com/corvana/dispatch/registry"
	"github.com/corvana/dispatch/types"
)

// Evaluator runs the worker lifecycle evaluation cycle: one batched
// telemetry collection, one fitness evaluation per worker against the
// cached batch, one optimistic registry write-back.
//
// Like the Coordinator, an Evaluator is built per invocation and holds no
// background goroutines.
type Evaluator struct {
	cfg     Config
	tracker types.TrackerClient
	reg     types.Registry

	collector *telemetry.Collector
	engine    *lifecycle.Evaluator
	resolver  *registry.Resolver
	policy    retry.Policy
	logger    types.Logger
	metrics   types.MetricsCollector
	clock     types.Clock
}

// NewEvaluator creates a lifecycle evaluator.
//
// Parameters:
//   - trackerClient: Source of the telemetry batch
//   - reg: Shared worker registry the transitions are written to
//   - cfg: Configuration; Validate() is called and defaults are applied
//   - opts: Optional dependencies (logger, metrics, clock)
//
// Returns:
//   - *Evaluator: Initialized evaluator
//   - error: When a required dependency is missing or cfg is invalid
func NewEvaluator(trackerClient types.TrackerClient, reg types.Registry, cfg Config, opts ...Option) (*Evaluator, error) {
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
	if o.clock == nil {
		o.clock = types.SystemClock()
	}

	var (
		telemetryMetrics types.TelemetryMetrics
		lifecycleMetrics types.LifecycleMetrics
		coordMetrics     types.CoordinatorMetrics
	)
	if o.metrics != nil {
		telemetryMetrics = o.metrics
		lifecycleMetrics = o.metrics
		coordMetrics = o.metrics
	}

	filter := types.ItemFilter{Labels: cfg.Telemetry.FilterLabels}

	return &Evaluator{
		cfg:       cfg,
		tracker:   trackerClient,
		reg:       reg,
		collector: telemetry.NewCollector(trackerClient, filter, o.logger, telemetryMetrics, o.clock),
		engine: lifecycle.NewEvaluator(lifecycle.Options{
			Weights:             cfg.Lifecycle.FitnessWeights,
			RetirementThreshold: cfg.Lifecycle.RetirementThreshold,
			PromotionThreshold:  cfg.Lifecycle.PromotionThreshold,
			GracePeriod:         cfg.Lifecycle.GracePeriod,
			ResolutionTarget:    cfg.Lifecycle.ResolutionTarget,
			ReviewTarget:        cfg.Lifecycle.ReviewTarget,
			Logger:              o.logger,
			Metrics:             lifecycleMetrics,
			Clock:               o.clock,
		}),
		resolver: &registry.Resolver{
			Defaults: cfg.DefaultCapabilities,
			Clock:    o.clock,
		},
		policy: retry.Policy{
			Attempts: cfg.Retry.MaxAttempts,
			Base:     cfg.Retry.Backoff,
			Logger:   o.logger,
			Metrics:  coordMetrics,
		},
		logger:  o.logger,
		metrics: o.metrics,
		clock:   o.clock,
	}, nil
}

// EvaluateAll runs one full evaluation cycle.
//
// The telemetry batch is collected exactly once; every worker is then
// evaluated against the cached batch, so external call count does not
// grow with the worker count. The mutated registry is saved under
// optimistic concurrency; on conflict the snapshot is reloaded and the
// whole evaluation recomputed from fresh state, a bounded number of
// times, since evaluation is a pure function of snapshot and batch.
//
// Parameters:
//   - ctx: Context for the whole invocation; wrapped with the configured
//     InvocationTimeout
//
// Returns:
//   - []types.EvaluationResult: One result per evaluated worker, in
//     worker ID order
//   - error: When collection fails or the registry cannot be saved
//     within the retry bound
func (e *Evaluator) EvaluateAll(ctx context.Context) ([]types.EvaluationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.InvocationTimeout)
	defer cancel()

	now := e.clock.Now()
	window := types.Window{Since: now.Add(-e.cfg.Telemetry.Window), Until: now}

	var batch *telemetry.Batch
	err := e.policy.Do(ctx, "collect_all", func(ctx context.Context) error {
		var err error
		batch, err = e.collector.CollectAll(ctx, window)

		return err
	})
	if err != nil {
		return nil, fmt.Errorf("collect telemetry batch: %w", err)
	}

	var results []types.EvaluationResult
	for attempt := 1; ; attempt++ {
		snap, version, err := e.loadRegistry(ctx)
		if err != nil {
			return nil, err
		}

		results = e.evaluateSnapshot(snap, batch)

		err = e.saveRegistry(ctx, snap, version)
		if err == nil {
			break
		}
		if !types.IsRegistryConflict(err) || attempt >= registrySaveAttempts {
			return nil, fmt.Errorf("save evaluated registry: %w", err)
		}
		if e.logger != nil {
			e.logger.Warn("registry conflict during evaluation, recomputing", "attempt", attempt)
		}
	}

	e.recordWorkerCounts(results)

	return results, nil
}

// evaluateSnapshot applies the state machine to every worker in the
// snapshot, adding workers the batch attributes but the registry does not
// know when a capability default covers them.
func (e *Evaluator) evaluateSnapshot(snap *types.RegistrySnapshot, batch *telemetry.Batch) []types.EvaluationResult {
	// Workers seen in telemetry but missing from the registry resolve
	// through the static capability defaults.
	for _, workerID := range batch.Workers() {
		if _, ok := snap.Workers[workerID]; ok {
			continue
		}
		res := e.resolver.Resolve(snap, workerID)
		switch res.Kind {
		case types.ResolveDerivedFromDefault:
			snap.Workers[workerID] = res.Profile
			if e.logger != nil {
				e.logger.Info("worker synthesized from capability default", "worker", workerID)
			}
		case types.ResolveUnknown:
			if e.logger != nil {
				e.logger.Warn("telemetry for unknown worker dropped",
					"worker", workerID, "items", len(batch.ItemsFor(workerID)))
			}
		}
	}

	ids := make([]string, 0, len(snap.Workers))
	for id := range snap.Workers {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	results := make([]types.EvaluationResult, 0, len(ids))
	for _, id := range ids {
		results = append(results, e.engine.Evaluate(snap.Workers[id], batch.ItemsFor(id)))
	}

	return results
}

// recordWorkerCounts publishes the post-evaluation status distribution.
func (e *Evaluator) recordWorkerCounts(results []types.EvaluationResult) {
	if e.metrics == nil {
		return
	}

	counts := make(map[types.WorkerStatus]int)
	for _, r := range results {
		counts[r.StatusAfter]++
	}
	for _, status := range []types.WorkerStatus{
		types.StatusActive, types.StatusPromoted, types.StatusRetired, types.StatusProtected,
	} {
		e.metrics.RecordWorkerCount(status, counts[status])
	}
}

func (e *Evaluator) loadRegistry(ctx context.Context) (*types.RegistrySnapshot, uint64, error) {
	var (
		snap    *types.RegistrySnapshot
		version uint64
	)
	err := e.policy.Do(ctx, "registry_load", func(ctx context.Context) error {
		var err error
		snap, version, err = e.reg.Load(ctx)

		return err
	})
	if err != nil {
		return nil, 0, fmt.Errorf("load worker registry: %w", err)
	}

	return snap, version, nil
}

func (e *Evaluator) saveRegistry(ctx context.Context, snap *types.RegistrySnapshot, version uint64) error {
	err := e.reg.Save(ctx, snap, version)
	if e.metrics != nil {
		e.metrics.RecordRegistrySave(types.IsRegistryConflict(err))
	}

	return err
}

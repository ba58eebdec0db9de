package dispatch

import (
	"github.com/corvana/dispatch/scoring"
	"github.com/corvana/dispatch/types"
)

// Option configures a Coordinator or Evaluator with optional dependencies.
type Option func(*options)

// options holds optional Coordinator and Evaluator configuration.
type options struct {
	scorer    scoring.Scorer
	allocator *scoring.DiversityAllocator
	locker    types.MarkerLocker
	metrics   types.MetricsCollector
	logger    types.Logger
	clock     types.Clock
	ownerID   string
}

// WithScorer sets a custom capability scorer.
//
// Parameters:
//   - scorer: Scorer implementation
//
// Returns:
//   - Option: Functional option for NewCoordinator
//
// Example:
//
//	scorer := &scoring.KeywordScorer{TitleMultiplier: 3}
//	coord, err := dispatch.NewCoordinator(tc, reg, cfg, dispatch.WithScorer(scorer))
func WithScorer(scorer scoring.Scorer) Option {
	return func(o *options) {
		o.scorer = scorer
	}
}

// WithAllocator sets a custom diversity allocator.
//
// Parameters:
//   - allocator: Allocator built with scoring.NewDiversityAllocator
//
// Returns:
//   - Option: Functional option for NewCoordinator
func WithAllocator(allocator *scoring.DiversityAllocator) Option {
	return func(o *options) {
		o.allocator = allocator
	}
}

// WithLocker sets the claim-marker lock implementation.
//
// The default is the label-based locker working directly against the
// tracker. Deployments with a NATS JetStream KV store available can pass
// the KV-backed locker for a stricter compare-and-set claim.
//
// Parameters:
//   - locker: MarkerLocker implementation
//
// Returns:
//   - Option: Functional option for NewCoordinator
//
// Example:
//
//	locker, _ := locking.NewNATSLocker(ctx, js, "dispatch-locks", ownerID)
//	coord, err := dispatch.NewCoordinator(tc, reg, cfg, dispatch.WithLocker(locker))
func WithLocker(locker types.MarkerLocker) Option {
	return func(o *options) {
		o.locker = locker
	}
}

// WithMetrics sets a metrics collector.
//
// Parameters:
//   - metrics: MetricsCollector implementation
//
// Returns:
//   - Option: Functional option for NewCoordinator and NewEvaluator
//
// Example:
//
//	collector := metrics.NewPrometheusCollector(prometheus.DefaultRegisterer)
//	coord, err := dispatch.NewCoordinator(tc, reg, cfg, dispatch.WithMetrics(collector))
func WithMetrics(metrics types.MetricsCollector) Option {
	return func(o *options) {
		o.metrics = metrics
	}
}

// WithLogger sets a logger.
//
// Parameters:
//   - logger: Logger implementation (compatible with slog via logging.NewSlog)
//
// Returns:
//   - Option: Functional option for NewCoordinator and NewEvaluator
//
// Example:
//
//	logger := logging.NewSlogDefault()
//	coord, err := dispatch.NewCoordinator(tc, reg, cfg, dispatch.WithLogger(logger))
func WithLogger(logger types.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithClock sets the time source. Tests use this for deterministic
// windows and grace periods.
//
// Parameters:
//   - clock: Clock implementation
//
// Returns:
//   - Option: Functional option for NewCoordinator and NewEvaluator
func WithClock(clock types.Clock) Option {
	return func(o *options) {
		o.clock = clock
	}
}

// WithOwnerID fixes the claim owner identity instead of generating a
// random one per coordinator. The owner ID participates in the
// lexicographic tie-break between concurrent claimants, so tests pin it
// to make race outcomes deterministic.
//
// Parameters:
//   - ownerID: Claim owner identity, must be non-empty and unique per
//     concurrent invocation
//
// Returns:
//   - Option: Functional option for NewCoordinator
func WithOwnerID(ownerID string) Option {
	return func(o *options) {
		o.ownerID = ownerID
	}
}

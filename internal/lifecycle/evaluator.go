// Package lifecycle implements the worker fitness model and status state
// machine.
//
// Transitions are monotone: active workers may be promoted or retired,
// promoted workers stay promoted, retired workers never return, and
// protected workers are exempt from retirement regardless of score. The
// maintain decision (active -> active) is idempotent.
package lifecycle

import (
	"math"
	"time"

	"github.com/corvana/dispatch/types"
)

// Evaluation reason codes, machine-parseable for downstream dashboards.
const (
	ReasonLowFitness  = "low-fitness"
	ReasonHighFitness = "high-fitness"
	ReasonMaintained  = "maintained"
	ReasonProtected   = "protected-exempt"
	ReasonGracePeriod = "grace-period"
)

// Options configures an Evaluator. Zero-value fields take defaults.
type Options struct {
	// Weights is the fitness blend. Zero value uses
	// types.DefaultFitnessWeights.
	Weights types.FitnessWeights

	// RetirementThreshold retires workers scoring below it. Default 0.30.
	RetirementThreshold float64

	// PromotionThreshold promotes workers scoring at or above it.
	// Default 0.65.
	PromotionThreshold float64

	// GracePeriod protects newly created workers from retirement.
	// Default 48h.
	GracePeriod time.Duration

	// ResolutionTarget is the resolved-issue count at which the
	// resolution component saturates to 1. Default 10.
	ResolutionTarget int

	// ReviewTarget is the review count at which the review component
	// saturates to 1. Default 10.
	ReviewTarget int

	Logger  types.Logger
	Metrics types.LifecycleMetrics
	Clock   types.Clock
}

// Evaluator computes fitness scores and applies status transitions.
type Evaluator struct {
	opts Options
}

// NewEvaluator creates an evaluator, filling defaulted options.
func NewEvaluator(opts Options) *Evaluator {
	if opts.Weights == (types.FitnessWeights{}) {
		opts.Weights = types.DefaultFitnessWeights()
	}
	if opts.RetirementThreshold == 0 {
		opts.RetirementThreshold = 0.30
	}
	if opts.PromotionThreshold == 0 {
		opts.PromotionThreshold = 0.65
	}
	if opts.GracePeriod == 0 {
		opts.GracePeriod = 48 * time.Hour
	}
	if opts.ResolutionTarget == 0 {
		opts.ResolutionTarget = 10
	}
	if opts.ReviewTarget == 0 {
		opts.ReviewTarget = 10
	}
	if opts.Clock == nil {
		opts.Clock = types.SystemClock()
	}

	return &Evaluator{opts: opts}
}

// Fitness computes the composite fitness score for a set of worker
// metrics. Identical inputs produce bit-identical output.
func (e *Evaluator) Fitness(m types.WorkerMetrics) float64 {
	w := e.opts.Weights

	resolution := saturate(m.IssuesResolved, e.opts.ResolutionTarget)
	review := saturate(m.ReviewCount, e.opts.ReviewTarget)
	prSuccess := 0.0
	if m.PRsOpened > 0 {
		prSuccess = float64(m.PRsMerged) / float64(m.PRsOpened)
	}

	score := w.Quality*m.QualityScore +
		w.Resolution*resolution +
		w.PRSuccess*prSuccess +
		w.Review*review +
		w.Creativity*m.NoveltyScore

	return math.Min(score, 1.0)
}

// Evaluate folds the worker's recent activity into its metrics, computes
// fitness, and applies the transition rule in place.
//
// Parameters:
//   - profile: Worker profile, mutated (Status and Metrics)
//   - recent: Items attributed to the worker this cycle
//
// Returns:
//   - types.EvaluationResult: Structured transition record for downstream
//     report generators
func (e *Evaluator) Evaluate(profile *types.WorkerProfile, recent []types.WorkItem) types.EvaluationResult {
	for _, item := range recent {
		if item.ClosedAt != nil {
			profile.Metrics.IssuesResolved++
		}
	}

	fitness := e.Fitness(profile.Metrics)
	if e.opts.Metrics != nil {
		e.opts.Metrics.RecordFitness(fitness)
	}

	result := types.EvaluationResult{
		WorkerID:     profile.ID,
		StatusBefore: profile.Status,
		Fitness:      fitness,
	}
	result.StatusAfter, result.Reason = e.decide(profile, fitness)

	if result.StatusAfter != result.StatusBefore {
		profile.Status = result.StatusAfter
		if e.opts.Metrics != nil {
			e.opts.Metrics.RecordTransition(result.StatusBefore, result.StatusAfter)
		}
		if e.opts.Logger != nil {
			e.opts.Logger.Info("worker status transition",
				"worker", profile.ID,
				"from", result.StatusBefore,
				"to", result.StatusAfter,
				"fitness", fitness,
				"reason", result.Reason)
		}
	}

	return result
}

// decide applies the transition rule without mutating the profile.
func (e *Evaluator) decide(profile *types.WorkerProfile, fitness float64) (types.WorkerStatus, string) {
	status := profile.Status

	switch status {
	case types.StatusRetired:
		// Terminal.
		return status, ReasonMaintained
	case types.StatusProtected:
		return status, ReasonProtected
	}

	if fitness < e.opts.RetirementThreshold {
		if e.withinGrace(profile) {
			return status, ReasonGracePeriod
		}

		return types.StatusRetired, ReasonLowFitness
	}

	if fitness >= e.opts.PromotionThreshold && status != types.StatusPromoted {
		return types.StatusPromoted, ReasonHighFitness
	}

	return status, ReasonMaintained
}

func (e *Evaluator) withinGrace(profile *types.WorkerProfile) bool {
	return e.opts.Clock.Now().Sub(profile.CreatedAt) < e.opts.GracePeriod
}

// saturate maps count linearly onto [0,1], saturating at target.
func saturate(count, target int) float64 {
	if count >= target {
		return 1.0
	}

	return float64(count) / float64(target)
}

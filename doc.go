// Package dispatch provides race-free work assignment and worker
// lifecycle management over an external issue tracker.
//
// Dispatch coordinates a fleet of autonomous workers competing for
// externally tracked work items. It provides a double-read claim-marker
// protocol safe against concurrent invocations, diversity-weighted
// capability scoring, a batched telemetry collector whose external call
// count does not scale with worker count, and a fitness-driven worker
// lifecycle state machine.
//
// # Quick Start
//
// Basic usage with default settings:
//
//	import "github.com/corvana/dispatch"
//
//	cfg := dispatch.DefaultConfig()
//	reg := registry.NewFile(cfg.Registry.Path)
//
//	coord, err := dispatch.NewCoordinator(trackerClient, reg, cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	outcomes, err := coord.AssignPending(ctx)
//
// # Key Features
//
//   - Race-Free Claims: Double-read marker protocol with a deterministic
//     tie-break, safe even without serialized triggering
//   - Diversity-Weighted Scoring: Per-cycle penalties prevent one worker
//     from monopolizing a batch, with a cap so no worker starves
//   - Batched Telemetry: One broad query per evaluation cycle, O(items)
//     external calls regardless of fleet size
//   - Lifecycle State Machine: Fitness-driven promotion and retirement
//     with grace periods and protected roles
//   - Deduplication Ledger: Bounded content-fingerprint set preventing
//     re-queued duplicate work
//
// # Architecture
//
// Assignment runs the protocol per item:
//
//	RE-FETCH → CHECK CLAIM → ACQUIRE MARKER → CONFIRM TIE-BREAK → SCORE → ASSIGN
//
// Independently, on a slower cadence, the Evaluator collects one
// telemetry batch, evaluates every worker against it, and writes status
// transitions back to the shared registry under optimistic concurrency.
//
// # Advanced Usage
//
// Custom locker and metrics with options:
//
//	import (
//	    "github.com/corvana/dispatch"
//	    "github.com/corvana/dispatch/locking"
//	)
//
//	locker, err := locking.NewNATSLocker(ctx, js, "dispatch-locks", ownerID)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	coord, err := dispatch.NewCoordinator(trackerClient, reg, cfg,
//	    dispatch.WithLocker(locker),
//	    dispatch.WithMetrics(metrics.NewPrometheusCollector(prometheus.DefaultRegisterer)),
//	)
//
// See the examples/ directory for complete working examples.
package dispatch

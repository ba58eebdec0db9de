// Package scoring provides the matching and allocation engine for work
// item assignment.
//
// Two pieces cooperate:
//
//   - KeywordScorer computes a deterministic base relevance score for one
//     (work item, worker profile) pair from the worker's capability
//     keywords and patterns. It is a pure function: identical inputs
//     always produce identical output, which the coordinator's tie-break
//     logic and reproducible tests depend on.
//
//   - DiversityAllocator turns base scores into a penalty-adjusted ranking
//     using each worker's running assignment count, so the best-matching
//     worker usually wins but no worker can monopolize the queue.
//
// Custom scorers can be injected into the coordinator via
// dispatch.WithScorer.
package scoring

package dispatch

import "github.com/corvana/dispatch/types"

// Re-export types from the internal types package.
//
// This file provides a stable public API for the library's core types and
// interfaces using type aliases into the `types` subpackage, which holds
// the actual definitions.
//
// This pattern solves the "import cycle" problem by allowing internal
// packages to depend on `types` without depending on the root `dispatch`
// package, while still providing a convenient `dispatch.WorkItem`,
// `dispatch.Logger`, etc. for users.
type (
	WorkItem         = types.WorkItem
	ItemFilter       = types.ItemFilter
	ItemEvent        = types.ItemEvent
	Window           = types.Window
	WorkerProfile    = types.WorkerProfile
	WorkerMetrics    = types.WorkerMetrics
	WorkerStatus     = types.WorkerStatus
	Capability       = types.Capability
	Outcome          = types.Outcome
	OutcomeKind      = types.OutcomeKind
	FitnessWeights   = types.FitnessWeights
	ScoreRecord      = types.ScoreRecord
	AssignmentRecord = types.AssignmentRecord
	EvaluationResult = types.EvaluationResult
	RegistrySnapshot = types.RegistrySnapshot
)

// Re-export interfaces from the internal types package for convenience.
type (
	TrackerClient    = types.TrackerClient
	MarkerLocker     = types.MarkerLocker
	Registry         = types.Registry
	MetricsCollector = types.MetricsCollector
	Logger           = types.Logger
	Clock            = types.Clock
)

// Re-export worker status constants.
const (
	StatusActive    = types.StatusActive
	StatusPromoted  = types.StatusPromoted
	StatusRetired   = types.StatusRetired
	StatusProtected = types.StatusProtected
)

// Re-export outcome kinds.
const (
	OutcomeAssigned = types.OutcomeAssigned
	OutcomeSkipped  = types.OutcomeSkipped
	OutcomeFailed   = types.OutcomeFailed
)

// Re-export machine-parseable reason codes.
const (
	ReasonAlreadyClaimed     = types.ReasonAlreadyClaimed
	ReasonLostTieBreak       = types.ReasonLostTieBreak
	ReasonNoCandidates       = types.ReasonNoCandidates
	ReasonItemClosed         = types.ReasonItemClosed
	ReasonMalformedItem      = types.ReasonMalformedItem
	ReasonTransientExhausted = types.ReasonTransientExhausted
	ReasonLockedUnassigned   = types.ReasonLockedUnassigned
)

package types

import "time"

// OutcomeKind classifies the result of a TryAssign call.
type OutcomeKind string

// TryAssign outcome kinds.
const (
	// OutcomeAssigned means the item was assigned to Outcome.WorkerID.
	OutcomeAssigned OutcomeKind = "assigned"

	// OutcomeSkipped means the item was deliberately left alone
	// (already claimed, lost the tie-break, no candidates). Not an error.
	OutcomeSkipped OutcomeKind = "skipped"

	// OutcomeFailed means an error prevented assignment. If the lock
	// marker had already been written it is left in place for manual
	// follow-up rather than risking a duplicate assignment.
	OutcomeFailed OutcomeKind = "failed"
)

// Machine-parseable reason codes attached to skips and failures so
// downstream dashboards can aggregate without parsing prose.
const (
	ReasonAlreadyClaimed     = "already-claimed"
	ReasonLostTieBreak       = "lost-tiebreak"
	ReasonNoCandidates       = "no-candidates"
	ReasonItemClosed         = "item-closed"
	ReasonMalformedItem      = "malformed-item"
	ReasonTransientExhausted = "transient-exhausted"
	ReasonLockedUnassigned   = "locked-unassigned"
)

// Outcome is the result of one TryAssign invocation.
type Outcome struct {
	// Kind is assigned, skipped, or failed.
	Kind OutcomeKind `json:"kind"`

	// ItemID is the work item the outcome applies to.
	ItemID string `json:"itemId"`

	// WorkerID is set when Kind is OutcomeAssigned.
	WorkerID string `json:"workerId,omitempty"`

	// Reason is the machine-parseable reason code for skips and failures.
	Reason string `json:"reason,omitempty"`

	// Ranking is the full penalty-adjusted ranking computed for the item.
	// Present only for assigned outcomes; not part of the stable interface
	// beyond the selected worker's scores.
	Ranking []ScoreRecord `json:"ranking,omitempty"`
}

// ScoreRecord is one (item, worker) scoring row from an allocation pass.
//
// Records are ephemeral: recomputed per pass and persisted only in the
// decision log.
type ScoreRecord struct {
	ItemID        string  `json:"itemId"`
	WorkerID      string  `json:"workerId"`
	BaseScore     float64 `json:"baseScore"`
	AdjustedScore float64 `json:"adjustedScore"`
	Rank          int     `json:"rank"`
}

// AssignmentRecord is the structured assignment log entry produced for
// downstream report generators. This, together with EvaluationResult, is
// the only output other subsystems may depend on.
type AssignmentRecord struct {
	ID            string    `json:"id"`
	ItemID        string    `json:"itemId"`
	WorkerID      string    `json:"workerId"`
	BaseScore     float64   `json:"baseScore"`
	AdjustedScore float64   `json:"adjustedScore"`
	Timestamp     time.Time `json:"timestamp"`
}

// EvaluationResult is the structured per-worker result of one lifecycle
// evaluation cycle.
type EvaluationResult struct {
	WorkerID     string       `json:"workerId"`
	StatusBefore WorkerStatus `json:"statusBefore"`
	StatusAfter  WorkerStatus `json:"statusAfter"`
	Fitness      float64      `json:"fitness"`
	Reason       string       `json:"reason"`
}

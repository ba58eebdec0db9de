package types

import "time"

// WorkerStatus is the lifecycle status of a worker.
type WorkerStatus string

// Worker lifecycle statuses.
//
// Transitions are driven exclusively by the lifecycle evaluator and are
// monotone: a promoted worker is never demoted back to active, a retired
// worker never returns. The one exception is the maintain decision
// (active -> active), which is idempotent. Protected workers are exempt
// from retirement regardless of fitness.
const (
	StatusActive    WorkerStatus = "active"
	StatusPromoted  WorkerStatus = "promoted"
	StatusRetired   WorkerStatus = "retired"
	StatusProtected WorkerStatus = "protected"
)

// Capability is one weighted matching term in a worker's profile.
//
// A plain keyword matches on substring; a pattern capability is compiled
// as a regular expression and contributes at double the keyword weight by
// default, since patterns are more informative than bare keywords.
type Capability struct {
	// Term is the keyword or regular expression source.
	Term string `json:"term" yaml:"term"`

	// Pattern marks Term as a regular expression rather than a keyword.
	Pattern bool `json:"pattern,omitempty" yaml:"pattern,omitempty"`

	// Weight scales this capability's contribution. Zero means 1.
	Weight float64 `json:"weight,omitempty" yaml:"weight,omitempty"`
}

// WorkerMetrics holds the cumulative performance counters for a worker.
type WorkerMetrics struct {
	// IssuesResolved is the number of work items the worker has closed.
	IssuesResolved int `json:"issuesResolved"`

	// PRsMerged is the number of merged change requests.
	PRsMerged int `json:"prsMerged"`

	// PRsOpened is the number of change requests opened, merged or not.
	PRsOpened int `json:"prsOpened"`

	// ReviewCount is the number of peer reviews performed.
	ReviewCount int `json:"reviewCount"`

	// QualityScore is an externally supplied code-quality signal in [0,1].
	QualityScore float64 `json:"qualityScore"`

	// NoveltyScore is an externally supplied creativity signal in [0,1].
	NoveltyScore float64 `json:"noveltyScore"`
}

// WorkerProfile describes one autonomous worker competing for assignments.
//
// ID is immutable once created. Profiles are created by the spawning
// pipeline and mutated only through the Registry; the lifecycle evaluator
// owns Status, the coordinator owns CycleAssignments.
type WorkerProfile struct {
	// ID is the stable, unique worker identifier.
	ID string `json:"id"`

	// Name is the human-readable display name.
	Name string `json:"name"`

	// Capabilities is the ordered, weighted list of matching terms.
	Capabilities []Capability `json:"capabilities"`

	// Status is the current lifecycle status.
	Status WorkerStatus `json:"status"`

	// CreatedAt is when the worker was spawned. Workers inside the
	// configured grace period are never retired.
	CreatedAt time.Time `json:"createdAt"`

	// Metrics holds cumulative performance counters.
	Metrics WorkerMetrics `json:"metrics"`

	// CycleAssignments counts assignments in the current allocation batch.
	// Reset at the start of each batch, flushed to the registry at the end.
	CycleAssignments int `json:"cycleAssignments"`
}

// Assignable reports whether the worker may receive new assignments.
// Retired workers never compete; protected and promoted workers do.
func (p *WorkerProfile) Assignable() bool {
	return p.Status != StatusRetired
}

// Clone returns a deep copy of the profile.
func (p *WorkerProfile) Clone() *WorkerProfile {
	cp := *p
	cp.Capabilities = make([]Capability, len(p.Capabilities))
	copy(cp.Capabilities, p.Capabilities)

	return &cp
}

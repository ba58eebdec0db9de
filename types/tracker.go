package types

import (
	"context"
	"time"
)

// Window bounds a telemetry query to items updated within a time range.
type Window struct {
	// Since is the inclusive lower bound. Zero means unbounded.
	Since time.Time

	// Until is the exclusive upper bound. Zero means now.
	Until time.Time
}

// Contains reports whether t falls inside the window.
func (w Window) Contains(t time.Time) bool {
	if !w.Since.IsZero() && t.Before(w.Since) {
		return false
	}
	if !w.Until.IsZero() && !t.Before(w.Until) {
		return false
	}

	return true
}

// TrackerClient is the thin wrapper over the external collaborative
// tracker. Every other component performs its external I/O through this
// interface; nothing else in the module talks to the tracker directly.
//
// Idempotency contract: duplicate label adds and duplicate assignee sets
// must be no-ops. Implementations over trackers without idempotent writes
// must absorb the duplicate themselves.
//
// Implementations must classify retryable failures by wrapping them with
// ErrTransient so the caller's retry budget applies.
type TrackerClient interface {
	// ListItems returns all items matching filter within window in a
	// single broad query. This is the only bulk read in the module; the
	// telemetry collector's call-count guarantee depends on it.
	ListItems(ctx context.Context, filter ItemFilter, window Window) ([]WorkItem, error)

	// GetItem fetches the current state of one item. Callers re-fetch
	// immediately before acting rather than trusting a stale snapshot.
	GetItem(ctx context.Context, id string) (*WorkItem, error)

	// SetLabel adds (present=true) or removes (present=false) a label.
	SetLabel(ctx context.Context, id, label string, present bool) error

	// SetAssignee sets the item's assignee. Empty workerID unassigns.
	SetAssignee(ctx context.Context, id, workerID string) error

	// AddComment appends a comment to the item.
	AddComment(ctx context.Context, id, text string) error

	// ListComments returns the item's comments, oldest first.
	ListComments(ctx context.Context, id string) ([]string, error)

	// ListEvents returns the item's change history, oldest first. This is
	// the expensive per-item fallback; the telemetry collector memoizes it.
	ListEvents(ctx context.Context, id string) ([]ItemEvent, error)

	// OpenChangeRequest opens a change request and returns its ID.
	OpenChangeRequest(ctx context.Context, branch, title, body string) (string, error)
}

// MarkerLocker is the swappable claim-marker protocol used by the
// coordinator. The default implementation stores the marker as a label on
// the item itself; stricter deployments can substitute a real distributed
// lock (e.g. the NATS KV locker) without touching the coordinator.
//
// The marker is the single source of truth preventing duplicate
// processing. Once acquired it is never silently removed; Release exists
// only for the explicit re-open/handoff path.
type MarkerLocker interface {
	// Acquire attempts an idempotent add-if-absent write of the claim
	// marker for itemID on behalf of owner. It returns false if the
	// marker was already present before this call.
	Acquire(ctx context.Context, itemID, owner string) (bool, error)

	// Confirm re-reads the marker state after a successful Acquire and
	// reports whether owner is the single logical winner. When multiple
	// concurrent writers are observed, the deterministic tie-break
	// (lexicographically smallest owner) picks exactly one winner; all
	// others must treat the item as skipped.
	Confirm(ctx context.Context, itemID, owner string) (bool, error)

	// Release removes the marker as part of an explicit handoff. It is
	// never called on the failure path: a failed assignment leaves the
	// marker in place for manual inspection.
	Release(ctx context.Context, itemID, owner string) error
}

// Clock abstracts time for deterministic tests.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock returns a Clock backed by time.Now.
func SystemClock() Clock { return ClockFunc(time.Now) }

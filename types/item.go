package types

import (
	"slices"
	"time"
)

// WorkItem is a unit of externally tracked work eligible for assignment.
//
// Items are owned by the external tracker and mirrored read-only here.
// All mutations go through a TrackerClient; the dispatch subsystem never
// deletes an item.
type WorkItem struct {
	// ID is the tracker-assigned item identifier.
	ID string `json:"id"`

	// Title is the item title. Title matches count double in scoring.
	Title string `json:"title"`

	// Body is the item body text.
	Body string `json:"body"`

	// Labels is the current label set on the item.
	Labels []string `json:"labels"`

	// Assignee is the worker currently assigned, or empty if unassigned.
	Assignee string `json:"assignee,omitempty"`

	// CreatedAt is the tracker-reported creation time.
	CreatedAt time.Time `json:"createdAt"`

	// ClosedAt is the tracker-reported close time, nil while open.
	ClosedAt *time.Time `json:"closedAt,omitempty"`
}

// HasLabel reports whether the item carries the given label.
func (w *WorkItem) HasLabel(label string) bool {
	return slices.Contains(w.Labels, label)
}

// Closed reports whether the item has been closed by the tracker.
func (w *WorkItem) Closed() bool {
	return w.ClosedAt != nil
}

// ItemFilter selects which items a TrackerClient.ListItems call returns.
//
// Zero-value fields are not applied. Filters are advisory: implementations
// that cannot push a predicate to the tracker apply it client-side.
type ItemFilter struct {
	// Labels restricts results to items carrying all of these labels.
	Labels []string

	// State restricts results to "open", "closed", or "all" (default "all").
	State string

	// Unassigned restricts results to items with no assignee.
	Unassigned bool
}

// ItemEvent is a single entry from an item's change history.
//
// Events are the expensive per-item fallback used by the telemetry
// collector when an item's worker cannot be inferred from already-fetched
// content.
type ItemEvent struct {
	// Kind is the tracker event type, e.g. "assigned", "labeled", "commented".
	Kind string

	// Actor is the worker or user that produced the event.
	Actor string

	// At is when the event occurred.
	At time.Time
}

// Package locking provides MarkerLocker implementations.
//
// The marker is the claim protocol's source of truth. The default
// LabelLocker stores it on the tracked item itself, which works against
// a platform whose write API offers no atomic compare-and-swap: the
// idempotent label add is the first barrier and the claim-comment
// re-read (Confirm) is the second. The NATSLocker substitutes a real
// atomic create for stricter deployments.
package locking

import (
	"context"
	"fmt"
	"strings"

	"github.com/corvana/dispatch/types"
)

// DefaultLockLabel is the label used as the assignment lock marker.
const DefaultLockLabel = "dispatch/claimed"

// claimPrefix introduces a claim comment. The owner ID follows.
const claimPrefix = "dispatch-claim:"

// handoffPrefix introduces an explicit handoff comment.
const handoffPrefix = "dispatch-handoff:"

// LabelLocker implements MarkerLocker with a label on the item plus a
// claim comment naming the owner.
//
// The label alone cannot distinguish two concurrent writers (both adds
// succeed, both are idempotent), so each Acquire also records a claim
// comment. Confirm re-reads all claim comments and applies the
// deterministic tie-break: the lexicographically smallest owner wins.
// An owner that loses the tie-break must treat the item as skipped; the
// winner proceeds alone.
type LabelLocker struct {
	tracker types.TrackerClient
	label   string
	logger  types.Logger
}

// Compile-time assertion that LabelLocker implements MarkerLocker.
var _ types.MarkerLocker = (*LabelLocker)(nil)

// NewLabelLocker creates a label-based locker.
//
// Parameters:
//   - tracker: Client used for label and comment writes
//   - label: Lock label name; empty uses DefaultLockLabel
//   - logger: Logger for claim traffic, may be nil
func NewLabelLocker(tracker types.TrackerClient, label string, logger types.Logger) *LabelLocker {
	if label == "" {
		label = DefaultLockLabel
	}

	return &LabelLocker{tracker: tracker, label: label, logger: logger}
}

// Label returns the lock label name.
func (l *LabelLocker) Label() string { return l.label }

// Acquire re-checks the marker and then writes it with add-if-absent
// semantics. Returns false when the marker was already present.
func (l *LabelLocker) Acquire(ctx context.Context, itemID, owner string) (bool, error) {
	item, err := l.tracker.GetItem(ctx, itemID)
	if err != nil {
		return false, err
	}
	if item.HasLabel(l.label) {
		return false, nil
	}

	if err := l.tracker.SetLabel(ctx, itemID, l.label, true); err != nil {
		return false, err
	}
	if err := l.tracker.AddComment(ctx, itemID, claimPrefix+" "+owner); err != nil {
		// The label is in place but the claim is unattributed; leave the
		// marker rather than risking a duplicate claim elsewhere.
		return false, fmt.Errorf("claim comment after label write: %w", err)
	}

	return true, nil
}

// Confirm re-reads the claim comments and reports whether owner won the
// deterministic tie-break among all observed claimants.
func (l *LabelLocker) Confirm(ctx context.Context, itemID, owner string) (bool, error) {
	comments, err := l.tracker.ListComments(ctx, itemID)
	if err != nil {
		return false, err
	}

	winner := ""
	for _, c := range comments {
		claimant, ok := parseClaim(c)
		if !ok {
			continue
		}
		if winner == "" || claimant < winner {
			winner = claimant
		}
	}

	if winner == "" {
		// Our claim comment is missing entirely; do not proceed.
		return false, nil
	}
	if winner != owner && l.logger != nil {
		l.logger.Info("lost claim tie-break", "item", itemID, "owner", owner, "winner", winner)
	}

	return winner == owner, nil
}

// Release removes the marker as an explicit handoff. The handoff comment
// keeps the audit trail since claim comments cannot be retracted.
func (l *LabelLocker) Release(ctx context.Context, itemID, owner string) error {
	if err := l.tracker.AddComment(ctx, itemID, handoffPrefix+" "+owner); err != nil {
		return err
	}

	return l.tracker.SetLabel(ctx, itemID, l.label, false)
}

// parseClaim extracts the owner from a claim comment.
func parseClaim(comment string) (string, bool) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(comment), claimPrefix)
	if !ok {
		return "", false
	}
	owner := strings.TrimSpace(rest)

	return owner, owner != ""
}

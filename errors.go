package dispatch

import "github.com/corvana/dispatch/types"

// Sentinel errors, re-exported from the types subpackage so callers can
// match with errors.Is against either import path.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = types.ErrInvalidConfig

	// ErrTrackerRequired is returned when the tracker client is nil.
	ErrTrackerRequired = types.ErrTrackerRequired

	// ErrRegistryRequired is returned when the worker registry is nil.
	ErrRegistryRequired = types.ErrRegistryRequired

	// ErrAlreadyClaimed is returned when the claim marker is already
	// present on an item.
	ErrAlreadyClaimed = types.ErrAlreadyClaimed

	// ErrLostTieBreak is returned when a concurrent claimant won the
	// post-acquire confirmation.
	ErrLostTieBreak = types.ErrLostTieBreak

	// ErrNoCandidates is returned when no assignable worker scores above
	// zero for an item.
	ErrNoCandidates = types.ErrNoCandidates

	// ErrTransient wraps retryable tracker failures.
	ErrTransient = types.ErrTransient

	// ErrItemNotFound is returned when an item does not exist in the
	// tracker.
	ErrItemNotFound = types.ErrItemNotFound

	// ErrMalformedItem is returned when an item cannot be interpreted.
	ErrMalformedItem = types.ErrMalformedItem

	// ErrRegistryConflict is returned when a Save loses the optimistic
	// concurrency check.
	ErrRegistryConflict = types.ErrRegistryConflict

	// ErrRegistryCorrupt is returned when the registry backing store
	// cannot be parsed.
	ErrRegistryCorrupt = types.ErrRegistryCorrupt

	// ErrUnknownWorker is returned when a worker ID has no profile and no
	// default capability set matches.
	ErrUnknownWorker = types.ErrUnknownWorker
)

// IsTransient reports whether err is retryable.
func IsTransient(err error) bool { return types.IsTransient(err) }

// IsConflict reports whether err is an expected assignment-race loss
// (already claimed or lost tie-break).
func IsConflict(err error) bool { return types.IsConflict(err) }

// IsRegistryConflict reports whether err is a registry save version
// mismatch, resolved by reloading and retrying.
func IsRegistryConflict(err error) bool { return types.IsRegistryConflict(err) }

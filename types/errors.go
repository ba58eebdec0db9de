package types

import "errors"

// Sentinel errors for the dispatch library.
//
// These errors provide type-safe error checking using errors.Is() and
// errors.As(). Components wrap external errors with context using
// fmt.Errorf("...: %w", err) and classify them into the taxonomy below:
//
//   - Transient: retried with backoff, then surfaced as a failed outcome.
//   - Conflict: lost a race that another invocation won; a skip, not an error.
//   - Data: one malformed item; the item is skipped, the batch continues.
//   - Fatal: configuration or registry corruption; aborts the invocation.

// Coordinator errors.
var (
	// ErrInvalidConfig is returned when the configuration is invalid.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrTrackerRequired is returned when the tracker client is nil.
	ErrTrackerRequired = errors.New("tracker client is required")

	// ErrRegistryRequired is returned when the worker registry is nil.
	ErrRegistryRequired = errors.New("worker registry is required")

	// ErrAlreadyClaimed indicates the item carries an assignee or lock
	// marker. Callers surface this as a skipped outcome, not a failure.
	ErrAlreadyClaimed = errors.New("item already claimed")

	// ErrLostTieBreak indicates a concurrent claimant won the
	// deterministic tie-break after both wrote the lock marker.
	ErrLostTieBreak = errors.New("lost claim tie-break")

	// ErrNoCandidates is returned when no assignable worker scored above
	// zero for an item.
	ErrNoCandidates = errors.New("no candidate workers")
)

// Tracker and I/O errors.
var (
	// ErrTransient marks an error as retryable (network, timeout,
	// rate limit). Wrap with fmt.Errorf("%w: %w", ErrTransient, err).
	ErrTransient = errors.New("transient tracker error")

	// ErrItemNotFound is returned when the tracker has no such item.
	ErrItemNotFound = errors.New("work item not found")

	// ErrMalformedItem marks item content the subsystem cannot parse.
	// The item is skipped with a warning; the batch must not abort.
	ErrMalformedItem = errors.New("malformed work item")
)

// Registry errors.
var (
	// ErrRegistryConflict is returned by Save when the registry was
	// modified since the snapshot was loaded. Callers reload and reapply.
	ErrRegistryConflict = errors.New("registry modified concurrently")

	// ErrRegistryCorrupt indicates unreadable registry state. This is
	// fatal: the invocation aborts rather than guessing at defaults.
	ErrRegistryCorrupt = errors.New("registry state corrupt")

	// ErrUnknownWorker is returned when a worker ID resolves to neither a
	// registry entry nor a static capability default.
	ErrUnknownWorker = errors.New("unknown worker")
)

// IsTransient reports whether err is classified as retryable.
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// IsConflict reports whether err represents losing a race rather than a
// genuine failure. Conflicts become skipped outcomes.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyClaimed) || errors.Is(err, ErrLostTieBreak)
}

// IsRegistryConflict reports whether err is an optimistic-concurrency
// version mismatch on a registry save. Callers reload the snapshot,
// reapply their changes, and retry.
func IsRegistryConflict(err error) bool {
	return errors.Is(err, ErrRegistryConflict)
}

package types

import "context"

// RegistrySnapshot is the full worker registry state at one version.
//
// Snapshots are value objects: mutate a copy in memory, then Save it back
// with the version you loaded. Workers is keyed by worker ID.
type RegistrySnapshot struct {
	Workers map[string]*WorkerProfile `json:"workers"`
}

// NewRegistrySnapshot returns an empty snapshot.
func NewRegistrySnapshot() *RegistrySnapshot {
	return &RegistrySnapshot{Workers: make(map[string]*WorkerProfile)}
}

// Clone returns a deep copy of the snapshot.
func (s *RegistrySnapshot) Clone() *RegistrySnapshot {
	cp := NewRegistrySnapshot()
	for id, w := range s.Workers {
		cp.Workers[id] = w.Clone()
	}

	return cp
}

// Registry is the one piece of mutable shared state across invocations.
//
// All writes follow a compare-and-write-back pattern: Load the full
// snapshot with its version, mutate in memory, Save with the expected
// version. Save returns ErrRegistryConflict when another invocation wrote
// in between; callers reload, reapply, and retry a bounded number of
// times. This holds regardless of backing store (file or NATS KV).
type Registry interface {
	// Load returns the current snapshot and its version marker.
	// An empty store yields an empty snapshot with version 0.
	Load(ctx context.Context) (*RegistrySnapshot, uint64, error)

	// Save writes snapshot if the store is still at expectedVersion,
	// returning ErrRegistryConflict otherwise.
	Save(ctx context.Context, snapshot *RegistrySnapshot, expectedVersion uint64) error
}

// ResolveKind tags the provenance of a resolved worker profile.
type ResolveKind int

// Resolve result kinds. The fallback chain is explicit so it stays
// testable: registry entry first, then the static capability defaults.
const (
	// ResolveFound means the profile came from the registry.
	ResolveFound ResolveKind = iota

	// ResolveDerivedFromDefault means the profile was synthesized from a
	// static capability definition because the registry had no entry.
	ResolveDerivedFromDefault

	// ResolveUnknown means neither source knows the worker.
	ResolveUnknown
)

// String returns the kind name for logging.
func (k ResolveKind) String() string {
	switch k {
	case ResolveFound:
		return "found"
	case ResolveDerivedFromDefault:
		return "derived-from-default"
	case ResolveUnknown:
		return "unknown"
	default:
		return "invalid"
	}
}

// Resolution is the tagged result of resolving a worker ID.
type Resolution struct {
	Kind    ResolveKind
	Profile *WorkerProfile
}

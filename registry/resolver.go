package registry

import (
	"time"

	"github.com/corvana/dispatch/types"
)

// Resolver implements the explicit profile fallback chain: registry
// entry first, then a static capability default, then unknown. Keeping
// the chain tagged rather than implicit makes each branch testable.
type Resolver struct {
	// Defaults maps worker IDs to static capability definitions used
	// when the registry has no entry for a worker.
	Defaults map[string][]types.Capability

	// Clock stamps derived profiles; nil uses the system clock.
	Clock types.Clock
}

// Resolve looks up id in snap, falling back to the static defaults.
//
// Returns:
//   - types.Resolution: Found with the registry profile,
//     DerivedFromDefault with a synthesized active profile, or Unknown
func (r *Resolver) Resolve(snap *types.RegistrySnapshot, id string) types.Resolution {
	if profile, ok := snap.Workers[id]; ok {
		return types.Resolution{Kind: types.ResolveFound, Profile: profile}
	}

	caps, ok := r.Defaults[id]
	if !ok {
		return types.Resolution{Kind: types.ResolveUnknown}
	}

	now := time.Now()
	if r.Clock != nil {
		now = r.Clock.Now()
	}

	derived := &types.WorkerProfile{
		ID:           id,
		Name:         id,
		Capabilities: append([]types.Capability(nil), caps...),
		Status:       types.StatusActive,
		CreatedAt:    now,
	}

	return types.Resolution{Kind: types.ResolveDerivedFromDefault, Profile: derived}
}

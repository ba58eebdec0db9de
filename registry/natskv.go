package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/corvana/dispatch/types"
)

// registryKey is the single KV key holding the full registry snapshot.
// The entry's KV revision doubles as the optimistic-concurrency version.
const registryKey = "registry"

// NATSKV is a JetStream-KV-backed Registry for multi-host deployments.
type NATSKV struct {
	kv      jetstream.KeyValue
	metrics types.RegistryMetrics
}

// Compile-time assertion that NATSKV implements Registry.
var _ types.Registry = (*NATSKV)(nil)

// NewNATSKV creates a KV-backed registry.
//
// The bucket should be created without TTL so the registry persists
// across invocations.
//
// Parameters:
//   - kv: JetStream KV bucket holding the registry entry
//   - metrics: Collector for save conflicts, may be nil
func NewNATSKV(kv jetstream.KeyValue, metrics types.RegistryMetrics) *NATSKV {
	return &NATSKV{kv: kv, metrics: metrics}
}

// Load reads the current snapshot; the KV revision is the version.
// A missing key yields an empty snapshot at version 0.
func (n *NATSKV) Load(ctx context.Context) (*types.RegistrySnapshot, uint64, error) {
	entry, err := n.kv.Get(ctx, registryKey)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return types.NewRegistrySnapshot(), 0, nil
		}

		return nil, 0, fmt.Errorf("read registry key: %w", err)
	}

	snapshot := types.NewRegistrySnapshot()
	if err := json.Unmarshal(entry.Value(), snapshot); err != nil {
		return nil, 0, fmt.Errorf("%w: parse registry entry: %w", types.ErrRegistryCorrupt, err)
	}
	if snapshot.Workers == nil {
		snapshot.Workers = make(map[string]*types.WorkerProfile)
	}

	return snapshot, entry.Revision(), nil
}

// Save writes snapshot using Create for version 0 and a revision-checked
// Update otherwise, so concurrent writers surface as conflicts instead of
// lost updates.
func (n *NATSKV) Save(ctx context.Context, snapshot *types.RegistrySnapshot, expectedVersion uint64) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("encode registry: %w", err)
	}

	if expectedVersion == 0 {
		_, err = n.kv.Create(ctx, registryKey, data)
		if errors.Is(err, jetstream.ErrKeyExists) {
			return n.conflict(expectedVersion, err)
		}
	} else {
		_, err = n.kv.Update(ctx, registryKey, data, expectedVersion)
		if isWrongRevision(err) {
			return n.conflict(expectedVersion, err)
		}
	}
	if err != nil {
		return fmt.Errorf("write registry key: %w", err)
	}

	if n.metrics != nil {
		n.metrics.RecordRegistrySave(false)
	}

	return nil
}

func (n *NATSKV) conflict(expected uint64, err error) error {
	if n.metrics != nil {
		n.metrics.RecordRegistrySave(true)
	}

	return fmt.Errorf("%w: expected revision %d: %w", types.ErrRegistryConflict, expected, err)
}

// isWrongRevision reports whether err is the KV revision-mismatch error
// returned for a stale Update.
func isWrongRevision(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *jetstream.APIError
	if errors.As(err, &apiErr) {
		return apiErr.ErrorCode == jetstream.JSErrCodeStreamWrongLastSequence
	}

	return false
}

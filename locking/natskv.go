package locking

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/corvana/dispatch/internal/kvutil"
	"github.com/corvana/dispatch/types"
)

// NATSLocker implements MarkerLocker using NATS JetStream KV.
//
// Unlike the label marker, KV Create is genuinely atomic: only one
// claimant can create the key, so Acquire doubles as the tie-break and
// Confirm reduces to verifying ownership of the stored value.
type NATSLocker struct {
	kv jetstream.KeyValue
}

// Compile-time assertion that NATSLocker implements MarkerLocker.
var _ types.MarkerLocker = (*NATSLocker)(nil)

// NewNATSLocker creates a KV-backed locker.
//
// The bucket should be created without TTL: markers are never silently
// removed, matching the lock-marker invariant.
//
// Parameters:
//   - kv: JetStream KV bucket for claim markers
//
// Example:
//
//	kv, _ := kvutil.EnsureBucket(ctx, js, jetstream.KeyValueConfig{Bucket: "dispatch-claims"}, 3)
//	locker := locking.NewNATSLocker(kv)
func NewNATSLocker(kv jetstream.KeyValue) *NATSLocker {
	return &NATSLocker{kv: kv}
}

// Acquire atomically creates the claim key. Returns false when another
// owner already holds it.
func (n *NATSLocker) Acquire(ctx context.Context, itemID, owner string) (bool, error) {
	_, err := n.kv.Create(ctx, claimKey(itemID), []byte(owner))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, jetstream.ErrKeyExists) {
		return false, nil
	}

	return false, fmt.Errorf("create claim key: %w", err)
}

// Confirm verifies the stored claim still names owner.
func (n *NATSLocker) Confirm(ctx context.Context, itemID, owner string) (bool, error) {
	entry, err := n.kv.Get(ctx, claimKey(itemID))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return false, nil
		}

		return false, fmt.Errorf("read claim key: %w", err)
	}

	return string(entry.Value()) == owner, nil
}

// Release deletes the claim key if owner still holds it.
func (n *NATSLocker) Release(ctx context.Context, itemID, owner string) error {
	key := claimKey(itemID)

	entry, err := n.kv.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil
		}

		return fmt.Errorf("read claim key: %w", err)
	}
	if string(entry.Value()) != owner {
		return fmt.Errorf("claim for %s held by %s, not %s", itemID, entry.Value(), owner)
	}

	return n.kv.Delete(ctx, key, jetstream.LastRevision(entry.Revision()))
}

func claimKey(itemID string) string {
	return "claim." + kvutil.SanitizeKey(itemID)
}

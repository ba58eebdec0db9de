// Package dedup provides the content-fingerprint ledger that prevents the
// same semantic unit of work from being re-queued after it has already
// been processed.
//
// The mission-creation pipeline fingerprints each candidate (source idea
// ID, normalized title, detected pattern tags) and consults the ledger
// before announcing new work. The ledger is append-only and size-capped:
// once the cap is reached the oldest entries are evicted, keeping
// membership tests and inserts O(1) amortized.
package dedup

import (
	"strings"
	"sync"

	"github.com/corvana/dispatch/types"
	"github.com/zeebo/xxh3"
)

// DefaultCap is the default maximum number of ledger entries.
const DefaultCap = 100

// Ledger is a bounded, append-only content-hash registry.
//
// Safe for concurrent use. Entries are evicted oldest-first once the cap
// is reached; a ring buffer over the insertion order keeps eviction O(1).
type Ledger struct {
	mu      sync.Mutex
	entries map[uint64]struct{}
	order   []uint64 // ring buffer of insertion order
	head    int      // index of the oldest entry
	size    int

	metrics types.RegistryMetrics
}

// NewLedger creates a ledger bounded to cap entries.
//
// Parameters:
//   - capacity: Maximum entry count; values <= 0 use DefaultCap
//   - metrics: Collector for ledger size, may be nil
//
// Returns:
//   - *Ledger: Empty ledger
func NewLedger(capacity int, metrics types.RegistryMetrics) *Ledger {
	if capacity <= 0 {
		capacity = DefaultCap
	}

	return &Ledger{
		entries: make(map[uint64]struct{}, capacity),
		order:   make([]uint64, capacity),
		metrics: metrics,
	}
}

// Fingerprint computes the mission hash for a candidate unit of work.
//
// The fingerprint covers the source idea ID, the normalized title
// (lowercased, whitespace collapsed), and the detected pattern tags in
// the order given. Identical semantic work therefore produces identical
// fingerprints even when incidental formatting differs.
func Fingerprint(sourceID, title string, tags []string) uint64 {
	var b strings.Builder
	b.WriteString(sourceID)
	b.WriteByte(0)
	b.WriteString(normalizeTitle(title))
	for _, tag := range tags {
		b.WriteByte(0)
		b.WriteString(strings.ToLower(tag))
	}

	return xxh3.HashString(b.String())
}

// SeenBefore reports whether hash is currently in the ledger.
func (l *Ledger) SeenBefore(hash uint64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	_, ok := l.entries[hash]

	return ok
}

// Record inserts hash, evicting the oldest entry if the ledger is full.
// Recording an already-present hash is a no-op.
func (l *Ledger) Record(hash uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.entries[hash]; ok {
		return
	}

	if l.size == len(l.order) {
		oldest := l.order[l.head]
		delete(l.entries, oldest)
		l.order[l.head] = hash
		l.head = (l.head + 1) % len(l.order)
	} else {
		l.order[(l.head+l.size)%len(l.order)] = hash
		l.size++
	}

	l.entries[hash] = struct{}{}

	if l.metrics != nil {
		l.metrics.RecordLedgerSize(len(l.entries))
	}
}

// Len returns the current number of ledger entries.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	return len(l.entries)
}

// normalizeTitle lowercases and collapses runs of whitespace to a single
// space so cosmetic edits do not defeat deduplication.
func normalizeTitle(title string) string {
	return strings.Join(strings.Fields(strings.ToLower(title)), " ")
}

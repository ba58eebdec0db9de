package dedup

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFingerprint(t *testing.T) {
	t.Run("identical inputs produce identical hashes", func(t *testing.T) {
		a := Fingerprint("idea-7", "Fix bug in login", []string{"bug", "auth"})
		b := Fingerprint("idea-7", "Fix bug in login", []string{"bug", "auth"})
		require.Equal(t, a, b)
	})

	t.Run("title normalization ignores case and spacing", func(t *testing.T) {
		a := Fingerprint("idea-7", "Fix Bug In Login", nil)
		b := Fingerprint("idea-7", "  fix   bug in login ", nil)
		require.Equal(t, a, b)
	})

	t.Run("different source ids differ", func(t *testing.T) {
		a := Fingerprint("idea-7", "Fix bug in login", nil)
		b := Fingerprint("idea-8", "Fix bug in login", nil)
		require.NotEqual(t, a, b)
	})

	t.Run("tags are part of the fingerprint", func(t *testing.T) {
		a := Fingerprint("idea-7", "Fix bug in login", []string{"bug"})
		b := Fingerprint("idea-7", "Fix bug in login", []string{"docs"})
		require.NotEqual(t, a, b)
	})
}

func TestLedger_SeenBeforeAndRecord(t *testing.T) {
	ledger := NewLedger(10, nil)
	hash := Fingerprint("idea-1", "Add retry budget", nil)

	require.False(t, ledger.SeenBefore(hash))

	ledger.Record(hash)
	require.True(t, ledger.SeenBefore(hash))
	require.Equal(t, 1, ledger.Len())

	// Duplicate record is a no-op.
	ledger.Record(hash)
	require.Equal(t, 1, ledger.Len())
}

func TestLedger_EvictsOldestAtCap(t *testing.T) {
	const capacity = 5
	ledger := NewLedger(capacity, nil)

	hashes := make([]uint64, 0, capacity+3)
	for i := 0; i < capacity+3; i++ {
		h := Fingerprint(fmt.Sprintf("idea-%d", i), "mission", nil)
		hashes = append(hashes, h)
		ledger.Record(h)
	}

	require.Equal(t, capacity, ledger.Len())

	// The three oldest entries were evicted, newest five remain.
	for i, h := range hashes {
		if i < 3 {
			require.False(t, ledger.SeenBefore(h), "entry %d should be evicted", i)
		} else {
			require.True(t, ledger.SeenBefore(h), "entry %d should remain", i)
		}
	}
}

func TestLedger_EvictionOrderSurvivesWrap(t *testing.T) {
	ledger := NewLedger(3, nil)

	record := func(i int) uint64 {
		h := Fingerprint(fmt.Sprintf("idea-%d", i), "mission", nil)
		ledger.Record(h)
		return h
	}

	// Fill, wrap twice, and verify only the latest 3 remain each time.
	var all []uint64
	for i := 0; i < 9; i++ {
		all = append(all, record(i))

		for j, h := range all {
			want := j > i-3
			require.Equal(t, want, ledger.SeenBefore(h), "after %d inserts, entry %d", i+1, j)
		}
	}
}

func TestLedger_DefaultCap(t *testing.T) {
	ledger := NewLedger(0, nil)
	for i := 0; i < DefaultCap+10; i++ {
		ledger.Record(Fingerprint(fmt.Sprintf("idea-%d", i), "mission", nil))
	}

	require.Equal(t, DefaultCap, ledger.Len())
}

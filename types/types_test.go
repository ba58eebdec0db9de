package types

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWorkItem_HasLabel(t *testing.T) {
	item := WorkItem{Labels: []string{"bug", "dispatch/claimed"}}

	require.True(t, item.HasLabel("dispatch/claimed"))
	require.False(t, item.HasLabel("enhancement"))
}

func TestWindow_Contains(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("bounded window", func(t *testing.T) {
		w := Window{Since: base, Until: base.Add(time.Hour)}

		require.True(t, w.Contains(base))
		require.True(t, w.Contains(base.Add(30*time.Minute)))
		require.False(t, w.Contains(base.Add(time.Hour)))
		require.False(t, w.Contains(base.Add(-time.Second)))
	})

	t.Run("zero bounds are open", func(t *testing.T) {
		w := Window{}

		require.True(t, w.Contains(base))
		require.True(t, w.Contains(base.AddDate(-10, 0, 0)))
	})
}

func TestWorkerProfile_Clone(t *testing.T) {
	orig := &WorkerProfile{
		ID:           "bug-hunter",
		Status:       StatusActive,
		Capabilities: []Capability{{Term: "bug"}, {Term: "crash"}},
	}

	cp := orig.Clone()
	cp.Capabilities[0].Term = "feature"
	cp.Status = StatusRetired

	require.Equal(t, "bug", orig.Capabilities[0].Term, "clone must not share capability slice")
	require.Equal(t, StatusActive, orig.Status)
}

func TestWorkerProfile_Assignable(t *testing.T) {
	for _, tc := range []struct {
		status WorkerStatus
		want   bool
	}{
		{StatusActive, true},
		{StatusPromoted, true},
		{StatusProtected, true},
		{StatusRetired, false},
	} {
		p := WorkerProfile{Status: tc.status}
		require.Equal(t, tc.want, p.Assignable(), "status %s", tc.status)
	}
}

func TestRegistrySnapshot_Clone(t *testing.T) {
	snap := NewRegistrySnapshot()
	snap.Workers["w1"] = &WorkerProfile{ID: "w1", Status: StatusActive}

	cp := snap.Clone()
	cp.Workers["w1"].Status = StatusRetired
	cp.Workers["w2"] = &WorkerProfile{ID: "w2"}

	require.Equal(t, StatusActive, snap.Workers["w1"].Status)
	require.NotContains(t, snap.Workers, "w2")
}

func TestResolveKind_String(t *testing.T) {
	require.Equal(t, "found", ResolveFound.String())
	require.Equal(t, "derived-from-default", ResolveDerivedFromDefault.String())
	require.Equal(t, "unknown", ResolveUnknown.String())
}

func TestIsConflict(t *testing.T) {
	require.True(t, IsConflict(ErrAlreadyClaimed))
	require.True(t, IsConflict(ErrLostTieBreak))
	require.False(t, IsConflict(ErrTransient))
	require.False(t, IsConflict(ErrRegistryConflict))
	require.False(t, IsConflict(nil))
}

func TestIsRegistryConflict(t *testing.T) {
	require.True(t, IsRegistryConflict(ErrRegistryConflict))
	require.True(t, IsRegistryConflict(fmt.Errorf("save: %w", ErrRegistryConflict)))
	require.False(t, IsRegistryConflict(ErrAlreadyClaimed))
	require.False(t, IsRegistryConflict(nil))
}

package scoring

import (
	"testing"

	"github.com/corvana/dispatch/types"
	"github.com/stretchr/testify/require"
)

func item(title, body string) *types.WorkItem {
	return &types.WorkItem{ID: "item-1", Title: title, Body: body}
}

func profile(caps ...types.Capability) *types.WorkerProfile {
	return &types.WorkerProfile{ID: "worker-1", Status: types.StatusActive, Capabilities: caps}
}

func TestKeywordScorer_Score(t *testing.T) {
	scorer := NewKeywordScorer()

	t.Run("no capabilities scores zero", func(t *testing.T) {
		score := scorer.Score(item("Fix bug in login", "crash on auth"), profile())
		require.Zero(t, score)
	})

	t.Run("no matches scores zero", func(t *testing.T) {
		score := scorer.Score(
			item("Fix bug in login", "crash on auth"),
			profile(types.Capability{Term: "readme"}, types.Capability{Term: "guide"}),
		)
		require.Zero(t, score)
	})

	t.Run("title hits count double body hits", func(t *testing.T) {
		titleOnly := scorer.Score(item("bug", ""), profile(types.Capability{Term: "bug"}))
		bodyOnly := scorer.Score(item("", "bug"), profile(types.Capability{Term: "bug"}))

		require.InDelta(t, 2.0, titleOnly, 1e-9)
		require.InDelta(t, 1.0, bodyOnly, 1e-9)
	})

	t.Run("patterns weigh double keywords", func(t *testing.T) {
		keyword := scorer.Score(item("", "panic in handler"), profile(types.Capability{Term: "panic"}))
		pattern := scorer.Score(item("", "panic in handler"), profile(types.Capability{Term: `panic`, Pattern: true}))

		require.InDelta(t, 2*keyword, pattern, 1e-9)
	})

	t.Run("capability weight multiplies", func(t *testing.T) {
		unweighted := scorer.Score(item("", "crash"), profile(types.Capability{Term: "crash"}))
		weighted := scorer.Score(item("", "crash"), profile(types.Capability{Term: "crash", Weight: 3}))

		require.InDelta(t, 3*unweighted, weighted, 1e-9)
	})

	t.Run("matching is case-insensitive", func(t *testing.T) {
		score := scorer.Score(item("CRASH on startup", ""), profile(types.Capability{Term: "crash"}))
		require.InDelta(t, 2.0, score, 1e-9)
	})

	t.Run("multiple occurrences all count", func(t *testing.T) {
		score := scorer.Score(item("", "bug bug bug"), profile(types.Capability{Term: "bug"}))
		require.InDelta(t, 3.0, score, 1e-9)
	})

	t.Run("regex patterns match structure", func(t *testing.T) {
		p := profile(types.Capability{Term: `auth(entication)?`, Pattern: true})

		require.Positive(t, scorer.Score(item("", "broken authentication flow"), p))
		require.Positive(t, scorer.Score(item("", "auth token expired"), p))
		require.Zero(t, scorer.Score(item("", "rendering glitch"), p))
	})

	t.Run("invalid pattern contributes nothing", func(t *testing.T) {
		score := scorer.Score(
			item("crash", "crash"),
			profile(
				types.Capability{Term: `[unclosed`, Pattern: true},
				types.Capability{Term: "crash"},
			),
		)

		// Only the valid keyword capability counts: 2 (title) + 1 (body).
		require.InDelta(t, 3.0, score, 1e-9)
	})
}

func TestKeywordScorer_Deterministic(t *testing.T) {
	scorer := NewKeywordScorer()
	it := item("Fix bug in login", "crash on auth when token refresh races")
	p := profile(
		types.Capability{Term: "bug"},
		types.Capability{Term: "crash"},
		types.Capability{Term: `token|auth`, Pattern: true, Weight: 1.5},
	)

	first := scorer.Score(it, p)
	for range 100 {
		require.Equal(t, first, scorer.Score(it, p), "score must be bit-identical across calls")
	}
}

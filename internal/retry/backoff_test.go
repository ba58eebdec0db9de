package retry

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/corvana/dispatch/types"
	"github.com/stretchr/testify/require"
)

func TestPolicy_Do(t *testing.T) {
	noSleep := func(_ context.Context, _ time.Duration) error { return nil }

	t.Run("succeeds first try", func(t *testing.T) {
		calls := 0
		p := Policy{Attempts: 3, Base: time.Millisecond, Sleep: noSleep}

		err := p.Do(context.Background(), "get_item", func(context.Context) error {
			calls++
			return nil
		})

		require.NoError(t, err)
		require.Equal(t, 1, calls)
	})

	t.Run("retries transient errors then succeeds", func(t *testing.T) {
		calls := 0
		p := Policy{Attempts: 3, Base: time.Millisecond, Sleep: noSleep}

		err := p.Do(context.Background(), "set_label", func(context.Context) error {
			calls++
			if calls < 3 {
				return fmt.Errorf("%w: connection reset", types.ErrTransient)
			}
			return nil
		})

		require.NoError(t, err)
		require.Equal(t, 3, calls)
	})

	t.Run("exhausts budget on persistent transient error", func(t *testing.T) {
		calls := 0
		p := Policy{Attempts: 3, Base: time.Millisecond, Sleep: noSleep}

		err := p.Do(context.Background(), "set_assignee", func(context.Context) error {
			calls++
			return fmt.Errorf("%w: rate limited", types.ErrTransient)
		})

		require.Error(t, err)
		require.Equal(t, 3, calls)
		require.ErrorIs(t, err, types.ErrTransient)
		require.Contains(t, err.Error(), "after 3 attempts")
	})

	t.Run("non-transient errors are not retried", func(t *testing.T) {
		calls := 0
		p := Policy{Attempts: 3, Base: time.Millisecond, Sleep: noSleep}

		permanent := errors.New("malformed response")
		err := p.Do(context.Background(), "get_item", func(context.Context) error {
			calls++
			return permanent
		})

		require.ErrorIs(t, err, permanent)
		require.Equal(t, 1, calls)
	})

	t.Run("respects context cancellation", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		p := Policy{Attempts: 3, Base: time.Millisecond, Sleep: noSleep}
		err := p.Do(ctx, "get_item", func(context.Context) error {
			return fmt.Errorf("%w: timeout", types.ErrTransient)
		})

		require.ErrorIs(t, err, context.Canceled)
	})
}

func TestBackoff_LinearSchedule(t *testing.T) {
	var delays []time.Duration
	p := Policy{
		Attempts: 3,
		Base:     5 * time.Second,
		Seed:     42,
		Sleep: func(_ context.Context, d time.Duration) error {
			delays = append(delays, d)
			return nil
		},
	}

	_ = p.Do(context.Background(), "list_items", func(context.Context) error {
		return fmt.Errorf("%w: flaky", types.ErrTransient)
	})

	require.Len(t, delays, 2)

	// Linear 5s/10s schedule with at most 10% jitter on top.
	require.GreaterOrEqual(t, delays[0], 5*time.Second)
	require.Less(t, delays[0], 5*time.Second+500*time.Millisecond)
	require.GreaterOrEqual(t, delays[1], 10*time.Second)
	require.Less(t, delays[1], 11*time.Second)
}

func TestBackoff_DeterministicWithSeed(t *testing.T) {
	run := func() []time.Duration {
		var delays []time.Duration
		p := Policy{
			Attempts: 3,
			Base:     time.Second,
			Seed:     7,
			Sleep: func(_ context.Context, d time.Duration) error {
				delays = append(delays, d)
				return nil
			},
		}
		_ = p.Do(context.Background(), "op", func(context.Context) error {
			return fmt.Errorf("%w: flaky", types.ErrTransient)
		})
		return delays
	}

	require.Equal(t, run(), run())
}

// Package retry provides the bounded retry policy for tracker I/O.
package retry

import (
	"context"
	"fmt"
	rand "math/rand/v2"
	"time"

	"github.com/corvana/dispatch/types"
)

// Policy is a bounded linear-backoff retry policy with jitter.
//
// Only errors classified as transient (types.IsTransient) are retried;
// everything else returns immediately. The backoff for attempt n is
// n*Base plus up to 10% jitter, so the default Base of 5s yields the
// 5s/10s/15s schedule.
type Policy struct {
	// Attempts is the total number of tries, including the first.
	Attempts int

	// Base is the linear backoff unit between attempts.
	Base time.Duration

	// Seed makes jitter deterministic when non-zero. Zero uses the
	// package-level PRNG, which keeps production jitter inexpensive and
	// avoids hidden time-based variability in tests that set a seed.
	Seed int64

	// Sleep overrides the sleep function for tests. Nil means a
	// context-aware time.After wait.
	Sleep func(ctx context.Context, d time.Duration) error

	Logger  types.Logger
	Metrics types.CoordinatorMetrics
}

// Do runs fn up to p.Attempts times, backing off between transient
// failures. The op name is used for logging and metrics only.
//
// Returns:
//   - error: nil on success; the last error otherwise, wrapped with the
//     attempt count once the budget is exhausted
func (p Policy) Do(ctx context.Context, op string, fn func(ctx context.Context) error) error {
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 3
	}
	base := p.Base
	if base <= 0 {
		base = 5 * time.Second
	}

	rng := newRNG(p.Seed)

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}

		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if !types.IsTransient(lastErr) {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		delay := backoff(attempt, base, rng)
		if p.Logger != nil {
			p.Logger.Warn("transient tracker error, backing off",
				"op", op, "attempt", attempt, "delay", delay, "error", lastErr)
		}
		if p.Metrics != nil {
			p.Metrics.RecordRetry(op)
		}

		if err := p.sleep(ctx, delay); err != nil {
			return err
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", op, attempts, lastErr)
}

func (p Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep != nil {
		return p.Sleep(ctx, d)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

// backoff computes the delay before the next attempt: attempt*base plus
// up to 10% jitter to avoid thundering retries from co-triggered
// invocations.
func backoff(attempt int, base time.Duration, rng *rand.Rand) time.Duration {
	delay := time.Duration(attempt) * base

	span := int64(delay / 10)
	if span <= 0 {
		return delay
	}

	var jitter int64
	if rng != nil {
		jitter = rng.Int64N(span)
	} else {
		jitter = rand.Int64N(span) //nolint:gosec // non-crypto backoff jitter
	}

	return delay + time.Duration(jitter)
}

// newRNG returns a deterministic RNG only when a non-zero seed is provided.
//
//nolint:gosec
func newRNG(seed int64) *rand.Rand {
	if seed == 0 {
		return nil
	}
	s1 := uint64(seed)
	s2 := s1 ^ 0x9e3779b97f4a7c15

	return rand.New(rand.NewPCG(s1, s2))
}

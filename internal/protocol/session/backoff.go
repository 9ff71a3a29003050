package session

import (
	"context"
	"math/rand"
	"time"
)

// longestDelay keeps float delays clear of int64 overflow.
const longestDelay = float64(1 << 62)

// Delay returns the pause before retry n (1-based). The initial delay grows
// by Multiplier per retry and stops at MaxDelay. With Jitter set and an rng,
// the result is scaled by a factor drawn from [0.5, 1.5).
func (b BackoffConfig) Delay(n int, rng *rand.Rand) time.Duration {
	if b.InitialDelay <= 0 || n < 1 {
		return 0
	}
	growth := max(b.Multiplier, 1)
	ceiling := longestDelay
	if b.MaxDelay > 0 {
		ceiling = min(float64(b.MaxDelay), longestDelay)
	}

	d := float64(b.InitialDelay)
	for i := 1; i < n && d < ceiling; i++ {
		d *= growth
	}
	d = min(d, ceiling)
	if b.Jitter && rng != nil {
		d = min(d*(0.5+rng.Float64()), longestDelay)
	}
	return time.Duration(d)
}

// Sleep blocks for d or until ctx is done. A non-positive d only checks ctx.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

package util

import (
	"context"
	"math/rand/v2"
	"time"
)

// RandomDuration returns a uniformly random duration in [min, max]
func RandomDuration(min, max time.Duration) time.Duration {
	if max <= min {
		return min
	}
	return min + time.Duration(rand.Int64N(int64(max-min)+1))
}

// Sleep waits for d or until ctx is done
func Sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// HumanDelay pauses for a random interval to emulate human pacing
func HumanDelay(ctx context.Context, min, max time.Duration) {
	Sleep(ctx, RandomDuration(min, max))
}

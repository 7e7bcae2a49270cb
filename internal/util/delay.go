package util

import (
	"context"
	"math/rand"
	"time"
)

// SleepFunc waits for d or until ctx is done, whichever comes first
type SleepFunc func(ctx context.Context, d time.Duration) error

// Sleep waits for d unless ctx is cancelled first
func Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Jitter returns a uniformly distributed duration in [lo, hi]
func Jitter(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(rand.Int63n(int64(hi-lo)+1))
}

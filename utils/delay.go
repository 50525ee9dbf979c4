package utils

import (
	"context"
	"time"
)

// Sleep waits for d or until ctx is cancelled, whichever comes first.
// It reports true when the full duration elapsed and false on cancellation.
// The timer is released on both paths.
func Sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	if ctx.Err() != nil {
		return false
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}

package app

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const maxBackoff = 5 * time.Minute

// calculateBackoff doubles base once per consecutive failure, capped at
// maxBackoff.
func calculateBackoff(failures int, base time.Duration) time.Duration {
	if failures <= 0 {
		return base
	}
	wait := base
	for i := 0; i < failures; i++ {
		wait *= 2
		if wait >= maxBackoff {
			return maxBackoff
		}
	}
	return wait
}

// runRefresher calls refresh every interval until ctx is done. Failures
// stretch the wait with exponential backoff; a success resets it. A
// non-positive interval disables refreshing.
func runRefresher(ctx context.Context, interval time.Duration, refresh func(context.Context) error, lg *zap.Logger) {
	if interval <= 0 {
		lg.Info("Background refresh disabled")
		return
	}

	failures := 0
	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		if err := refresh(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			failures++
			lg.Warn("Order refresh failed",
				zap.Int("failures", failures),
				zap.Duration("retry_in", calculateBackoff(failures, interval)),
				zap.Error(err),
			)
		} else {
			if failures > 0 {
				lg.Info("Order refresh recovered", zap.Int("failures", failures))
			}
			failures = 0
		}
		timer.Reset(calculateBackoff(failures, interval))
	}
}

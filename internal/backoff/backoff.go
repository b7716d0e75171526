// Package backoff computes retry wait times for consecutive failures.
package backoff

import (
	"math"
	"time"
)

// NextWait returns the wait before the next attempt after consecutiveFailures
// failures in a row: min(base * multiplier^(n-1), max), never below base.
// It is deterministic (no jitter) and monotonically non-decreasing in n.
// n <= 0 returns base; the caller owns the reset to its normal interval
// after a success.
func NextWait(consecutiveFailures int, base, max time.Duration, multiplier float64) time.Duration {
	if base <= 0 {
		return 0
	}
	if max > 0 && max < base {
		max = base
	}
	if consecutiveFailures <= 1 {
		return base
	}

	factor := math.Pow(multiplier, float64(consecutiveFailures-1))
	wait := float64(base) * factor

	// Guard against float overflow before converting back to a duration.
	if max > 0 && (wait >= float64(max) || math.IsInf(wait, 1)) {
		return max
	}
	if wait < float64(base) {
		return base
	}
	return time.Duration(wait)
}

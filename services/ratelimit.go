package services

import (
	"time"

	"github.com/inferly/content-tags/model"
)

// CountInWindow counts request-log entries newer than now minus the rate
// window. Entries are insertion-ordered but the count does not rely on it;
// duplicate timestamps each count separately.
func CountInWindow(timestamps []time.Time, now time.Time) int {
	windowStart := now.Add(-model.RateWindow)

	count := 0
	for _, t := range timestamps {
		if t.After(windowStart) {
			count++
		}
	}
	return count
}

// OverRateLimit reports whether a key at the given request log would exceed
// its short-window limit. A limit of zero (or less) never admits: that is a
// misconfigured record, not an infinite allowance. An empty log always
// admits for any positive limit.
func OverRateLimit(timestamps []time.Time, rateLimit int, now time.Time) bool {
	if rateLimit <= 0 {
		return true
	}
	return CountInWindow(timestamps, now) >= rateLimit
}

// PruneWindow drops entries at or older than the window start, preserving
// order. Pruning is an optimization: stale entries are harmless to
// correctness because CountInWindow ignores them.
func PruneWindow(timestamps []time.Time, now time.Time) []time.Time {
	windowStart := now.Add(-model.RateWindow)

	recent := make([]time.Time, 0, len(timestamps))
	for _, t := range timestamps {
		if t.After(windowStart) {
			recent = append(recent, t)
		}
	}
	return recent
}

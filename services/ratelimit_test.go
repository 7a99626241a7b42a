package services

import (
	"testing"
	"time"

	"github.com/inferly/content-tags/model"
)

func stampsWithin(now time.Time, count int) []time.Time {
	out := make([]time.Time, 0, count)
	for i := 0; i < count; i++ {
		out = append(out, now.Add(-time.Duration(i)*time.Second))
	}
	return out
}

func TestCountInWindowIgnoresStaleEntries(t *testing.T) {
	now := time.Now()
	stamps := []time.Time{
		now.Add(-2 * model.RateWindow),
		now.Add(-model.RateWindow - time.Second),
		now.Add(-30 * time.Second),
		now.Add(-1 * time.Second),
	}

	if got := CountInWindow(stamps, now); got != 2 {
		t.Errorf("CountInWindow = %d, want 2", got)
	}
}

func TestCountInWindowCountsDuplicates(t *testing.T) {
	now := time.Now()
	stamp := now.Add(-10 * time.Second)
	stamps := []time.Time{stamp, stamp, stamp}

	if got := CountInWindow(stamps, now); got != 3 {
		t.Errorf("duplicate timestamps should each count, got %d", got)
	}
}

func TestOverRateLimitEmptyLogAdmits(t *testing.T) {
	if OverRateLimit(nil, 1, time.Now()) {
		t.Error("empty log with positive limit should admit")
	}
}

func TestOverRateLimitAtBoundary(t *testing.T) {
	now := time.Now()

	// 59 requests in the window with a limit of 60: admitted.
	if OverRateLimit(stampsWithin(now, 59), 60, now) {
		t.Error("59 of 60 should admit")
	}

	// 60 requests: the 61st is rejected.
	if !OverRateLimit(stampsWithin(now, 60), 60, now) {
		t.Error("60 of 60 should reject the next request")
	}
}

func TestOverRateLimitZeroLimitNeverAdmits(t *testing.T) {
	now := time.Now()
	if !OverRateLimit(nil, 0, now) {
		t.Error("zero limit should never admit")
	}
	if !OverRateLimit(nil, -5, now) {
		t.Error("negative limit should never admit")
	}
}

func TestPruneWindowKeepsOrder(t *testing.T) {
	now := time.Now()
	fresh1 := now.Add(-40 * time.Second)
	fresh2 := now.Add(-5 * time.Second)
	stamps := []time.Time{
		now.Add(-2 * model.RateWindow),
		fresh1,
		now.Add(-model.RateWindow - time.Millisecond),
		fresh2,
	}

	kept := PruneWindow(stamps, now)
	if len(kept) != 2 {
		t.Fatalf("kept %d entries, want 2", len(kept))
	}
	if !kept[0].Equal(fresh1) || !kept[1].Equal(fresh2) {
		t.Errorf("pruning reordered entries: %v", kept)
	}
}

func TestPruneWindowDoesNotChangeCount(t *testing.T) {
	now := time.Now()
	stamps := []time.Time{
		now.Add(-2 * model.RateWindow),
		now.Add(-10 * time.Second),
		now.Add(-1 * time.Second),
	}

	before := CountInWindow(stamps, now)
	after := CountInWindow(PruneWindow(stamps, now), now)
	if before != after {
		t.Errorf("pruning changed the effective count: %d != %d", before, after)
	}
}

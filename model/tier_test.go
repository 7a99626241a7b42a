package model

import "testing"

func TestQuotaForKnownTiers(t *testing.T) {
	cases := []struct {
		tier  Tier
		quota int64
	}{
		{TierFree, 100},
		{TierStartup, 5000},
		{TierGrowth, 10000},
		{TierScale, 100000},
	}

	for _, tc := range cases {
		if got := QuotaFor(tc.tier); got != tc.quota {
			t.Errorf("QuotaFor(%s) = %d, want %d", tc.tier, got, tc.quota)
		}
	}
}

func TestRateLimitForKnownTiers(t *testing.T) {
	cases := []struct {
		tier  Tier
		limit int
	}{
		{TierFree, 10},
		{TierStartup, 60},
		{TierGrowth, 120},
		{TierScale, 300},
	}

	for _, tc := range cases {
		if got := RateLimitFor(tc.tier); got != tc.limit {
			t.Errorf("RateLimitFor(%s) = %d, want %d", tc.tier, got, tc.limit)
		}
	}
}

func TestUnknownTierFallsBackToFree(t *testing.T) {
	if got := QuotaFor(Tier("platinum")); got != QuotaFor(TierFree) {
		t.Errorf("unknown tier quota = %d, want free tier quota %d", got, QuotaFor(TierFree))
	}
	if got := RateLimitFor(Tier("")); got != RateLimitFor(TierFree) {
		t.Errorf("empty tier rate limit = %d, want free tier limit %d", got, RateLimitFor(TierFree))
	}
}

func TestTierIsValid(t *testing.T) {
	for _, tier := range AllTiers {
		if !tier.IsValid() {
			t.Errorf("tier %s should be valid", tier)
		}
	}
	if Tier("enterprise").IsValid() {
		t.Error("unlisted tier should not be valid")
	}
}

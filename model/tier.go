package model

import (
	log "github.com/sirupsen/logrus"
)

// Tier represents a subscription plan tier
type Tier string

const (
	TierFree    Tier = "free"
	TierStartup Tier = "startup"
	TierGrowth  Tier = "growth"
	TierScale   Tier = "scale"
)

// AllTiers lists every known tier, cheapest first
var AllTiers = []Tier{TierFree, TierStartup, TierGrowth, TierScale}

// IsValid reports whether the tier is one of the known plan tiers
func (t Tier) IsValid() bool {
	switch t {
	case TierFree, TierStartup, TierGrowth, TierScale:
		return true
	}
	return false
}

// RateLimitFor returns the per-minute request limit for a tier.
// Unknown tiers fall back to the free-tier limit rather than failing;
// a key must never become unusable because of a bad tier value.
func RateLimitFor(tier Tier) int {
	switch tier {
	case TierFree:
		return 10
	case TierStartup:
		return 60
	case TierGrowth:
		return 120
	case TierScale:
		return 300
	default:
		log.Warnf("unknown tier %q, falling back to free-tier rate limit", tier)
		return 10
	}
}

// QuotaFor returns the monthly request quota for a tier.
// Unknown tiers fall back to the free-tier quota.
func QuotaFor(tier Tier) int64 {
	switch tier {
	case TierFree:
		return 100
	case TierStartup:
		return 5000
	case TierGrowth:
		return 10000
	case TierScale:
		return 100000
	default:
		log.Warnf("unknown tier %q, falling back to free-tier quota", tier)
		return 100
	}
}

package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/inferly/content-tags/database"
	"github.com/inferly/content-tags/model"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// Reason classifies why a request was rejected
type Reason string

const (
	ReasonUnauthorized  Reason = "unauthorized"   // missing/malformed/unknown key
	ReasonDisabled      Reason = "disabled"       // key paused by billing state
	ReasonRateLimited   Reason = "rate_limited"   // short-window cap exceeded
	ReasonUsageExceeded Reason = "usage_exceeded" // monthly quota exhausted
	ReasonInternal      Reason = "internal_error" // store outage; fail closed
)

// Admission is the outcome of authenticating one request
type Admission struct {
	Admitted bool
	Record   *model.APIKey
	Reason   Reason
}

// Authenticator decides admit/reject for inbound tagging requests. It reads
// the key record once per request, applies the lazy monthly refill, then the
// quota and rate-window checks. The record store is the single source of
// truth; nothing is cached across requests.
type Authenticator struct {
	store *database.KeyStore

	// now is swappable for tests
	now func() time.Time
}

// NewAuthenticator creates a new authenticator
func NewAuthenticator(db *gorm.DB) *Authenticator {
	return &Authenticator{
		store: database.NewKeyStore(db),
		now:   time.Now,
	}
}

// Authenticate validates the presented token and decides admission. A store
// failure on this path rejects the request (fail closed), never admits.
func (a *Authenticator) Authenticate(ctx context.Context, token string) Admission {
	if token == "" || !strings.HasPrefix(token, model.KeyPrefix) {
		return Admission{Reason: ReasonUnauthorized}
	}

	key, err := a.store.Get(ctx, token)
	if err != nil {
		if errors.Is(err, database.ErrKeyNotFound) {
			return Admission{Reason: ReasonUnauthorized}
		}
		log.Errorf("key lookup failed, rejecting request: %v", err)
		return Admission{Reason: ReasonInternal}
	}

	if !key.Active {
		return Admission{Record: key, Reason: ReasonDisabled}
	}

	now := a.now()
	key = a.maybeRefill(ctx, key, now)
	if key == nil {
		// Record vanished mid-refill; treat as an unknown key.
		return Admission{Reason: ReasonUnauthorized}
	}

	if key.QuotaExceeded() {
		return Admission{Record: key, Reason: ReasonUsageExceeded}
	}

	if OverRateLimit(key.Timestamps(), key.RateLimit, now) {
		return Admission{Record: key, Reason: ReasonRateLimited}
	}

	return Admission{Admitted: true, Record: key}
}

// maybeRefill applies the DUE -> CURRENT transition when the monthly window
// has rolled over. The reset is conditioned on the refill deadline the
// caller observed, so concurrent callers performing the same transition
// converge on one result. Returns nil only when the record was deleted
// concurrently and could not be re-read.
func (a *Authenticator) maybeRefill(ctx context.Context, key *model.APIKey, now time.Time) *model.APIKey {
	if !key.RefillDue(now) {
		return key
	}

	nextRefill := now.Add(model.RefillPeriod)
	rateLimit := model.RateLimitFor(key.Tier)

	err := a.store.ResetUsage(ctx, key.Token, key.NextRefill, nextRefill, rateLimit)
	if err == nil {
		key.TotalUsage = 0
		key.RateLimit = rateLimit
		key.NextRefill = nextRefill
		log.WithField("api_key", model.MaskToken(key.Token)).Info("monthly usage refilled")
		return key
	}

	if errors.Is(err, database.ErrKeyNotFound) {
		// Either another caller won the identical transition, or the key was
		// deleted. Re-read to find out; on a concurrent delete the stale
		// pre-reset record must not be treated as refilled.
		fresh, getErr := a.store.Get(ctx, key.Token)
		if getErr != nil {
			if errors.Is(getErr, database.ErrKeyNotFound) {
				return nil
			}
			log.Errorf("re-read after refill race failed: %v", getErr)
			return key
		}
		return fresh
	}

	log.Errorf("usage refill failed for %s: %v", model.MaskToken(key.Token), err)
	return key
}

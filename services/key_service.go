package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/inferly/content-tags/database"
	"github.com/inferly/content-tags/model"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ErrKeyExists is returned by CreateKey when the user already holds a key
var ErrKeyExists = errors.New("user already has an api key")

// KeyService handles the API key lifecycle: provisioning, regeneration,
// deletion and billing-driven tier changes.
type KeyService struct {
	store *database.KeyStore
}

// NewKeyService creates a new key service
func NewKeyService(db *gorm.DB) *KeyService {
	return &KeyService{store: database.NewKeyStore(db)}
}

// Store exposes the underlying key store
func (s *KeyService) Store() *database.KeyStore {
	return s.store
}

// CreateKey issues a fresh key for a user. One active key per user: if the
// index already holds an entry the call fails with ErrKeyExists.
func (s *KeyService) CreateKey(ctx context.Context, userID string, tier model.Tier) (*model.APIKey, error) {
	if userID == "" {
		return nil, fmt.Errorf("user id is required")
	}

	if _, err := s.store.GetUserKey(ctx, userID); err == nil {
		return nil, ErrKeyExists
	} else if !errors.Is(err, database.ErrKeyNotFound) {
		return nil, err
	}

	token, err := model.GenerateToken()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	key := &model.APIKey{
		Token:         token,
		UserID:        userID,
		Tier:          tier,
		Active:        true,
		TotalUsage:    0,
		RateLimit:     model.RateLimitFor(tier),
		RequestCounts: model.EncodeTimestamps(nil),
		LastUsed:      0,
		NextRefill:    now.Add(model.RefillPeriod),
	}

	if err := s.store.Put(ctx, key); err != nil {
		return nil, err
	}
	if err := s.store.PutUserKey(ctx, userID, token); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"user_id": userID,
		"tier":    tier,
		"api_key": model.MaskToken(token),
	}).Info("api key created")

	return key, nil
}

// GetKeyForUser resolves a user's active key record via the index
func (s *KeyService) GetKeyForUser(ctx context.Context, userID string) (*model.APIKey, error) {
	index, err := s.store.GetUserKey(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.store.Get(ctx, index.Token)
}

// RegenerateKey swaps the user's key token for a new one. The billing cycle
// position is preserved: totalUsage, requestCounts, tier, active and
// nextRefill all carry over; only the secret token changes. The swap is a
// single transaction, so an interrupted regeneration never leaves the user
// without a valid key.
func (s *KeyService) RegenerateKey(ctx context.Context, userID string) (*model.APIKey, error) {
	old, err := s.GetKeyForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	token, err := model.GenerateToken()
	if err != nil {
		return nil, err
	}

	fresh := &model.APIKey{
		Token:         token,
		UserID:        userID,
		Tier:          old.Tier,
		Active:        old.Active,
		TotalUsage:    old.TotalUsage,
		RateLimit:     old.RateLimit,
		RequestCounts: old.RequestCounts,
		LastUsed:      old.LastUsed,
		NextRefill:    old.NextRefill,
	}

	if err := s.store.Swap(ctx, userID, old.Token, fresh); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"user_id": userID,
		"old_key": model.MaskToken(old.Token),
		"new_key": model.MaskToken(token),
	}).Info("api key regenerated")

	return fresh, nil
}

// DeleteKey removes both the user index and the key record. A missing key
// record is tolerated: the index entry alone is enough to clean up.
func (s *KeyService) DeleteKey(ctx context.Context, userID string) error {
	index, err := s.store.GetUserKey(ctx, userID)
	if err != nil {
		if errors.Is(err, database.ErrKeyNotFound) {
			log.WithField("user_id", userID).Warn("delete requested for user without a key")
			return nil
		}
		return err
	}

	if err := s.store.DeleteUserKey(ctx, userID); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, index.Token); err != nil {
		log.WithFields(log.Fields{
			"user_id": userID,
			"api_key": model.MaskToken(index.Token),
		}).Warnf("key record already gone during delete: %v", err)
	}

	log.WithField("user_id", userID).Info("api key deleted")
	return nil
}

// UpdateTier changes a user's tier, updating the derived rate limit in the
// same write so the two never disagree. Returns false when the user has no
// key: a billing event racing ahead of provisioning is recoverable, not
// fatal.
func (s *KeyService) UpdateTier(ctx context.Context, userID string, tier model.Tier) (bool, error) {
	index, err := s.store.GetUserKey(ctx, userID)
	if err != nil {
		if errors.Is(err, database.ErrKeyNotFound) {
			log.WithField("user_id", userID).Warn("tier update for user without a key, ignoring")
			return false, nil
		}
		return false, err
	}

	err = s.store.UpdateFields(ctx, index.Token, map[string]interface{}{
		"tier":       tier,
		"rate_limit": model.RateLimitFor(tier),
	})
	if err != nil {
		if errors.Is(err, database.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}

	log.WithFields(log.Fields{"user_id": userID, "tier": tier}).Info("tier updated")
	return true, nil
}

// PauseKey disables a user's key without deleting it, preserving usage
// history and the token. Used when billing falls past due or is canceled.
func (s *KeyService) PauseKey(ctx context.Context, userID string) (bool, error) {
	return s.setActive(ctx, userID, false)
}

// ResumeKey re-enables a previously paused key
func (s *KeyService) ResumeKey(ctx context.Context, userID string) (bool, error) {
	return s.setActive(ctx, userID, true)
}

func (s *KeyService) setActive(ctx context.Context, userID string, active bool) (bool, error) {
	index, err := s.store.GetUserKey(ctx, userID)
	if err != nil {
		if errors.Is(err, database.ErrKeyNotFound) {
			log.WithField("user_id", userID).Warn("active toggle for user without a key, ignoring")
			return false, nil
		}
		return false, err
	}

	err = s.store.UpdateFields(ctx, index.Token, map[string]interface{}{"active": active})
	if err != nil {
		if errors.Is(err, database.ErrKeyNotFound) {
			return false, nil
		}
		return false, err
	}

	log.WithFields(log.Fields{"user_id": userID, "active": active}).Info("key active state changed")
	return true, nil
}

// UsageStats summarizes a key's quota position for the dashboard
func (s *KeyService) UsageStats(ctx context.Context, userID string) (map[string]interface{}, error) {
	key, err := s.GetKeyForUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	quota := model.QuotaFor(key.Tier)
	remaining := quota - key.TotalUsage
	if remaining < 0 {
		remaining = 0
	}

	monthStart := time.Now().Add(-model.RefillPeriod)
	logged, err := s.store.UsageSince(ctx, userID, monthStart)
	if err != nil {
		log.Warnf("usage log count failed for user %s: %v", userID, err)
	}

	return map[string]interface{}{
		"api_key":          model.MaskToken(key.Token),
		"tier":             key.Tier,
		"active":           key.Active,
		"total_usage":      key.TotalUsage,
		"monthly_quota":    quota,
		"quota_remaining":  remaining,
		"quota_percentage": float64(key.TotalUsage) / float64(quota) * 100,
		"rate_limit":       key.RateLimit,
		"last_used":        key.LastUsed,
		"next_refill":      key.NextRefill,
		"logged_requests":  logged,
	}, nil
}

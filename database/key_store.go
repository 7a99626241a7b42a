package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/inferly/content-tags/model"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrKeyNotFound is returned when a key record (or user index entry) does not
// exist, including when it was deleted between a read and a conditional write.
var ErrKeyNotFound = errors.New("api key not found")

// KeyStore provides durable CRUD over APIKey records keyed by token, plus the
// user_id -> token secondary index. Background writers (refill, metering) use
// conditional updates so they never resurrect a concurrently deleted key.
type KeyStore struct {
	db *gorm.DB
}

// NewKeyStore creates a new key store
func NewKeyStore(db *gorm.DB) *KeyStore {
	return &KeyStore{db: db}
}

// Get loads a key record by token
func (s *KeyStore) Get(ctx context.Context, token string) (*model.APIKey, error) {
	var key model.APIKey
	err := s.db.WithContext(ctx).Where("token = ?", token).First(&key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to load api key: %w", err)
	}
	return &key, nil
}

// Put upserts a full key record
func (s *KeyStore) Put(ctx context.Context, key *model.APIKey) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "token"}},
		UpdateAll: true,
	}).Create(key).Error
	if err != nil {
		return fmt.Errorf("failed to put api key: %w", err)
	}
	return nil
}

// UpdateFields applies a partial update to an existing key record. It fails
// with ErrKeyNotFound when the record vanished concurrently: zero rows
// affected means the WHERE clause found nothing, so nothing was fabricated.
func (s *KeyStore) UpdateFields(ctx context.Context, token string, fields map[string]interface{}) error {
	result := s.db.WithContext(ctx).
		Model(&model.APIKey{}).
		Where("token = ?", token).
		Updates(fields)

	if result.Error != nil {
		return fmt.Errorf("failed to update api key: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrKeyNotFound
	}
	return nil
}

// ResetUsage performs the monthly refill transition, conditioned on the
// record still carrying the refill deadline the caller observed. Concurrent
// callers racing the same transition converge: the loser's condition fails
// and it re-reads the already-reset record.
func (s *KeyStore) ResetUsage(ctx context.Context, token string, observedRefill, nextRefill time.Time, rateLimit int) error {
	result := s.db.WithContext(ctx).
		Model(&model.APIKey{}).
		Where("token = ? AND next_refill = ?", token, observedRefill).
		Updates(map[string]interface{}{
			"total_usage": 0,
			"rate_limit":  rateLimit,
			"next_refill": nextRefill,
		})

	if result.Error != nil {
		return fmt.Errorf("failed to reset usage: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrKeyNotFound
	}
	return nil
}

// Delete removes a key record. Missing records are not an error.
func (s *KeyStore) Delete(ctx context.Context, token string) error {
	err := s.db.WithContext(ctx).Where("token = ?", token).Delete(&model.APIKey{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete api key: %w", err)
	}
	return nil
}

// GetUserKey resolves the secondary index entry for a user
func (s *KeyStore) GetUserKey(ctx context.Context, userID string) (*model.UserKey, error) {
	var index model.UserKey
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&index).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrKeyNotFound
		}
		return nil, fmt.Errorf("failed to load user key index: %w", err)
	}
	return &index, nil
}

// PutUserKey upserts the user's index entry, replacing any previous token
func (s *KeyStore) PutUserKey(ctx context.Context, userID, token string) error {
	index := model.UserKey{UserID: userID, Token: token}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"token", "updated_at"}),
	}).Create(&index).Error
	if err != nil {
		return fmt.Errorf("failed to put user key index: %w", err)
	}
	return nil
}

// DeleteUserKey removes the user's index entry. Missing entries are not an
// error.
func (s *KeyStore) DeleteUserKey(ctx context.Context, userID string) error {
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&model.UserKey{}).Error
	if err != nil {
		return fmt.Errorf("failed to delete user key index: %w", err)
	}
	return nil
}

// Swap atomically replaces a user's key token: the new record is written,
// the index repointed, and the old record removed in one transaction. The
// user is never left without a valid key if the sequence is interrupted.
func (s *KeyStore) Swap(ctx context.Context, userID, oldToken string, newKey *model.APIKey) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(newKey).Error; err != nil {
			return fmt.Errorf("failed to write new api key: %w", err)
		}

		result := tx.Model(&model.UserKey{}).
			Where("user_id = ? AND token = ?", userID, oldToken).
			Update("token", newKey.Token)
		if result.Error != nil {
			return fmt.Errorf("failed to repoint user key index: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return ErrKeyNotFound
		}

		if err := tx.Where("token = ?", oldToken).Delete(&model.APIKey{}).Error; err != nil {
			return fmt.Errorf("failed to retire old api key: %w", err)
		}
		return nil
	})
}

// AppendUsageLog records one billable request for dashboard analytics
func (s *KeyStore) AppendUsageLog(ctx context.Context, entry *model.UsageLog) error {
	return s.db.WithContext(ctx).Create(entry).Error
}

// UsageSince counts logged requests for a user after the given time
func (s *KeyStore) UsageSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&model.UsageLog{}).
		Where("user_id = ? AND created_at > ?", userID, since).
		Count(&count).Error
	return count, err
}

// PruneUsageLogs deletes usage log rows older than the cutoff
func (s *KeyStore) PruneUsageLogs(ctx context.Context, cutoff time.Time) (int64, error) {
	result := s.db.WithContext(ctx).
		Where("created_at < ?", cutoff).
		Delete(&model.UsageLog{})
	return result.RowsAffected, result.Error
}

// KeysWithRequestLogs returns tokens of keys that currently carry a non-empty
// request log. Used by the maintenance job that prunes stale entries.
func (s *KeyStore) KeysWithRequestLogs(ctx context.Context) ([]model.APIKey, error) {
	var keys []model.APIKey
	err := s.db.WithContext(ctx).
		Where("request_counts IS NOT NULL AND request_counts != ? AND request_counts != ?", "[]", "null").
		Find(&keys).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list keys with request logs: %w", err)
	}
	return keys, nil
}

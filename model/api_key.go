package model

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"gorm.io/datatypes"
)

// KeyPrefix is prepended to every issued API key token
const KeyPrefix = "tags_"

// RefillPeriod is the length of one billing window
const RefillPeriod = 30 * 24 * time.Hour

// RateWindow is the sliding window used for short-window rate limiting
const RateWindow = time.Minute

// APIKey is the durable record behind one issued API key. The token itself
// is the primary key; a UserKey row provides the user_id -> token index.
type APIKey struct {
	Token         string         `gorm:"primaryKey;type:varchar(80)" json:"api_key"`
	UserID        string         `gorm:"not null;index;type:varchar(64)" json:"user_id"`
	Tier          Tier           `gorm:"not null;type:varchar(20)" json:"tier"`
	Active        bool           `gorm:"not null;default:true" json:"active"`
	TotalUsage    int64          `gorm:"not null;default:0" json:"total_usage"`
	RateLimit     int            `gorm:"not null" json:"rate_limit"`
	RequestCounts datatypes.JSON `gorm:"type:json" json:"-"` // unix-ms timestamps, insertion order
	LastUsed      int64          `gorm:"not null;default:0" json:"last_used"` // unix ms, informational
	NextRefill    time.Time      `gorm:"not null;index" json:"next_refill"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// TableName specifies the table name for APIKey
func (APIKey) TableName() string {
	return "api_keys"
}

// UserKey is the secondary index mapping a user to their single active key
type UserKey struct {
	UserID    string    `gorm:"primaryKey;type:varchar(64)" json:"user_id"`
	Token     string    `gorm:"not null;uniqueIndex;type:varchar(80)" json:"api_key"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for UserKey
func (UserKey) TableName() string {
	return "user_keys"
}

// GenerateToken generates a new opaque API key token: tags_<64-hex-chars>
func GenerateToken() (string, error) {
	randomBytes := make([]byte, 32)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return KeyPrefix + hex.EncodeToString(randomBytes), nil
}

// MaskToken returns a display-safe form of a token, keeping the prefix and
// the first and last few characters of the secret part
func MaskToken(token string) string {
	visible := len(KeyPrefix) + 4
	if len(token) <= visible+4 {
		return token
	}
	return token[:visible] + "..." + token[len(token)-4:]
}

// Timestamps decodes the stored request log into wall-clock timestamps.
// Entries that are not numeric (empty strings, garbage from older writers)
// are dropped; numeric strings are tolerated. Order is preserved.
func (k *APIKey) Timestamps() []time.Time {
	if len(k.RequestCounts) == 0 {
		return nil
	}

	var raw []interface{}
	if err := json.Unmarshal(k.RequestCounts, &raw); err != nil {
		return nil
	}

	out := make([]time.Time, 0, len(raw))
	for _, entry := range raw {
		switch v := entry.(type) {
		case float64:
			out = append(out, time.UnixMilli(int64(v)))
		case string:
			ms, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				continue
			}
			out = append(out, time.UnixMilli(ms))
		}
	}
	return out
}

// EncodeTimestamps encodes a request log for storage as a JSON array of
// unix-millisecond values
func EncodeTimestamps(ts []time.Time) datatypes.JSON {
	ms := make([]int64, 0, len(ts))
	for _, t := range ts {
		ms = append(ms, t.UnixMilli())
	}
	encoded, err := json.Marshal(ms)
	if err != nil {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(encoded)
}

// RefillDue reports whether the key's monthly usage window has rolled over
func (k *APIKey) RefillDue(now time.Time) bool {
	return !k.NextRefill.IsZero() && !now.Before(k.NextRefill)
}

// QuotaExceeded reports whether the key has used up its monthly quota
func (k *APIKey) QuotaExceeded() bool {
	return k.TotalUsage >= QuotaFor(k.Tier)
}

package model

import (
	"time"
)

// UsageLog records one billable request against an API key. Rows are written
// by the usage meter after a request has been served and are used for the
// dashboard usage graph; the quota counters on APIKey remain authoritative.
type UsageLog struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Token     string    `gorm:"not null;index;type:varchar(80)" json:"-"`
	UserID    string    `gorm:"not null;index;type:varchar(64)" json:"user_id"`
	Endpoint  string    `gorm:"not null;type:varchar(64)" json:"endpoint"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

// TableName specifies the table name for UsageLog
func (UsageLog) TableName() string {
	return "usage_logs"
}

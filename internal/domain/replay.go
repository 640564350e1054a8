package domain

import "time"

// ReplayRecord is a response recorded for an Idempotency-Key, keyed by the
// scoped key (method, path and client key). Expired rows are ignored on read
// and purged periodically.
type ReplayRecord struct {
	Key         string    `gorm:"type:varchar(512);primaryKey"`
	Status      int       `gorm:"not null"`
	ContentType string    `gorm:"type:varchar(128);not null;default:''"`
	Body        []byte    `gorm:"not null"`
	CreatedAt   time.Time `gorm:"not null"`
	ExpiresAt   time.Time `gorm:"not null;index"`
}

// TableName implements the GORM tabler interface.
func (ReplayRecord) TableName() string { return "replay_records" }

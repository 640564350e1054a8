package domain

import "time"

// KVEntry is a single durable key/value pair. Values are opaque strings
// (JSON documents for every key this application writes).
type KVEntry struct {
	Key       string    `gorm:"type:varchar(128);primaryKey"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// TableName implements the GORM tabler interface.
func (KVEntry) TableName() string { return "kv_entries" }

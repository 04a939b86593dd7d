package models

import "time"

// CacheEntry is one row of the database-backed cache. Counters store their
// value as a decimal string. A zero ExpiresAt never expires.
type CacheEntry struct {
	Key       string    `gorm:"primaryKey;column:cache_key;size:256"`
	Value     []byte    `gorm:"type:blob"`
	ExpiresAt time.Time `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (CacheEntry) TableName() string { return "cache_entries" }

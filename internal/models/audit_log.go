package models

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// AuditLog records a login attempt or an admin mutation.
type AuditLog struct {
	ID        string         `gorm:"primaryKey;size:36" json:"id"`
	Actor     string         `gorm:"size:120;index" json:"actor"`
	Role      string         `gorm:"size:20" json:"role"`
	Action    string         `gorm:"size:80;not null;index" json:"action"`
	Resource  string         `gorm:"size:120;index" json:"resource"`
	Result    string         `gorm:"size:20;not null" json:"result"`
	IPAddress string         `gorm:"size:64" json:"ip_address"`
	UserAgent string         `gorm:"size:512" json:"user_agent"`
	Metadata  datatypes.JSON `json:"metadata,omitempty"`
	CreatedAt time.Time      `gorm:"index" json:"created_at"`
}

func (a *AuditLog) BeforeCreate(*gorm.DB) error {
	assignID(&a.ID)
	return nil
}

package models

import (
	"time"

	"gorm.io/datatypes"
)

// ContentDocument is an admin-edited JSON document such as the business
// operating system data or the public site content.
type ContentDocument struct {
	Key       string         `gorm:"primaryKey;column:doc_key;size:64" json:"key"`
	Data      datatypes.JSON `gorm:"not null" json:"data"`
	Rendered  datatypes.JSON `json:"rendered,omitempty"`
	Version   int            `gorm:"not null" json:"version"`
	UpdatedBy string         `gorm:"size:120" json:"updated_by,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

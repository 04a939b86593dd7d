package models

import "time"

// Setting is a key/value pair the server persists for itself, such as a
// generated session secret.
type Setting struct {
	Key       string    `gorm:"primaryKey;column:name;size:128" json:"key"`
	Value     string    `gorm:"type:text;not null" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Setting) TableName() string { return "settings" }

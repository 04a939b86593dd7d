package models

import "time"

// Deck display sizes accepted by DeckSetting.DisplaySize.
const (
	DisplaySizeSmall  = "small"
	DisplaySizeMedium = "medium"
	DisplaySizeLarge  = "large"
	DisplaySizeFull   = "full"
)

// DeckSettingID is the primary key of the single global settings row.
const DeckSettingID = 1

// DeckSetting holds presentation settings shared by every slide.
type DeckSetting struct {
	ID          uint      `gorm:"primaryKey;autoIncrement:false" json:"-"`
	DisplaySize string    `gorm:"size:20;not null" json:"display_size"`
	UpdatedBy   string    `gorm:"size:120" json:"updated_by,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// DeckFile records an uploaded pitch deck document or video.
type DeckFile struct {
	BaseModel

	FileName        string `gorm:"size:512;not null" json:"fileName"`
	OriginalName    string `gorm:"size:255" json:"originalName"`
	URL             string `gorm:"size:1024;not null" json:"url"`
	ContentType     string `gorm:"size:128" json:"contentType"`
	Size            int64  `json:"size"`
	IsPDF           bool   `json:"isPDF"`
	SlidesExtracted int    `json:"slidesExtracted"`
	UploadedBy      string `gorm:"size:120" json:"uploadedBy,omitempty"`
}

package models

// Slide is one rasterized page of the current pitch deck.
//
// SlideNumber is the 1-based page index from the source PDF and never changes
// after insert. DisplayOrder is the admin-controlled presentation position.
type Slide struct {
	BaseModel

	SlideNumber   int    `gorm:"not null;index" json:"slide_number"`
	DisplayOrder  int    `gorm:"not null;index" json:"display_order"`
	ImageURL      string `gorm:"size:1024;not null" json:"image_url"`
	StoragePath   string `gorm:"size:512;not null" json:"storage_path,omitempty"`
	ThumbnailURL  string `gorm:"size:1024" json:"thumbnail_url,omitempty"`
	ThumbnailPath string `gorm:"size:512" json:"thumbnail_path,omitempty"`
	IsActive      bool   `gorm:"not null;index" json:"is_active"`
}

// StorageKeys lists every object-storage key backing the slide.
func (s Slide) StorageKeys() []string {
	keys := make([]string, 0, 2)
	if s.StoragePath != "" {
		keys = append(keys, s.StoragePath)
	}
	if s.ThumbnailPath != "" {
		keys = append(keys, s.ThumbnailPath)
	}
	return keys
}

// Public returns a copy with storage internals stripped for non-admin viewers.
func (s Slide) Public() Slide {
	s.StoragePath = ""
	s.ThumbnailPath = ""
	return s
}

package models

import "time"

// Partner is a node in the partner network graph.
type Partner struct {
	BaseModel

	Name        string `gorm:"size:160;not null;uniqueIndex" json:"name"`
	Category    string `gorm:"size:80;index" json:"category"`
	Description string `gorm:"type:text" json:"description,omitempty"`
	Website     string `gorm:"size:512" json:"website,omitempty"`
	LogoURL     string `gorm:"size:1024" json:"logo_url,omitempty"`
}

// PartnerConnection is a typed, weighted edge between two partners.
type PartnerConnection struct {
	BaseModel

	SourceID string   `gorm:"size:36;not null;uniqueIndex:idx_partner_edge" json:"source_id"`
	TargetID string   `gorm:"size:36;not null;uniqueIndex:idx_partner_edge" json:"target_id"`
	Kind     string   `gorm:"size:40;not null;uniqueIndex:idx_partner_edge" json:"kind"`
	Strength float64  `gorm:"not null" json:"strength"`
	Source   *Partner `gorm:"foreignKey:SourceID;constraint:OnDelete:CASCADE" json:"-"`
	Target   *Partner `gorm:"foreignKey:TargetID;constraint:OnDelete:CASCADE" json:"-"`
}

// PartnerNodePosition stores the saved 2-D coordinates of a partner node.
type PartnerNodePosition struct {
	PartnerID string    `gorm:"primaryKey;size:36" json:"partner_id"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	UpdatedAt time.Time `json:"updated_at"`
	Partner   *Partner  `gorm:"foreignKey:PartnerID;constraint:OnDelete:CASCADE" json:"-"`
}

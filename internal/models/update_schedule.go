package models

import (
	"time"

	"gorm.io/datatypes"
)

// UpdateScheduleID is the primary key of the current timeline row.
const UpdateScheduleID = 1

// UpdateSchedule holds the current investor update timeline.
type UpdateSchedule struct {
	ID        uint           `gorm:"primaryKey;autoIncrement:false" json:"-"`
	Version   int            `gorm:"not null" json:"version"`
	Items     datatypes.JSON `gorm:"not null" json:"items"`
	UpdatedBy string         `gorm:"size:120" json:"updated_by,omitempty"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// UpdateScheduleHistory is an append-only snapshot of every saved version.
type UpdateScheduleHistory struct {
	BaseModel

	Version int            `gorm:"not null;uniqueIndex" json:"version"`
	Items   datatypes.JSON `gorm:"not null" json:"items"`
	SavedBy string         `gorm:"size:120" json:"saved_by,omitempty"`
}

// TableName keeps the history table name singular-free and explicit.
func (UpdateScheduleHistory) TableName() string {
	return "update_schedule_history"
}

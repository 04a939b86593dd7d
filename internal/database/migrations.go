package database

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/baselineanalytics/portal/internal/models"
)

// AutoMigrate creates or updates the database schema for all models.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Setting{},
		&models.CacheEntry{},
		&models.AuditLog{},
		&models.Slide{},
		&models.DeckSetting{},
		&models.DeckFile{},
		&models.Partner{},
		&models.PartnerConnection{},
		&models.PartnerNodePosition{},
		&models.ContentDocument{},
		&models.UpdateSchedule{},
		&models.UpdateScheduleHistory{},
	)
}

// SeedData inserts the singleton rows the portal expects to exist.
func SeedData(db *gorm.DB) error {
	setting := models.DeckSetting{
		ID:          models.DeckSettingID,
		DisplaySize: models.DisplaySizeMedium,
	}
	if err := db.Where(models.DeckSetting{ID: setting.ID}).Attrs(setting).FirstOrCreate(&models.DeckSetting{}).Error; err != nil {
		return err
	}

	schedule := models.UpdateSchedule{
		ID:    models.UpdateScheduleID,
		Items: datatypes.JSON("[]"),
	}
	if err := db.Where(models.UpdateSchedule{ID: schedule.ID}).Attrs(schedule).FirstOrCreate(&models.UpdateSchedule{}).Error; err != nil {
		return err
	}

	return nil
}

package database

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/baselineanalytics/portal/internal/models"
)

func TestAutoMigrateCreatesDeckTables(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, AutoMigrate(db))

	migrator := db.Migrator()
	tables := []interface{}{
		&models.Slide{},
		&models.DeckSetting{},
		&models.DeckFile{},
	}

	for _, table := range tables {
		require.True(t, migrator.HasTable(table), "expected table for %T to exist", table)
	}
}

func TestAutoMigrateCreatesPartnerAndContentTables(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, AutoMigrate(db))

	migrator := db.Migrator()
	tables := []interface{}{
		&models.Partner{},
		&models.PartnerConnection{},
		&models.PartnerNodePosition{},
		&models.ContentDocument{},
		&models.UpdateSchedule{},
		&models.UpdateScheduleHistory{},
	}

	for _, table := range tables {
		require.True(t, migrator.HasTable(table), "expected table for %T to exist", table)
	}
	require.True(t, migrator.HasTable("update_schedule_history"))
}

func TestSeedDataIsIdempotent(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, AutoMigrateAndSeed(db))
	require.NoError(t, db.Model(&models.DeckSetting{}).Where("id = ?", models.DeckSettingID).Update("display_size", models.DisplaySizeLarge).Error)
	require.NoError(t, SeedData(db))

	var setting models.DeckSetting
	require.NoError(t, db.First(&setting, models.DeckSettingID).Error)
	require.Equal(t, models.DisplaySizeLarge, setting.DisplaySize)

	var count int64
	require.NoError(t, db.Model(&models.UpdateSchedule{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

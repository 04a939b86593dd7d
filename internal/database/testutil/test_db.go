// Package testutil opens throwaway SQLite databases for package tests.
package testutil

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/baselineanalytics/portal/internal/database"
)

type schemaLevel int

const (
	schemaEmpty schemaLevel = iota
	schemaMigrated
	schemaSeeded
)

// TestDBOption raises the schema state MustOpenTestDB prepares.
type TestDBOption func(*schemaLevel)

// WithAutoMigrate creates every table.
func WithAutoMigrate() TestDBOption {
	return func(level *schemaLevel) { *level = max(*level, schemaMigrated) }
}

// WithSeedData creates every table and inserts the singleton rows.
func WithSeedData() TestDBOption {
	return func(level *schemaLevel) { *level = schemaSeeded }
}

// MustOpenTestDB returns a database no other test can see. It is closed when
// the test finishes.
func MustOpenTestDB(t *testing.T, opts ...TestDBOption) *gorm.DB {
	t.Helper()

	level := schemaEmpty
	for _, opt := range opts {
		opt(&level)
	}

	db, err := database.Open(database.Config{Driver: "sqlite", DSN: database.MemoryDSN(uuid.NewString())})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	switch level {
	case schemaSeeded:
		require.NoError(t, database.AutoMigrateAndSeed(db))
	case schemaMigrated:
		require.NoError(t, database.AutoMigrate(db))
	}
	return db
}

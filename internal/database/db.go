package database

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/baselineanalytics/portal/pkg/logger"
)

const defaultSlowQueryThreshold = 200 * time.Millisecond

// Config contains database connection options.
type Config struct {
	Driver   string
	Path     string // SQLite file; empty or ":memory:" for an in-memory database
	DSN      string // overrides every other connection field
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	Options  map[string]string

	// SlowQuery is the threshold above which queries are logged at warn level.
	SlowQuery time.Duration
}

// Open connects to the configured driver. Queries are logged through the
// "database" zap module.
func Open(cfg Config) (*gorm.DB, error) {
	dialector, err := dialectorFor(cfg)
	if err != nil {
		return nil, err
	}

	slow := cfg.SlowQuery
	if slow <= 0 {
		slow = defaultSlowQueryThreshold
	}

	return gorm.Open(dialector, &gorm.Config{
		Logger: newQueryLogger(logger.WithModule("database"), gormlogger.Warn, slow),
	})
}

func dialectorFor(cfg Config) (gorm.Dialector, error) {
	switch driver := strings.ToLower(strings.TrimSpace(cfg.Driver)); driver {
	case "", "sqlite":
		return sqliteDialector(cfg)
	case "postgres", "postgresql":
		return postgresDialector(cfg)
	case "mysql", "mariadb":
		return mysqlDialector(cfg)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}
}

// AutoMigrateAndSeed migrates every portal table and inserts default rows.
func AutoMigrateAndSeed(db *gorm.DB) error {
	if db == nil {
		return errors.New("nil database handle")
	}

	if err := AutoMigrate(db); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	if err := SeedData(db); err != nil {
		return fmt.Errorf("seed data: %w", err)
	}

	return nil
}

package database

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/baselineanalytics/portal/internal/models"
)

// SessionSecretSetting holds the generated session signing secret so
// sessions survive restarts when none is configured.
const SessionSecretSetting = "auth.session_secret"

var (
	ErrNilDB           = errors.New("settings: db is nil")
	ErrEmptySettingKey = errors.New("settings: key is required")
)

// GetSetting returns the stored value for key and whether it exists.
func GetSetting(ctx context.Context, db *gorm.DB, key string) (string, bool, error) {
	if db == nil {
		return "", false, ErrNilDB
	}

	var row models.Setting
	err := db.WithContext(ctx).Where("name = ?", key).Take(&row).Error
	switch {
	case err == nil:
		return row.Value, true, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return "", false, nil
	default:
		return "", false, fmt.Errorf("settings: get %q: %w", key, err)
	}
}

// PutSetting writes value under key, replacing any previous value.
func PutSetting(ctx context.Context, db *gorm.DB, key, value string) error {
	if db == nil {
		return ErrNilDB
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrEmptySettingKey
	}

	err := db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&models.Setting{Key: key, Value: value}).Error
	if err != nil {
		return fmt.Errorf("settings: put %q: %w", key, err)
	}
	return nil
}

// EnsureSessionSecret stores candidate unless a secret already exists and
// returns whichever value won. Concurrent callers all observe the same secret.
func EnsureSessionSecret(ctx context.Context, db *gorm.DB, candidate string) (string, error) {
	if db == nil {
		return "", ErrNilDB
	}
	if strings.TrimSpace(candidate) == "" {
		if current, ok, err := GetSetting(ctx, db, SessionSecretSetting); err != nil || ok {
			return current, err
		}
		return "", errors.New("settings: session secret candidate is empty")
	}

	err := db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(&models.Setting{Key: SessionSecretSetting, Value: candidate}).Error
	if err != nil {
		return "", fmt.Errorf("settings: store session secret: %w", err)
	}

	secret, ok, err := GetSetting(ctx, db, SessionSecretSetting)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errors.New("settings: session secret missing after insert")
	}
	return secret, nil
}

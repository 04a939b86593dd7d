package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/baselineanalytics/portal/internal/models"
)

// DatabaseStore keeps cache entries in the cache_entries table. It is the
// default store and the fallback when Redis is unreachable at startup.
type DatabaseStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewDatabaseStore returns nil for a nil handle.
func NewDatabaseStore(db *gorm.DB) *DatabaseStore {
	if db == nil {
		return nil
	}
	return &DatabaseStore{db: db, now: time.Now}
}

// expired treats a zero expiry as "never".
func expired(entry models.CacheEntry, now time.Time) bool {
	return !entry.ExpiresAt.IsZero() && !entry.ExpiresAt.After(now)
}

func (s *DatabaseStore) conn(ctx context.Context) (*gorm.DB, error) {
	if s == nil || s.db == nil {
		return nil, ErrStoreUnavailable
	}
	if ctx == nil {
		ctx = context.Background()
	}
	return s.db.WithContext(ctx), nil
}

// IncrementWithTTL counts inside a transaction holding a row lock, so
// concurrent instances sharing the database never lose an increment. The
// first insert ignores a conflicting key and falls back to the locked update.
func (s *DatabaseStore) IncrementWithTTL(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return 0, 0, err
	}
	if window <= 0 {
		window = time.Minute
	}

	now := s.now()
	count, expiry := int64(1), now.Add(window)

	err = db.Transaction(func(tx *gorm.DB) error {
		entry, found, err := lockEntry(tx, key)
		if err != nil {
			return err
		}
		if !found {
			created := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "cache_key"}},
				DoNothing: true,
			}).Create(&models.CacheEntry{Key: key, Value: []byte("1"), ExpiresAt: expiry})
			if created.Error != nil {
				return created.Error
			}
			if created.RowsAffected > 0 {
				return nil
			}
			// Another writer created the key between the lookup and the insert.
			if entry, found, err = lockEntry(tx, key); err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("cache: counter %q disappeared during increment", key)
			}
		}

		if !expired(entry, now) {
			current, _ := strconv.ParseInt(string(entry.Value), 10, 64)
			count, expiry = current+1, entry.ExpiresAt
		}
		return tx.Model(&entry).Updates(map[string]any{
			"value":      []byte(strconv.FormatInt(count, 10)),
			"expires_at": expiry,
			"updated_at": now,
		}).Error
	})
	if err != nil {
		return 0, 0, err
	}
	return count, expiry.Sub(now), nil
}

func lockEntry(tx *gorm.DB, key string) (models.CacheEntry, bool, error) {
	var entry models.CacheEntry
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Take(&entry, "cache_key = ?", key).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		return entry, false, nil
	case err != nil:
		return entry, false, err
	}
	return entry, true, nil
}

// Set upserts key.
func (s *DatabaseStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	db, err := s.conn(ctx)
	if err != nil {
		return err
	}

	entry := models.CacheEntry{Key: key, Value: value}
	if ttl > 0 {
		entry.ExpiresAt = s.now().Add(ttl)
	}
	return db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "cache_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "expires_at", "updated_at"}),
	}).Create(&entry).Error
}

// Get lazily deletes an expired entry it comes across.
func (s *DatabaseStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return nil, false, err
	}

	var entry models.CacheEntry
	err = db.Take(&entry, "cache_key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if expired(entry, s.now()) {
		_ = s.Delete(ctx, key)
		return nil, false, nil
	}
	return entry.Value, true, nil
}

func (s *DatabaseStore) Delete(ctx context.Context, keys ...string) error {
	db, err := s.conn(ctx)
	if err != nil || len(keys) == 0 {
		return err
	}
	return db.Where("cache_key IN ?", keys).Delete(&models.CacheEntry{}).Error
}

// DeleteExpired purges expired entries for the maintenance job and returns
// how many were removed. Entries without expiry are kept.
func (s *DatabaseStore) DeleteExpired(ctx context.Context) (int64, error) {
	db, err := s.conn(ctx)
	if err != nil {
		return 0, err
	}
	result := db.Where("expires_at > ? AND expires_at <= ?", time.Time{}, s.now()).Delete(&models.CacheEntry{})
	return result.RowsAffected, result.Error
}

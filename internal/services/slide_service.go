package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/baselineanalytics/portal/internal/models"
	"github.com/baselineanalytics/portal/internal/realtime"
	"github.com/baselineanalytics/portal/internal/storage"
	"github.com/baselineanalytics/portal/pkg/logger"
)

// SlideService manages slide ordering, visibility and deck display settings.
// Every deck mutation holds mu so imports, uploads, reorders and deletes
// never interleave within a process.
type SlideService struct {
	db        *gorm.DB
	bucket    storage.Bucket
	publisher realtime.Publisher
	log       *zap.Logger

	mu sync.Mutex
}

// NewSlideService constructs a SlideService.
func NewSlideService(db *gorm.DB, bucket storage.Bucket, publisher realtime.Publisher) (*SlideService, error) {
	if db == nil {
		return nil, errors.New("slide service: db is required")
	}
	if bucket == nil {
		return nil, errors.New("slide service: bucket is required")
	}
	if publisher == nil {
		publisher = realtime.NopPublisher{}
	}
	return &SlideService{
		db:        db,
		bucket:    bucket,
		publisher: publisher,
		log:       logger.WithModule("slides"),
	}, nil
}

// List returns slides ordered by display order, then slide number.
func (s *SlideService) List(ctx context.Context, includeInactive bool) ([]models.Slide, error) {
	ctx = ensureContext(ctx)

	query := s.db.WithContext(ctx).Model(&models.Slide{})
	if !includeInactive {
		query = query.Where("is_active = ?", true)
	}

	var slides []models.Slide
	if err := query.Order("display_order ASC").Order("slide_number ASC").Find(&slides).Error; err != nil {
		return nil, fmt.Errorf("slide service: list slides: %w", err)
	}
	return slides, nil
}

// Get loads a single slide.
func (s *SlideService) Get(ctx context.Context, id string) (*models.Slide, error) {
	ctx = ensureContext(ctx)

	var slide models.Slide
	err := s.db.WithContext(ctx).Take(&slide, "id = ?", strings.TrimSpace(id)).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrSlideNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("slide service: get slide: %w", err)
	}
	return &slide, nil
}

// SetActive toggles slide visibility for non-admin viewers.
func (s *SlideService) SetActive(ctx context.Context, id string, active bool) (*models.Slide, error) {
	ctx = ensureContext(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	result := s.db.WithContext(ctx).
		Model(&models.Slide{}).
		Where("id = ?", strings.TrimSpace(id)).
		Update("is_active", active)
	if result.Error != nil {
		return nil, fmt.Errorf("slide service: set active: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrSlideNotFound
	}
	return s.Get(ctx, id)
}

// Reorder assigns display_order 1..N following ids. ids must name every
// slide exactly once; otherwise nothing is written.
func (s *SlideService) Reorder(ctx context.Context, ids []string) error {
	ctx = ensureContext(ctx)

	cleaned := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			return ErrInvalidSlideOrder
		}
		if _, dup := seen[id]; dup {
			return fmt.Errorf("%w: duplicate id %s", ErrInvalidSlideOrder, id)
		}
		seen[id] = struct{}{}
		cleaned = append(cleaned, id)
	}
	if len(cleaned) == 0 {
		return ErrInvalidSlideOrder
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&models.Slide{}).Where("id IN ?", cleaned).Count(&existing).Error; err != nil {
			return fmt.Errorf("slide service: count slides: %w", err)
		}
		if int(existing) != len(cleaned) {
			return ErrSlideNotFound
		}
		var total int64
		if err := tx.Model(&models.Slide{}).Count(&total).Error; err != nil {
			return fmt.Errorf("slide service: count slides: %w", err)
		}
		if int(total) != len(cleaned) {
			return fmt.Errorf("%w: expected %d ids, got %d", ErrInvalidSlideOrder, total, len(cleaned))
		}

		for position, id := range cleaned {
			if err := tx.Model(&models.Slide{}).
				Where("id = ?", id).
				Update("display_order", position+1).Error; err != nil {
				return fmt.Errorf("slide service: update order: %w", err)
			}
		}
		return nil
	})
}

// Delete removes the slide row and then, best effort, its stored images.
func (s *SlideService) Delete(ctx context.Context, id string) error {
	ctx = ensureContext(ctx)

	s.mu.Lock()
	defer s.mu.Unlock()

	slide, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	if err := s.db.WithContext(ctx).Delete(&models.Slide{}, "id = ?", slide.ID).Error; err != nil {
		return fmt.Errorf("slide service: delete slide: %w", err)
	}

	s.removeObjects(ctx, slide.StorageKeys())
	return nil
}

// Settings returns the global deck display settings.
func (s *SlideService) Settings(ctx context.Context) (models.DeckSetting, error) {
	ctx = ensureContext(ctx)

	var setting models.DeckSetting
	err := s.db.WithContext(ctx).Take(&setting, "id = ?", models.DeckSettingID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.DeckSetting{ID: models.DeckSettingID, DisplaySize: models.DisplaySizeMedium}, nil
	}
	if err != nil {
		return models.DeckSetting{}, fmt.Errorf("slide service: load settings: %w", err)
	}
	return setting, nil
}

// UpdateSize upserts the global display size.
func (s *SlideService) UpdateSize(ctx context.Context, size, actor string) (models.DeckSetting, error) {
	ctx = ensureContext(ctx)

	size = strings.ToLower(strings.TrimSpace(size))
	if !ValidDisplaySize(size) {
		return models.DeckSetting{}, ErrInvalidDisplaySize
	}

	setting := models.DeckSetting{
		ID:          models.DeckSettingID,
		DisplaySize: size,
		UpdatedBy:   actor,
		UpdatedAt:   time.Now(),
	}
	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"display_size", "updated_by", "updated_at"}),
		}).
		Create(&setting).Error; err != nil {
		return models.DeckSetting{}, fmt.Errorf("slide service: update size: %w", err)
	}
	return s.Settings(ctx)
}

// ValidDisplaySize reports whether size is an accepted deck display size.
func ValidDisplaySize(size string) bool {
	switch size {
	case models.DisplaySizeSmall, models.DisplaySizeMedium, models.DisplaySizeLarge, models.DisplaySizeFull:
		return true
	default:
		return false
	}
}

// clearLocked deletes every slide row in one transaction and returns the
// storage keys the removed rows referenced. Callers hold s.mu.
func (s *SlideService) clearLocked(ctx context.Context) ([]string, int, error) {
	var (
		keys    []string
		removed int
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing []models.Slide
		if err := tx.Find(&existing).Error; err != nil {
			return err
		}
		if len(existing) == 0 {
			return nil
		}
		for _, slide := range existing {
			keys = append(keys, slide.StorageKeys()...)
		}
		removed = len(existing)
		return tx.Where("1 = 1").Delete(&models.Slide{}).Error
	})
	if err != nil {
		return nil, 0, fmt.Errorf("slide service: clear slides: %w", err)
	}
	return keys, removed, nil
}

// removeObjects deletes storage objects, logging rather than returning failures.
func (s *SlideService) removeObjects(ctx context.Context, keys []string) {
	if len(keys) == 0 {
		return
	}
	if err := s.bucket.Delete(ctx, keys...); err != nil {
		s.log.Warn("remove slide objects", zap.Int("objects", len(keys)), zap.Error(err))
	}
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/baselineanalytics/portal/internal/models"
	"github.com/baselineanalytics/portal/pkg/validator"
)

// Timeline item statuses.
const (
	ScheduleStatusPlanned    = "planned"
	ScheduleStatusInProgress = "in_progress"
	ScheduleStatusCompleted  = "completed"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 100
)

// ScheduleItem is a single entry on the investor update timeline.
type ScheduleItem struct {
	ID          string `json:"id" validate:"omitempty,max=64"`
	Title       string `json:"title" validate:"required,max=200"`
	Description string `json:"description" validate:"max=2000"`
	Date        string `json:"date" validate:"required,isodate"`
	Status      string `json:"status" validate:"required,oneof=planned in_progress completed"`
	Category    string `json:"category" validate:"max=80"`
}

// Schedule is the current timeline version.
type Schedule struct {
	Version   int            `json:"version"`
	Items     []ScheduleItem `json:"items"`
	UpdatedBy string         `json:"updated_by,omitempty"`
	UpdatedAt *time.Time     `json:"updated_at,omitempty"`
}

// ScheduleRevision is one saved snapshot from the history table.
type ScheduleRevision struct {
	Version int            `json:"version"`
	Items   []ScheduleItem `json:"items"`
	SavedBy string         `json:"saved_by,omitempty"`
	SavedAt time.Time      `json:"saved_at"`
}

// ScheduleService persists the update timeline and its append-only history.
type ScheduleService struct {
	db *gorm.DB
}

// NewScheduleService constructs a ScheduleService.
func NewScheduleService(db *gorm.DB) (*ScheduleService, error) {
	if db == nil {
		return nil, errors.New("schedule service: db is required")
	}
	return &ScheduleService{db: db}, nil
}

// Current returns the latest timeline; version 0 with no items when unsaved.
func (s *ScheduleService) Current(ctx context.Context) (*Schedule, error) {
	ctx = ensureContext(ctx)

	var row models.UpdateSchedule
	err := s.db.WithContext(ctx).Take(&row, "id = ?", models.UpdateScheduleID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &Schedule{Items: []ScheduleItem{}}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("schedule service: load schedule: %w", err)
	}

	items, err := decodeItems(row.Items)
	if err != nil {
		return nil, fmt.Errorf("schedule service: decode items: %w", err)
	}
	schedule := &Schedule{Version: row.Version, Items: items, UpdatedBy: row.UpdatedBy}
	if row.Version > 0 {
		updated := row.UpdatedAt
		schedule.UpdatedAt = &updated
	}
	return schedule, nil
}

// Save validates items, stores them as the next version and appends the
// snapshot to the history table.
func (s *ScheduleService) Save(ctx context.Context, items []ScheduleItem, actor string) (*Schedule, error) {
	ctx = ensureContext(ctx)

	cleaned, err := ValidateScheduleItems(items)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(cleaned)
	if err != nil {
		return nil, fmt.Errorf("schedule service: encode items: %w", err)
	}

	now := time.Now()
	var version int
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.UpdateSchedule
		err := tx.Take(&current, "id = ?", models.UpdateScheduleID).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			current = models.UpdateSchedule{ID: models.UpdateScheduleID}
		case err != nil:
			return err
		}

		version = current.Version + 1
		current.Version = version
		current.Items = datatypes.JSON(payload)
		current.UpdatedBy = actor
		current.UpdatedAt = now
		if err := tx.Save(&current).Error; err != nil {
			return err
		}

		return tx.Create(&models.UpdateScheduleHistory{
			Version: version,
			Items:   datatypes.JSON(payload),
			SavedBy: actor,
		}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("schedule service: save schedule: %w", err)
	}

	return &Schedule{Version: version, Items: cleaned, UpdatedBy: actor, UpdatedAt: &now}, nil
}

// History lists saved versions, newest first.
func (s *ScheduleService) History(ctx context.Context, limit int) ([]ScheduleRevision, error) {
	ctx = ensureContext(ctx)

	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	var rows []models.UpdateScheduleHistory
	if err := s.db.WithContext(ctx).Order("version DESC").Limit(limit).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("schedule service: list history: %w", err)
	}

	revisions := make([]ScheduleRevision, 0, len(rows))
	for _, row := range rows {
		items, err := decodeItems(row.Items)
		if err != nil {
			return nil, fmt.Errorf("schedule service: decode version %d: %w", row.Version, err)
		}
		revisions = append(revisions, ScheduleRevision{
			Version: row.Version,
			Items:   items,
			SavedBy: row.SavedBy,
			SavedAt: row.CreatedAt,
		})
	}
	return revisions, nil
}

// CleanupHistoryOlderThan removes history rows saved before cutoff, always
// keeping the row of the current version.
func (s *ScheduleService) CleanupHistoryOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	ctx = ensureContext(ctx)

	current, err := s.Current(ctx)
	if err != nil {
		return 0, err
	}
	result := s.db.WithContext(ctx).
		Where("created_at < ? AND version <> ?", cutoff, current.Version).
		Delete(&models.UpdateScheduleHistory{})
	if result.Error != nil {
		return 0, fmt.Errorf("schedule service: cleanup history: %w", result.Error)
	}
	return result.RowsAffected, nil
}

// ValidateScheduleItems trims and checks every item, generating ids for
// items without one. Failures are reported per field as items[i].field.
func ValidateScheduleItems(items []ScheduleItem) ([]ScheduleItem, error) {
	cleaned := make([]ScheduleItem, 0, len(items))
	fields := FieldErrors{}
	seen := make(map[string]int, len(items))

	for i, item := range items {
		item.ID = strings.TrimSpace(item.ID)
		item.Title = strings.TrimSpace(item.Title)
		item.Description = strings.TrimSpace(item.Description)
		item.Date = strings.TrimSpace(item.Date)
		item.Status = strings.ToLower(strings.TrimSpace(item.Status))
		item.Category = strings.TrimSpace(item.Category)

		prefix := "items[" + strconv.Itoa(i) + "]."
		if err := validator.ValidateStruct(item); err != nil {
			var failures validator.ValidationErrors
			if !errors.As(err, &failures) {
				return nil, err
			}
			for key, message := range failures.Fields(prefix) {
				fields[key] = message
			}
		}

		if item.ID == "" {
			item.ID = models.NewID()
		}
		if first, dup := seen[item.ID]; dup {
			fields[prefix+"id"] = "duplicates items[" + strconv.Itoa(first) + "].id"
		} else {
			seen[item.ID] = i
		}
		cleaned = append(cleaned, item)
	}

	if len(fields) > 0 {
		return nil, &ValidationError{Err: ErrInvalidSchedule, Fields: fields}
	}
	return cleaned, nil
}

func decodeItems(raw datatypes.JSON) ([]ScheduleItem, error) {
	items := []ScheduleItem{}
	if len(raw) == 0 {
		return items, nil
	}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []ScheduleItem{}
	}
	return items, nil
}

package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/baselineanalytics/portal/internal/models"
)

// Audit results.
const (
	AuditResultSuccess = "success"
	AuditResultFailure = "failure"
	AuditResultDenied  = "denied"
)

const (
	defaultAuditPageSize = 50
	maxAuditPageSize     = 200
	maxUserAgentLength   = 512
)

// AuditEntry is one login attempt or admin mutation to record.
type AuditEntry struct {
	Actor     string
	Role      string
	Action    string
	Resource  string
	Result    string
	IPAddress string
	UserAgent string
	Metadata  map[string]any
}

// AuditFilters narrows List. Empty fields are ignored. An Action ending in
// "*" matches by SQL LIKE prefix ("partner.*"). MetadataKey with MetadataValue
// matches entries whose metadata holds that top-level value.
type AuditFilters struct {
	Actor         string
	Action        string
	Result        string
	Resource      string
	MetadataKey   string
	MetadataValue string
	Since         *time.Time
	Until         *time.Time
}

// AuditListOptions pages through the log, newest first.
type AuditListOptions struct {
	Page     int
	PageSize int
	Filters  AuditFilters
}

// AuditService persists and queries the audit log.
type AuditService struct {
	db  *gorm.DB
	now func() time.Time
}

func NewAuditService(db *gorm.DB) (*AuditService, error) {
	if db == nil {
		return nil, errors.New("audit service: db is required")
	}
	return &AuditService{db: db, now: time.Now}, nil
}

// Log stores entry. Action and Result are required.
func (s *AuditService) Log(ctx context.Context, entry AuditEntry) error {
	ctx = ensureContext(ctx)

	record := models.AuditLog{
		Actor:     strings.TrimSpace(entry.Actor),
		Role:      strings.TrimSpace(entry.Role),
		Action:    strings.TrimSpace(entry.Action),
		Resource:  strings.TrimSpace(entry.Resource),
		Result:    strings.TrimSpace(entry.Result),
		IPAddress: strings.TrimSpace(entry.IPAddress),
		UserAgent: truncateRunes(strings.TrimSpace(entry.UserAgent), maxUserAgentLength),
	}
	switch {
	case record.Action == "":
		return errors.New("audit service: action is required")
	case record.Result == "":
		return errors.New("audit service: result is required")
	}

	if len(entry.Metadata) > 0 {
		encoded, err := json.Marshal(entry.Metadata)
		if err != nil {
			return fmt.Errorf("audit service: marshal metadata: %w", err)
		}
		record.Metadata = datatypes.JSON(encoded)
	}

	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("audit service: create log: %w", err)
	}
	return nil
}

// List returns one page of matching entries and the total match count.
func (s *AuditService) List(ctx context.Context, opts AuditListOptions) ([]models.AuditLog, int64, error) {
	ctx = ensureContext(ctx)

	page := max(opts.Page, 1)
	perPage := opts.PageSize
	if perPage <= 0 || perPage > maxAuditPageSize {
		perPage = defaultAuditPageSize
	}

	query := applyAuditFilters(s.db.WithContext(ctx).Model(&models.AuditLog{}), opts.Filters)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("audit service: count logs: %w", err)
	}

	results := []models.AuditLog{}
	if total == 0 {
		return results, 0, nil
	}
	err := query.Order("created_at DESC").Order("id DESC").
		Offset((page - 1) * perPage).
		Limit(perPage).
		Find(&results).Error
	if err != nil {
		return nil, 0, fmt.Errorf("audit service: list logs: %w", err)
	}
	return results, total, nil
}

// CleanupOlderThan deletes entries older than retentionDays days.
func (s *AuditService) CleanupOlderThan(ctx context.Context, retentionDays int) (int64, error) {
	ctx = ensureContext(ctx)

	if retentionDays <= 0 {
		return 0, errors.New("audit service: retentionDays must be positive")
	}
	cutoff := s.now().AddDate(0, 0, -retentionDays)

	result := s.db.WithContext(ctx).Where("created_at < ?", cutoff).Delete(&models.AuditLog{})
	if result.Error != nil {
		return 0, fmt.Errorf("audit service: cleanup logs: %w", result.Error)
	}
	return result.RowsAffected, nil
}

func applyAuditFilters(query *gorm.DB, f AuditFilters) *gorm.DB {
	equals := map[string]string{
		"actor":    f.Actor,
		"result":   f.Result,
		"resource": f.Resource,
	}
	for column, value := range equals {
		if value = strings.TrimSpace(value); value != "" {
			query = query.Where(column+" = ?", value)
		}
	}

	if action := strings.TrimSpace(f.Action); action != "" {
		if prefix, ok := strings.CutSuffix(action, "*"); ok {
			query = query.Where("action LIKE ?", prefix+"%")
		} else {
			query = query.Where("action = ?", action)
		}
	}

	if key := strings.TrimSpace(f.MetadataKey); key != "" {
		query = query.Where(datatypes.JSONQuery("metadata").Equals(f.MetadataValue, key))
	}
	if f.Since != nil {
		query = query.Where("created_at >= ?", *f.Since)
	}
	if f.Until != nil {
		query = query.Where("created_at <= ?", *f.Until)
	}
	return query
}

func truncateRunes(value string, limit int) string {
	if utf8.RuneCountInString(value) <= limit {
		return value
	}
	runes := []rune(value)
	return string(runes[:limit])
}

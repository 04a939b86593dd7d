package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/baselineanalytics/portal/internal/models"
)

// Built-in content document keys.
const (
	ContentKeyBOS  = "bos"
	ContentKeySite = "site-content"
)

const (
	markdownSuffix = "_md"
	htmlSuffix     = "_html"
)

// ContentService stores the admin-edited JSON documents.
type ContentService struct {
	db       *gorm.DB
	keys     []string
	markdown goldmark.Markdown
	policy   *bluemonday.Policy
}

// NewContentService constructs a ContentService restricted to keys.
func NewContentService(db *gorm.DB, keys []string) (*ContentService, error) {
	if db == nil {
		return nil, errors.New("content service: db is required")
	}
	keys = normaliseIDs(keys)
	if len(keys) == 0 {
		keys = []string{ContentKeyBOS, ContentKeySite}
	}
	return &ContentService{
		db:       db,
		keys:     keys,
		markdown: goldmark.New(goldmark.WithExtensions(extension.GFM)),
		policy:   bluemonday.UGCPolicy(),
	}, nil
}

// Keys returns the accepted document keys.
func (s *ContentService) Keys() []string {
	return append([]string(nil), s.keys...)
}

// Get loads a document. Documents never saved return ErrContentNotFound.
func (s *ContentService) Get(ctx context.Context, key string) (*models.ContentDocument, error) {
	ctx = ensureContext(ctx)

	key, err := s.checkKey(key)
	if err != nil {
		return nil, err
	}

	var doc models.ContentDocument
	err = s.db.WithContext(ctx).Take(&doc, "doc_key = ?", key).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrContentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("content service: get %s: %w", key, err)
	}
	return &doc, nil
}

// Save replaces a document, renders its markdown fields and bumps the version.
func (s *ContentService) Save(ctx context.Context, key string, raw json.RawMessage, actor string) (*models.ContentDocument, error) {
	ctx = ensureContext(ctx)

	key, err := s.checkKey(key)
	if err != nil {
		return nil, err
	}

	var data map[string]any
	if err := json.Unmarshal(raw, &data); err != nil || data == nil {
		return nil, ErrInvalidContent
	}

	normalised, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("content service: encode data: %w", err)
	}
	rendered, err := json.Marshal(s.render(data))
	if err != nil {
		return nil, fmt.Errorf("content service: encode rendered: %w", err)
	}

	var saved models.ContentDocument
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing models.ContentDocument
		err := tx.Take(&existing, "doc_key = ?", key).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			saved = models.ContentDocument{
				Key:       key,
				Data:      datatypes.JSON(normalised),
				Rendered:  datatypes.JSON(rendered),
				Version:   1,
				UpdatedBy: actor,
			}
			return tx.Create(&saved).Error
		case err != nil:
			return err
		}

		existing.Data = datatypes.JSON(normalised)
		existing.Rendered = datatypes.JSON(rendered)
		existing.Version++
		existing.UpdatedBy = actor
		existing.UpdatedAt = time.Now()
		if err := tx.Save(&existing).Error; err != nil {
			return err
		}
		saved = existing
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("content service: save %s: %w", key, err)
	}
	return &saved, nil
}

func (s *ContentService) checkKey(key string) (string, error) {
	key = strings.ToLower(strings.TrimSpace(key))
	if !slices.Contains(s.keys, key) {
		return "", ErrUnknownContentKey
	}
	return key, nil
}

// render copies value, adding a sanitized <name>_html sibling for every
// string field named <name>_md at any depth.
func (s *ContentService) render(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for field, child := range v {
			out[field] = s.render(child)
		}
		for field, child := range v {
			text, ok := child.(string)
			if !ok || !strings.HasSuffix(field, markdownSuffix) {
				continue
			}
			out[strings.TrimSuffix(field, markdownSuffix)+htmlSuffix] = s.RenderMarkdown(text)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, child := range v {
			out[i] = s.render(child)
		}
		return out
	default:
		return v
	}
}

// RenderMarkdown converts GitHub-flavoured markdown to sanitized HTML.
func (s *ContentService) RenderMarkdown(source string) string {
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(source), &buf); err != nil {
		return s.policy.Sanitize(source)
	}
	return s.policy.Sanitize(buf.String())
}

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"regexp"
	"strings"
	"time"
)

// DefaultBucket is the bucket holding deck documents and slide images.
const DefaultBucket = "pitch-deck-files"

// DefaultMaxFileSize caps a single stored object.
const DefaultMaxFileSize int64 = 50 << 20

var (
	// ErrObjectTooLarge is returned when an object exceeds the bucket size ceiling.
	ErrObjectTooLarge = errors.New("storage: object exceeds size limit")
	// ErrInvalidKey is returned for empty, absolute or traversing keys.
	ErrInvalidKey = errors.New("storage: invalid object key")
)

// Bucket abstracts a public object store for deck assets.
type Bucket interface {
	// Ensure creates the bucket when it does not exist yet.
	Ensure(ctx context.Context) error
	// Put stores size bytes read from body under key.
	Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error
	// Delete removes the objects; missing keys are ignored.
	Delete(ctx context.Context, keys ...string) error
	// PublicURL returns the URL clients use to fetch key.
	PublicURL(key string) string
	// Name returns the bucket identifier.
	Name() string
}

var unsafeNameChars = regexp.MustCompile(`[^a-zA-Z0-9._-]+`)

// SanitizeName reduces an uploaded filename to a safe object name component.
func SanitizeName(name string) string {
	name = path.Base(strings.ReplaceAll(strings.TrimSpace(name), "\\", "/"))
	name = unsafeNameChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "file"
	}
	if len(name) > 120 {
		ext := path.Ext(name)
		if len(ext) > 10 {
			ext = ""
		}
		name = name[:120-len(ext)] + ext
	}
	return name
}

// DeckKey builds the object key for an uploaded deck document.
func DeckKey(originalName string, at time.Time) string {
	return fmt.Sprintf("decks/%d-%s", at.UnixMilli(), SanitizeName(originalName))
}

// SlideKey builds the object key for a rendered slide page.
func SlideKey(page int, at time.Time, ext string) string {
	ext = strings.TrimPrefix(ext, ".")
	return fmt.Sprintf("slides/slide-%d-%d.%s", page, at.UnixMilli(), ext)
}

func validateKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	if key == "" || strings.HasPrefix(key, "/") || strings.Contains(key, "\\") {
		return "", ErrInvalidKey
	}
	cleaned := path.Clean(key)
	if cleaned != key || cleaned == "." || strings.HasPrefix(cleaned, "../") || cleaned == ".." {
		return "", ErrInvalidKey
	}
	return cleaned, nil
}

func checkSize(size, limit int64) error {
	if limit > 0 && size > limit {
		return fmt.Errorf("%w: %d > %d bytes", ErrObjectTooLarge, size, limit)
	}
	return nil
}

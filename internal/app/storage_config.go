package app

import (
	"fmt"
	"strings"

	"github.com/baselineanalytics/portal/internal/services"
	"github.com/baselineanalytics/portal/internal/storage"
)

// Storage backends.
const (
	StorageBackendFilesystem = "filesystem"
	StorageBackendSupabase   = "supabase"
)

// FilesURLPrefix is where the router serves filesystem bucket objects.
const FilesURLPrefix = "/files"

// BucketName returns the configured bucket, defaulting to pitch-deck-files.
func (c StorageConfig) BucketName() string {
	if name := strings.TrimSpace(c.Bucket); name != "" {
		return name
	}
	return storage.DefaultBucket
}

// NewBucket builds the configured object storage backend. publicBaseURL
// prefixes filesystem object URLs; empty keeps them host-relative.
func (c StorageConfig) NewBucket(publicBaseURL string) (storage.Bucket, error) {
	switch strings.ToLower(strings.TrimSpace(c.Backend)) {
	case "", StorageBackendFilesystem:
		return storage.NewFilesystemBucket(storage.FilesystemConfig{
			Root:        c.Root,
			Bucket:      c.BucketName(),
			BaseURL:     strings.TrimRight(strings.TrimSpace(publicBaseURL), "/") + FilesURLPrefix,
			MaxFileSize: c.MaxFileSize,
		})
	case StorageBackendSupabase:
		return storage.NewSupabaseBucket(storage.SupabaseConfig{
			URL:         c.Supabase.URL,
			ServiceKey:  c.Supabase.ServiceKey,
			Bucket:      c.BucketName(),
			MaxFileSize: c.MaxFileSize,
			Timeout:     c.Supabase.Timeout,
		})
	default:
		return nil, fmt.Errorf("storage: unsupported backend %q", c.Backend)
	}
}

// ImportConfig converts DeckConfig into the extraction pipeline settings.
func (c DeckConfig) ImportConfig() services.DeckImportConfig {
	return services.DeckImportConfig{
		Scale:           c.RenderScale,
		Workers:         c.RenderWorkers,
		MaxDocumentSize: c.MaxDocumentSize,
		MaxSlideSize:    c.MaxSlideSize,
		ThumbnailWidth:  c.ThumbnailWidth,
	}
}

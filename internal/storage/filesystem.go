package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/multierr"
)

var _ Bucket = (*FilesystemBucket)(nil)

// FilesystemConfig configures a FilesystemBucket.
type FilesystemConfig struct {
	Root        string
	Bucket      string
	BaseURL     string // public URL prefix, e.g. https://portal.example.com/files
	MaxFileSize int64
}

// FilesystemBucket persists objects under <root>/<bucket>/ on the local disk.
type FilesystemBucket struct {
	dir     string
	bucket  string
	baseURL string
	limit   int64
}

// NewFilesystemBucket initialises a filesystem-backed bucket.
func NewFilesystemBucket(cfg FilesystemConfig) (*FilesystemBucket, error) {
	root := strings.TrimSpace(cfg.Root)
	if root == "" {
		return nil, errors.New("filesystem bucket: root directory is required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		bucket = DefaultBucket
	}
	if SanitizeName(bucket) != bucket {
		return nil, fmt.Errorf("filesystem bucket: invalid bucket name %q", bucket)
	}
	limit := cfg.MaxFileSize
	if limit <= 0 {
		limit = DefaultMaxFileSize
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = "/files"
	}

	return &FilesystemBucket{
		dir:     filepath.Join(root, bucket),
		bucket:  bucket,
		baseURL: baseURL,
		limit:   limit,
	}, nil
}

// Name returns the bucket identifier.
func (b *FilesystemBucket) Name() string { return b.bucket }

// Dir returns the directory holding the bucket objects.
func (b *FilesystemBucket) Dir() string { return b.dir }

// Ensure creates the bucket directory.
func (b *FilesystemBucket) Ensure(_ context.Context) error {
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return fmt.Errorf("filesystem bucket: ensure %s: %w", b.dir, err)
	}
	return nil
}

// Put writes the object atomically via a temp file and rename.
func (b *FilesystemBucket) Put(ctx context.Context, key, _ string, body io.Reader, size int64) error {
	key, err := validateKey(key)
	if err != nil {
		return err
	}
	if err := checkSize(size, b.limit); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	fullPath := b.absolute(key)
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return fmt.Errorf("filesystem bucket: mkdir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fullPath), ".upload-*")
	if err != nil {
		return fmt.Errorf("filesystem bucket: create temp: %w", err)
	}
	tmpName := tmp.Name()

	written, copyErr := io.Copy(tmp, io.LimitReader(body, b.limit+1))
	closeErr := tmp.Close()
	if err := multierr.Combine(copyErr, closeErr); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("filesystem bucket: write %s: %w", key, err)
	}
	if written > b.limit {
		_ = os.Remove(tmpName)
		return fmt.Errorf("%w: more than %d bytes", ErrObjectTooLarge, b.limit)
	}

	if err := os.Rename(tmpName, fullPath); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("filesystem bucket: commit %s: %w", key, err)
	}
	return nil
}

// Delete removes the objects, ignoring keys that no longer exist.
func (b *FilesystemBucket) Delete(_ context.Context, keys ...string) error {
	var errs error
	for _, raw := range keys {
		key, err := validateKey(raw)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("%w: %q", err, raw))
			continue
		}
		if err := os.Remove(b.absolute(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = multierr.Append(errs, fmt.Errorf("filesystem bucket: delete %s: %w", key, err))
		}
	}
	return errs
}

// PublicURL returns <base>/<bucket>/<key>.
func (b *FilesystemBucket) PublicURL(key string) string {
	segments := strings.Split(key, "/")
	for i, segment := range segments {
		segments[i] = url.PathEscape(segment)
	}
	return b.baseURL + "/" + b.bucket + "/" + strings.Join(segments, "/")
}

func (b *FilesystemBucket) absolute(key string) string {
	return filepath.Join(b.dir, filepath.FromSlash(key))
}

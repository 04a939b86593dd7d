package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var _ Bucket = (*SupabaseBucket)(nil)

// SupabaseConfig configures a SupabaseBucket.
type SupabaseConfig struct {
	URL         string
	ServiceKey  string
	Bucket      string
	MaxFileSize int64
	Timeout     time.Duration
	HTTPClient  *http.Client
}

// SupabaseBucket stores objects through the Supabase Storage REST API.
type SupabaseBucket struct {
	baseURL string
	key     string
	bucket  string
	limit   int64
	client  *http.Client
}

// NewSupabaseBucket validates configuration and builds the client.
func NewSupabaseBucket(cfg SupabaseConfig) (*SupabaseBucket, error) {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if baseURL == "" {
		return nil, errors.New("supabase bucket: url is required")
	}
	if strings.TrimSpace(cfg.ServiceKey) == "" {
		return nil, errors.New("supabase bucket: service key is required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		bucket = DefaultBucket
	}
	limit := cfg.MaxFileSize
	if limit <= 0 {
		limit = DefaultMaxFileSize
	}
	client := cfg.HTTPClient
	if client == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}

	return &SupabaseBucket{
		baseURL: baseURL,
		key:     cfg.ServiceKey,
		bucket:  bucket,
		limit:   limit,
		client:  client,
	}, nil
}

// Name returns the bucket identifier.
func (b *SupabaseBucket) Name() string { return b.bucket }

type bucketDefinition struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Public        bool   `json:"public"`
	FileSizeLimit int64  `json:"file_size_limit"`
}

// Ensure creates the bucket as public with the configured size limit when missing.
func (b *SupabaseBucket) Ensure(ctx context.Context) error {
	resp, err := b.do(ctx, http.MethodGet, "/storage/v1/bucket/"+b.bucket, "", nil)
	if err != nil {
		return err
	}
	drain(resp)
	switch {
	case resp.StatusCode == http.StatusOK:
		return nil
	case resp.StatusCode != http.StatusNotFound && resp.StatusCode != http.StatusBadRequest:
		// Supabase reports a missing bucket as 400 or 404 depending on version.
		return fmt.Errorf("supabase bucket: lookup %s: unexpected status %d", b.bucket, resp.StatusCode)
	}

	payload, err := json.Marshal(bucketDefinition{
		ID:            b.bucket,
		Name:          b.bucket,
		Public:        true,
		FileSizeLimit: b.limit,
	})
	if err != nil {
		return fmt.Errorf("supabase bucket: encode create request: %w", err)
	}

	resp, err = b.do(ctx, http.MethodPost, "/storage/v1/bucket", "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	body := readError(resp)
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusConflict && !strings.Contains(body, "already exists") {
		return fmt.Errorf("supabase bucket: create %s: status %d: %s", b.bucket, resp.StatusCode, body)
	}
	return nil
}

// Put uploads the object, overwriting any existing object at key.
func (b *SupabaseBucket) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	key, err := validateKey(key)
	if err != nil {
		return err
	}
	if err := checkSize(size, b.limit); err != nil {
		return err
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	req, err := b.newRequest(ctx, http.MethodPost, "/storage/v1/object/"+b.bucket+"/"+key, contentType, io.LimitReader(body, b.limit+1))
	if err != nil {
		return err
	}
	if size > 0 {
		req.ContentLength = size
	}
	req.Header.Set("x-upsert", "true")

	resp, err := b.client.Do(req)
	if err != nil {
		return fmt.Errorf("supabase bucket: upload %s: %w", key, err)
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("supabase bucket: upload %s: status %d: %s", key, resp.StatusCode, readError(resp))
	}
	drain(resp)
	return nil
}

// Delete removes the objects in one request.
func (b *SupabaseBucket) Delete(ctx context.Context, keys ...string) error {
	prefixes := make([]string, 0, len(keys))
	for _, raw := range keys {
		key, err := validateKey(raw)
		if err != nil {
			return fmt.Errorf("%w: %q", err, raw)
		}
		prefixes = append(prefixes, key)
	}
	if len(prefixes) == 0 {
		return nil
	}

	payload, err := json.Marshal(map[string][]string{"prefixes": prefixes})
	if err != nil {
		return fmt.Errorf("supabase bucket: encode delete request: %w", err)
	}
	resp, err := b.do(ctx, http.MethodDelete, "/storage/v1/object/"+b.bucket, "application/json", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	if resp.StatusCode >= 300 && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("supabase bucket: delete %d objects: status %d: %s", len(prefixes), resp.StatusCode, readError(resp))
	}
	drain(resp)
	return nil
}

// PublicURL returns <url>/storage/v1/object/public/<bucket>/<key>.
func (b *SupabaseBucket) PublicURL(key string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", b.baseURL, b.bucket, key)
}

func (b *SupabaseBucket) newRequest(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, b.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("supabase bucket: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+b.key)
	req.Header.Set("apikey", b.key)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	return req, nil
}

func (b *SupabaseBucket) do(ctx context.Context, method, path, contentType string, body io.Reader) (*http.Response, error) {
	req, err := b.newRequest(ctx, method, path, contentType, body)
	if err != nil {
		return nil, err
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("supabase bucket: %s %s: %w", method, path, err)
	}
	return resp, nil
}

func readError(resp *http.Response) string {
	defer resp.Body.Close()
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return strings.TrimSpace(string(data))
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}

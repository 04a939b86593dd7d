package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"go.uber.org/multierr"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/baselineanalytics/portal/internal/models"
	"github.com/baselineanalytics/portal/internal/realtime"
	"github.com/baselineanalytics/portal/internal/render"
	"github.com/baselineanalytics/portal/internal/storage"
	"github.com/baselineanalytics/portal/pkg/logger"
	"github.com/baselineanalytics/portal/pkg/metrics"
)

const (
	// DefaultMaxDocumentSize caps full-document uploads.
	DefaultMaxDocumentSize int64 = 50 << 20
	// DefaultMaxSlideSize caps single rendered slide uploads.
	DefaultMaxSlideSize int64 = 10 << 20
)

// Upload kinds returned by ClassifyUpload.
const (
	UploadKindPDF   = "pdf"
	UploadKindVideo = "video"
)

var videoTypes = map[string]string{
	"video/mp4":       ".mp4",
	"video/webm":      ".webm",
	"video/quicktime": ".mov",
	"video/ogg":       ".ogg",
	"video/x-m4v":     ".m4v",
}

var videoExtensions = map[string]string{
	".mp4":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".ogg":  "video/ogg",
	".m4v":  "video/x-m4v",
}

var slideImageTypes = map[string]string{
	"image/png":  "png",
	"image/jpeg": "jpg",
	"image/webp": "webp",
}

// DeckImportConfig tunes the extraction pipeline.
type DeckImportConfig struct {
	Scale           float64
	Workers         int
	MaxDocumentSize int64
	MaxSlideSize    int64
	ThumbnailWidth  int
}

func (c DeckImportConfig) withDefaults() DeckImportConfig {
	if c.Scale <= 0 {
		c.Scale = render.DefaultScale
	}
	if c.Workers <= 0 {
		c.Workers = 1
	}
	if c.MaxDocumentSize <= 0 {
		c.MaxDocumentSize = DefaultMaxDocumentSize
	}
	if c.MaxSlideSize <= 0 {
		c.MaxSlideSize = DefaultMaxSlideSize
	}
	if c.ThumbnailWidth <= 0 {
		c.ThumbnailWidth = render.DefaultThumbnailWidth
	}
	return c
}

// DeckImportResult summarises a full-document extraction.
type DeckImportResult struct {
	SlidesExtracted int   `json:"slidesExtracted"`
	PageCount       int   `json:"pageCount"`
	FailedPages     []int `json:"failedPages,omitempty"`
}

// DeckUpload is an uploaded deck document or video.
type DeckUpload struct {
	OriginalName string
	ContentType  string
	Data         []byte
	UploadedBy   string
}

// SlideUpload is a single client-rendered page.
type SlideUpload struct {
	SlideNumber int
	IsFirst     bool
	Data        []byte
}

// DeckImportService stores deck uploads and turns PDFs into slides.
type DeckImportService struct {
	db         *gorm.DB
	bucket     storage.Bucket
	rasterizer render.Rasterizer
	slides     *SlideService
	publisher  realtime.Publisher
	cfg        DeckImportConfig
	log        *zap.Logger
	now        func() time.Time
}

// NewDeckImportService constructs a DeckImportService sharing the slide
// service's deck lock.
func NewDeckImportService(db *gorm.DB, bucket storage.Bucket, rasterizer render.Rasterizer, slides *SlideService, publisher realtime.Publisher, cfg DeckImportConfig) (*DeckImportService, error) {
	if db == nil {
		return nil, errors.New("deck import service: db is required")
	}
	if bucket == nil {
		return nil, errors.New("deck import service: bucket is required")
	}
	if rasterizer == nil {
		return nil, errors.New("deck import service: rasterizer is required")
	}
	if slides == nil {
		return nil, errors.New("deck import service: slide service is required")
	}
	if publisher == nil {
		publisher = realtime.NopPublisher{}
	}
	return &DeckImportService{
		db:         db,
		bucket:     bucket,
		rasterizer: rasterizer,
		slides:     slides,
		publisher:  publisher,
		cfg:        cfg.withDefaults(),
		log:        logger.WithModule("deck-import"),
		now:        time.Now,
	}, nil
}

// Limits returns the configured document and slide size caps.
func (s *DeckImportService) Limits() (document, slide int64) {
	return s.cfg.MaxDocumentSize, s.cfg.MaxSlideSize
}

// ClassifyUpload decides whether an upload is a PDF or a video. The declared
// type or extension must name a supported kind and the sniffed content must
// agree with it. It returns the kind and the canonical content type.
func ClassifyUpload(filename, declaredType string, data []byte) (string, string, error) {
	if len(data) == 0 {
		return "", "", ErrEmptyFile
	}
	declaredType = strings.ToLower(strings.TrimSpace(strings.SplitN(declaredType, ";", 2)[0]))
	ext := strings.ToLower(path.Ext(filename))
	detected := mimetype.Detect(data)

	if declaredType == "application/pdf" || ext == ".pdf" {
		if !detected.Is("application/pdf") {
			return "", "", fmt.Errorf("%w: content is %s, not a pdf", ErrInvalidDocument, detected.String())
		}
		return UploadKindPDF, "application/pdf", nil
	}

	contentType := declaredType
	if _, ok := videoTypes[contentType]; !ok {
		contentType = videoExtensions[ext]
	}
	if contentType == "" {
		return "", "", fmt.Errorf("%w: %s", ErrUnsupportedFileType, firstNonEmpty(declaredType, ext, "unknown"))
	}
	if !strings.HasPrefix(detected.String(), "video/") && !strings.HasPrefix(detected.String(), "audio/") {
		return "", "", fmt.Errorf("%w: content is %s, not a video", ErrUnsupportedFileType, detected.String())
	}
	return UploadKindVideo, contentType, nil
}

// UploadDeck stores the original file and, for PDFs, runs the extraction
// pipeline. The stored original is removed when extraction or the
// deck_files insert fails.
func (s *DeckImportService) UploadDeck(ctx context.Context, upload DeckUpload) (*models.DeckFile, error) {
	ctx = ensureContext(ctx)

	if int64(len(upload.Data)) > s.cfg.MaxDocumentSize {
		return nil, ErrFileTooLarge
	}
	kind, contentType, err := ClassifyUpload(upload.OriginalName, upload.ContentType, upload.Data)
	if err != nil {
		return nil, err
	}

	key := storage.DeckKey(upload.OriginalName, s.now())
	if err := s.put(ctx, key, contentType, upload.Data); err != nil {
		return nil, err
	}

	file := &models.DeckFile{
		FileName:     key,
		OriginalName: upload.OriginalName,
		URL:          s.bucket.PublicURL(key),
		ContentType:  contentType,
		Size:         int64(len(upload.Data)),
		IsPDF:        kind == UploadKindPDF,
		UploadedBy:   upload.UploadedBy,
	}

	if file.IsPDF {
		result, err := s.ImportPDF(ctx, upload.Data)
		if err != nil {
			s.slides.removeObjects(ctx, []string{key})
			return nil, err
		}
		file.SlidesExtracted = result.SlidesExtracted
	}

	if err := s.db.WithContext(ctx).Create(file).Error; err != nil {
		s.log.Warn("record deck file failed, removing original", zap.String("key", key), zap.Error(err))
		s.slides.removeObjects(ctx, []string{key})
		return nil, fmt.Errorf("deck import service: record deck file: %w", err)
	}
	return file, nil
}

// LatestFile returns the most recently uploaded deck document.
func (s *DeckImportService) LatestFile(ctx context.Context) (*models.DeckFile, error) {
	ctx = ensureContext(ctx)

	var file models.DeckFile
	err := s.db.WithContext(ctx).Order("created_at DESC").Take(&file).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDeckFileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("deck import service: latest file: %w", err)
	}
	return &file, nil
}

type pageResult struct {
	page  int
	slide *models.Slide
}

// ImportPDF rasterizes every page and replaces the whole deck in one
// transaction. Failed pages are skipped; when no page survives the current
// deck is left untouched.
func (s *DeckImportService) ImportPDF(ctx context.Context, pdf []byte) (*DeckImportResult, error) {
	ctx = ensureContext(ctx)
	if len(pdf) == 0 {
		return nil, ErrEmptyFile
	}

	s.slides.mu.Lock()
	defer s.slides.mu.Unlock()

	started := time.Now()
	doc, err := s.rasterizer.Open(pdf)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	defer func() {
		if cerr := doc.Close(); cerr != nil {
			s.log.Warn("close pdf document", zap.Error(cerr))
		}
	}()

	pageCount := doc.PageCount()
	if pageCount <= 0 {
		return nil, ErrNoSlidesExtracted
	}
	s.publisher.Publish(realtime.StreamPitchDeck, realtime.EventImportStarted, map[string]any{"page_count": pageCount})

	stamp := s.now()
	results := make([]pageResult, pageCount)

	// Rendering goes through a single document handle, so pages are rendered
	// under renderMu while encoding and uploads run concurrently.
	var renderMu sync.Mutex
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(s.cfg.Workers)
	for index := 0; index < pageCount; index++ {
		page := index + 1
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			slide, err := s.processPage(groupCtx, doc, &renderMu, page, pageCount, stamp)
			if err != nil {
				s.log.Warn("skip pdf page", zap.Int("page", page), zap.Error(err))
				metrics.SlidePages.WithLabelValues("failed").Inc()
				s.publisher.Publish(realtime.StreamPitchDeck, realtime.EventSlideFailed, map[string]any{
					"page":  page,
					"total": pageCount,
					"error": err.Error(),
				})
				return nil
			}
			metrics.SlidePages.WithLabelValues("extracted").Inc()
			s.publisher.Publish(realtime.StreamPitchDeck, realtime.EventSlideExtracted, map[string]any{
				"page":  page,
				"total": pageCount,
			})
			results[page-1] = pageResult{page: page, slide: slide}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		s.discard(results)
		return nil, fmt.Errorf("deck import service: render pages: %w", err)
	}

	fresh := make([]models.Slide, 0, pageCount)
	failed := make([]int, 0)
	for index, result := range results {
		if result.slide == nil {
			failed = append(failed, index+1)
			continue
		}
		fresh = append(fresh, *result.slide)
	}
	sort.Slice(fresh, func(i, j int) bool { return fresh[i].SlideNumber < fresh[j].SlideNumber })

	if len(fresh) == 0 {
		return nil, ErrNoSlidesExtracted
	}

	var previous []models.Slide
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Find(&previous).Error; err != nil {
			return err
		}
		if err := tx.Where("1 = 1").Delete(&models.Slide{}).Error; err != nil {
			return err
		}
		return tx.Create(&fresh).Error
	})
	if err != nil {
		s.discard(results)
		return nil, fmt.Errorf("deck import service: replace slides: %w", err)
	}

	s.removePrevious(ctx, previous, fresh)

	result := &DeckImportResult{
		SlidesExtracted: len(fresh),
		PageCount:       pageCount,
		FailedPages:     failed,
	}
	metrics.DeckImportDuration.Observe(time.Since(started).Seconds())
	s.publisher.Publish(realtime.StreamPitchDeck, realtime.EventImportCompleted, result)
	s.log.Info("pdf imported",
		zap.Int("pages", pageCount),
		zap.Int("extracted", result.SlidesExtracted),
		zap.Ints("failed_pages", failed),
		zap.Duration("took", time.Since(started)),
	)
	return result, nil
}

func (s *DeckImportService) processPage(ctx context.Context, doc render.Document, renderMu *sync.Mutex, page, total int, stamp time.Time) (*models.Slide, error) {
	renderMu.Lock()
	img, err := doc.RenderPage(page-1, s.cfg.Scale)
	renderMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}

	pngData, err := render.EncodePNG(img)
	if err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}

	imageKey := storage.SlideKey(page, stamp, "png")
	if err := s.put(ctx, imageKey, "image/png", pngData); err != nil {
		return nil, fmt.Errorf("upload png: %w", err)
	}

	slide := &models.Slide{
		SlideNumber:  page,
		DisplayOrder: page,
		ImageURL:     s.bucket.PublicURL(imageKey),
		StoragePath:  imageKey,
		IsActive:     true,
	}
	s.attachThumbnail(ctx, slide, img, page, stamp)
	return slide, nil
}

// attachThumbnail stores a WebP preview. Failures only cost the thumbnail.
func (s *DeckImportService) attachThumbnail(ctx context.Context, slide *models.Slide, img image.Image, page int, stamp time.Time) {
	thumb, err := render.EncodeThumbnail(img, s.cfg.ThumbnailWidth)
	if err != nil {
		s.log.Warn("encode thumbnail", zap.Int("page", page), zap.Error(err))
		return
	}
	key := storage.SlideKey(page, stamp, "webp")
	if err := s.put(ctx, key, "image/webp", thumb); err != nil {
		s.log.Warn("upload thumbnail", zap.Int("page", page), zap.Error(err))
		return
	}
	slide.ThumbnailURL = s.bucket.PublicURL(key)
	slide.ThumbnailPath = key
}

// UploadSlide stores one client-rendered page. With IsFirst the existing
// deck is cleared first and a failed clear aborts the upload.
func (s *DeckImportService) UploadSlide(ctx context.Context, upload SlideUpload) (*models.Slide, error) {
	ctx = ensureContext(ctx)

	if upload.SlideNumber < 1 {
		return nil, ErrInvalidSlideNumber
	}
	if len(upload.Data) == 0 {
		return nil, ErrEmptyFile
	}
	if int64(len(upload.Data)) > s.cfg.MaxSlideSize {
		return nil, ErrFileTooLarge
	}
	detected := mimetype.Detect(upload.Data)
	ext, ok := slideImageTypes[detected.String()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFileType, detected.String())
	}

	s.slides.mu.Lock()
	defer s.slides.mu.Unlock()

	if upload.IsFirst {
		if _, err := s.clearLocked(ctx); err != nil {
			return nil, err
		}
	}

	stamp := s.now()
	key := storage.SlideKey(upload.SlideNumber, stamp, ext)
	if err := s.put(ctx, key, detected.String(), upload.Data); err != nil {
		return nil, err
	}

	slide := &models.Slide{
		SlideNumber:  upload.SlideNumber,
		DisplayOrder: upload.SlideNumber,
		ImageURL:     s.bucket.PublicURL(key),
		StoragePath:  key,
		IsActive:     true,
	}

	if img, _, err := render.DecodeImage(upload.Data); err == nil {
		s.attachThumbnail(ctx, slide, img, upload.SlideNumber, stamp)
	} else {
		s.log.Warn("decode slide for thumbnail", zap.Int("page", upload.SlideNumber), zap.Error(err))
	}

	if err := s.db.WithContext(ctx).Create(slide).Error; err != nil {
		s.slides.removeObjects(ctx, slide.StorageKeys())
		return nil, fmt.Errorf("deck import service: insert slide: %w", err)
	}

	metrics.SlidePages.WithLabelValues("extracted").Inc()
	s.publisher.Publish(realtime.StreamPitchDeck, realtime.EventSlideExtracted, map[string]any{
		"page": upload.SlideNumber,
	})
	return slide, nil
}

// ClearDeck removes every slide and its stored images.
func (s *DeckImportService) ClearDeck(ctx context.Context) (int, error) {
	ctx = ensureContext(ctx)

	s.slides.mu.Lock()
	defer s.slides.mu.Unlock()
	return s.clearLocked(ctx)
}

func (s *DeckImportService) clearLocked(ctx context.Context) (int, error) {
	keys, removed, err := s.slides.clearLocked(ctx)
	if err != nil {
		return 0, err
	}
	s.slides.removeObjects(ctx, keys)
	s.publisher.Publish(realtime.StreamPitchDeck, realtime.EventDeckCleared, map[string]any{"removed": removed})
	return removed, nil
}

func (s *DeckImportService) put(ctx context.Context, key, contentType string, data []byte) error {
	err := s.bucket.Put(ctx, key, contentType, bytes.NewReader(data), int64(len(data)))
	if errors.Is(err, storage.ErrObjectTooLarge) {
		return fmt.Errorf("%w: %v", ErrFileTooLarge, err)
	}
	return err
}

// removePrevious deletes the objects of replaced slides after commit.
// Keys reused by the new deck are kept.
func (s *DeckImportService) removePrevious(ctx context.Context, previous, fresh []models.Slide) {
	live := make(map[string]struct{}, len(fresh)*2)
	for _, slide := range fresh {
		for _, key := range slide.StorageKeys() {
			live[key] = struct{}{}
		}
	}

	var errs error
	for _, slide := range previous {
		keys := make([]string, 0, 2)
		for _, key := range slide.StorageKeys() {
			if _, ok := live[key]; !ok {
				keys = append(keys, key)
			}
		}
		if len(keys) > 0 {
			errs = multierr.Append(errs, s.bucket.Delete(ctx, keys...))
		}
	}
	if errs != nil {
		s.log.Warn("remove replaced slide objects",
			zap.Int("slides", len(previous)),
			zap.Int("errors", len(multierr.Errors(errs))),
			zap.Error(errs),
		)
	}
}

// discard removes objects uploaded by an aborted import.
func (s *DeckImportService) discard(results []pageResult) {
	keys := make([]string, 0, len(results)*2)
	for _, result := range results {
		if result.slide != nil {
			keys = append(keys, result.slide.StorageKeys()...)
		}
	}
	s.slides.removeObjects(context.Background(), keys)
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}

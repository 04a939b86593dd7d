package services

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/baselineanalytics/portal/internal/database/testutil"
	"github.com/baselineanalytics/portal/internal/models"
	"github.com/baselineanalytics/portal/internal/render/rendertest"
	"github.com/baselineanalytics/portal/internal/storage"
)

type recordedEvent struct {
	stream string
	event  string
	data   any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) Publish(stream, event string, data any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{stream: stream, event: event, data: data})
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.event)
	}
	return out
}

// flakyBucket fails Put for keys containing failOn.
type flakyBucket struct {
	storage.Bucket
	failOn string
}

func (b *flakyBucket) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	if b.failOn != "" && strings.Contains(key, b.failOn) {
		return errors.New("simulated upload failure")
	}
	return b.Bucket.Put(ctx, key, contentType, body, size)
}

type deckFixture struct {
	db        *gorm.DB
	bucket    *storage.FilesystemBucket
	raster    *rendertest.Rasterizer
	publisher *recordingPublisher
	slides    *SlideService
	imports   *DeckImportService
}

func newDeckFixture(t *testing.T, pages int, wrap func(storage.Bucket) storage.Bucket) *deckFixture {
	t.Helper()

	db := testutil.MustOpenTestDB(t, testutil.WithSeedData())
	fs, err := storage.NewFilesystemBucket(storage.FilesystemConfig{Root: t.TempDir()})
	require.NoError(t, err)
	require.NoError(t, fs.Ensure(context.Background()))

	var bucket storage.Bucket = fs
	if wrap != nil {
		bucket = wrap(fs)
	}

	publisher := &recordingPublisher{}
	slides, err := NewSlideService(db, bucket, publisher)
	require.NoError(t, err)

	raster := rendertest.New(pages)
	imports, err := NewDeckImportService(db, bucket, raster, slides, publisher, DeckImportConfig{})
	require.NoError(t, err)

	return &deckFixture{
		db:        db,
		bucket:    fs,
		raster:    raster,
		publisher: publisher,
		slides:    slides,
		imports:   imports,
	}
}

func (f *deckFixture) allSlides(t *testing.T) []models.Slide {
	t.Helper()
	slides, err := f.slides.List(context.Background(), true)
	require.NoError(t, err)
	return slides
}

func slideNumbers(slides []models.Slide) []int {
	out := make([]int, 0, len(slides))
	for _, s := range slides {
		out = append(out, s.SlideNumber)
	}
	return out
}

var errInjectedDB = errors.New("simulated database failure")

// failStatements makes every create or delete statement against table fail
// for the rest of the test.
func failStatements(t *testing.T, db *gorm.DB, op, table string) {
	t.Helper()
	fail := func(tx *gorm.DB) {
		if tx.Statement.Table == table {
			_ = tx.AddError(errInjectedDB)
		}
	}
	name := "test:fail_" + op + "_" + table
	var err error
	switch op {
	case "create":
		err = db.Callback().Create().Before("gorm:create").Register(name, fail)
	case "delete":
		err = db.Callback().Delete().Before("gorm:delete").Register(name, fail)
	default:
		t.Fatalf("unsupported statement %q", op)
	}
	require.NoError(t, err)
}

// storedObjects lists every object key currently in the bucket directory.
func (f *deckFixture) storedObjects(t *testing.T) []string {
	t.Helper()
	root := f.bucket.Dir()
	var keys []string
	err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		keys = append(keys, filepath.ToSlash(rel))
		return nil
	})
	require.NoError(t, err)
	sort.Strings(keys)
	return keys
}

package services

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/baselineanalytics/portal/internal/models"
	"github.com/baselineanalytics/portal/internal/render/rendertest"
)

func TestSlideServiceReorderAssignsPositions(t *testing.T) {
	f := newDeckFixture(t, 3, nil)
	ctx := context.Background()

	_, err := f.imports.ImportPDF(ctx, rendertest.PDF())
	require.NoError(t, err)

	slides := f.allSlides(t)
	require.Len(t, slides, 3)
	ids := []string{slides[2].ID, slides[0].ID, slides[1].ID}

	require.NoError(t, f.slides.Reorder(ctx, ids))

	reordered := f.allSlides(t)
	require.Equal(t, []int{3, 1, 2}, slideNumbers(reordered))
	for i, slide := range reordered {
		require.Equal(t, i+1, slide.DisplayOrder)
		require.Equal(t, ids[i], slide.ID)
	}
}

func TestSlideServiceReorderRejectsInvalidInput(t *testing.T) {
	f := newDeckFixture(t, 2, nil)
	ctx := context.Background()

	_, err := f.imports.ImportPDF(ctx, rendertest.PDF())
	require.NoError(t, err)
	slides := f.allSlides(t)

	err = f.slides.Reorder(ctx, []string{slides[0].ID, slides[0].ID})
	require.ErrorIs(t, err, ErrInvalidSlideOrder)

	err = f.slides.Reorder(ctx, []string{slides[1].ID, "missing"})
	require.ErrorIs(t, err, ErrSlideNotFound)

	err = f.slides.Reorder(ctx, nil)
	require.ErrorIs(t, err, ErrInvalidSlideOrder)

	// Nothing was written by the failed attempts.
	require.Equal(t, []int{1, 2}, slideNumbers(f.allSlides(t)))
}

func TestSlideServiceReorderRejectsPartialList(t *testing.T) {
	f := newDeckFixture(t, 3, nil)
	ctx := context.Background()

	_, err := f.imports.ImportPDF(ctx, rendertest.PDF())
	require.NoError(t, err)
	slides := f.allSlides(t)

	err = f.slides.Reorder(ctx, []string{slides[2].ID})
	require.ErrorIs(t, err, ErrInvalidSlideOrder)

	err = f.slides.Reorder(ctx, []string{slides[2].ID, slides[0].ID})
	require.ErrorIs(t, err, ErrInvalidSlideOrder)

	after := f.allSlides(t)
	require.Equal(t, []int{1, 2, 3}, slideNumbers(after))
	for i, slide := range after {
		require.Equal(t, i+1, slide.DisplayOrder)
	}
}

func TestSlideServiceSetActiveFiltersList(t *testing.T) {
	f := newDeckFixture(t, 3, nil)
	ctx := context.Background()

	_, err := f.imports.ImportPDF(ctx, rendertest.PDF())
	require.NoError(t, err)
	slides := f.allSlides(t)

	updated, err := f.slides.SetActive(ctx, slides[1].ID, false)
	require.NoError(t, err)
	require.False(t, updated.IsActive)

	visible, err := f.slides.List(ctx, false)
	require.NoError(t, err)
	require.Equal(t, []int{1, 3}, slideNumbers(visible))
	require.Len(t, f.allSlides(t), 3)

	_, err = f.slides.SetActive(ctx, "missing", true)
	require.ErrorIs(t, err, ErrSlideNotFound)
}

func TestSlideServiceDeleteRemovesObjects(t *testing.T) {
	f := newDeckFixture(t, 2, nil)
	ctx := context.Background()

	_, err := f.imports.ImportPDF(ctx, rendertest.PDF())
	require.NoError(t, err)
	slides := f.allSlides(t)
	target := slides[0]
	require.NotEmpty(t, target.StorageKeys())

	require.NoError(t, f.slides.Delete(ctx, target.ID))

	require.Len(t, f.allSlides(t), 1)
	for _, key := range target.StorageKeys() {
		_, statErr := os.Stat(filepath.Join(f.bucket.Dir(), filepath.FromSlash(key)))
		require.True(t, os.IsNotExist(statErr), "object %s should be removed", key)
	}

	require.ErrorIs(t, f.slides.Delete(ctx, target.ID), ErrSlideNotFound)
}

func TestSlideServiceDisplaySize(t *testing.T) {
	f := newDeckFixture(t, 1, nil)
	ctx := context.Background()

	settings, err := f.slides.Settings(ctx)
	require.NoError(t, err)
	require.Equal(t, models.DisplaySizeMedium, settings.DisplaySize)

	settings, err = f.slides.UpdateSize(ctx, " LARGE ", "founder")
	require.NoError(t, err)
	require.Equal(t, models.DisplaySizeLarge, settings.DisplaySize)
	require.Equal(t, "founder", settings.UpdatedBy)

	_, err = f.slides.UpdateSize(ctx, "huge", "founder")
	require.ErrorIs(t, err, ErrInvalidDisplaySize)

	settings, err = f.slides.Settings(ctx)
	require.NoError(t, err)
	require.Equal(t, models.DisplaySizeLarge, settings.DisplaySize)
}

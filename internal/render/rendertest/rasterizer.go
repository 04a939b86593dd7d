// Package rendertest provides an in-memory Rasterizer for tests.
package rendertest

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/baselineanalytics/portal/internal/render"
)

// Rasterizer fakes PDF parsing. Any input starting with %PDF opens as a
// document with Pages pages.
type Rasterizer struct {
	Pages  int
	Width  int
	Height int
	// FailPages maps 1-based page numbers to render errors.
	FailPages map[int]error
	OpenErr   error

	mu     sync.Mutex
	opened int
	closed int
}

// New returns a fake rasterizer producing pages of 64x36 pixels.
func New(pages int) *Rasterizer {
	return &Rasterizer{Pages: pages, Width: 64, Height: 36}
}

// PDF returns bytes the fake accepts as a PDF.
func PDF() []byte {
	return []byte("%PDF-1.4\n% fake document\n%%EOF\n")
}

// Open implements render.Rasterizer.
func (r *Rasterizer) Open(pdf []byte) (render.Document, error) {
	if r.OpenErr != nil {
		return nil, r.OpenErr
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		return nil, render.ErrNotPDF
	}
	r.mu.Lock()
	r.opened++
	r.mu.Unlock()
	return &document{r: r}, nil
}

// Counts reports how many documents were opened and closed.
func (r *Rasterizer) Counts() (opened, closed int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.opened, r.closed
}

type document struct {
	r *Rasterizer
}

func (d *document) PageCount() int { return d.r.Pages }

func (d *document) RenderPage(index int, scale float64) (image.Image, error) {
	page := index + 1
	if index < 0 || index >= d.r.Pages {
		return nil, fmt.Errorf("rendertest: page %d out of range", page)
	}
	if err, ok := d.r.FailPages[page]; ok {
		return nil, err
	}
	if scale <= 0 {
		scale = render.DefaultScale
	}
	width := int(float64(d.r.Width) * scale)
	height := int(float64(d.r.Height) * scale)
	shade := uint8(page * 30 % 255)
	return imaging.New(width, height, color.NRGBA{R: shade, G: 128, B: 255 - shade, A: 255}), nil
}

func (d *document) Close() error {
	d.r.mu.Lock()
	d.r.closed++
	d.r.mu.Unlock()
	return nil
}

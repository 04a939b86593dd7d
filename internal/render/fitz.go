package render

import (
	"bytes"
	"fmt"
	"image"
	"sync"

	"github.com/gen2brain/go-fitz"
)

// FitzRasterizer renders PDFs with MuPDF.
type FitzRasterizer struct{}

// NewFitzRasterizer returns the MuPDF-backed rasterizer.
func NewFitzRasterizer() *FitzRasterizer {
	return &FitzRasterizer{}
}

// Open parses the PDF held in memory.
func (FitzRasterizer) Open(pdf []byte) (Document, error) {
	if !bytes.HasPrefix(bytes.TrimLeft(pdf, "\x00\t\r\n "), []byte("%PDF")) {
		return nil, ErrNotPDF
	}
	doc, err := fitz.NewFromMemory(pdf)
	if err != nil {
		return nil, fmt.Errorf("render: open pdf: %w", err)
	}
	return &fitzDocument{doc: doc}, nil
}

// fitzDocument serialises access; MuPDF contexts are not goroutine safe.
type fitzDocument struct {
	mu  sync.Mutex
	doc *fitz.Document
}

func (d *fitzDocument) PageCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.NumPage()
}

func (d *fitzDocument) RenderPage(index int, scale float64) (image.Image, error) {
	if scale <= 0 {
		scale = DefaultScale
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if index < 0 || index >= d.doc.NumPage() {
		return nil, fmt.Errorf("render: page %d out of range", index+1)
	}
	img, err := d.doc.ImageDPI(index, BaseDPI*scale)
	if err != nil {
		return nil, fmt.Errorf("render: page %d: %w", index+1, err)
	}
	return img, nil
}

func (d *fitzDocument) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doc.Close()
}

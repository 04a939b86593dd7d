package render

import (
	"errors"
	"image"
)

// DefaultScale renders pages at twice the PDF point size (144 DPI).
const DefaultScale = 2.0

// BaseDPI is the PDF user-space resolution.
const BaseDPI = 72.0

// ErrNotPDF is returned when the input bytes are not a PDF document.
var ErrNotPDF = errors.New("render: input is not a pdf document")

// Rasterizer opens PDF documents for page rendering.
type Rasterizer interface {
	Open(pdf []byte) (Document, error)
}

// Document is an opened PDF. Implementations need not be safe for concurrent use.
type Document interface {
	PageCount() int
	// RenderPage rasterizes the zero-based page index at BaseDPI*scale.
	RenderPage(index int, scale float64) (image.Image, error)
	Close() error
}

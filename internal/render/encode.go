package render

import (
	"bytes"
	"fmt"
	"image"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

// DefaultThumbnailWidth bounds generated thumbnails.
const DefaultThumbnailWidth = 480

const thumbnailQuality = 80

// EncodePNG encodes img as PNG.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("render: encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodeThumbnail downsizes img to fit within width x 2*width and encodes it as lossy WebP.
// Images already smaller than the box are not upscaled.
func EncodeThumbnail(img image.Image, width int) ([]byte, error) {
	if width <= 0 {
		width = DefaultThumbnailWidth
	}
	thumb := imaging.Fit(img, width, width*2, imaging.Lanczos)

	var buf bytes.Buffer
	if err := webp.Encode(&buf, thumb, &webp.Options{Quality: thumbnailQuality}); err != nil {
		return nil, fmt.Errorf("render: encode webp: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeImage decodes PNG, JPEG or WebP bytes.
func DecodeImage(data []byte) (image.Image, string, error) {
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("render: decode image: %w", err)
	}
	return img, format, nil
}

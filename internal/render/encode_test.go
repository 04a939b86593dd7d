package render

import (
	"bytes"
	"image/color"
	"image/png"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
)

func TestEncodePNGRoundTrip(t *testing.T) {
	img := imaging.New(40, 20, color.NRGBA{R: 10, G: 20, B: 30, A: 255})

	data, err := EncodePNG(img)
	require.NoError(t, err)

	decoded, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	require.Equal(t, 40, decoded.Bounds().Dx())
	require.Equal(t, 20, decoded.Bounds().Dy())
}

func TestEncodeThumbnailBoundsWidth(t *testing.T) {
	img := imaging.New(1920, 1080, color.NRGBA{R: 200, A: 255})

	data, err := EncodeThumbnail(img, 480)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte("RIFF")))

	decoded, format, err := DecodeImage(data)
	require.NoError(t, err)
	require.Equal(t, "webp", format)
	require.Equal(t, 480, decoded.Bounds().Dx())
	require.Equal(t, 270, decoded.Bounds().Dy())
}

func TestEncodeThumbnailDoesNotUpscale(t *testing.T) {
	img := imaging.New(100, 50, color.NRGBA{G: 200, A: 255})

	data, err := EncodeThumbnail(img, 0)
	require.NoError(t, err)

	decoded, _, err := DecodeImage(data)
	require.NoError(t, err)
	require.Equal(t, 100, decoded.Bounds().Dx())
}

func TestDecodeImageRejectsGarbage(t *testing.T) {
	_, _, err := DecodeImage([]byte("not an image"))
	require.Error(t, err)
}

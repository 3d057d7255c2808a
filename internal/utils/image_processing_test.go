package utils

import (
	"image"
	"image/color"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uniform(w, h int, v uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for i := range img.Pix {
		img.Pix[i] = v
	}
	return img
}

func TestImageProcessingError(t *testing.T) {
	err := &ImageProcessingError{Operation: "fit", Err: ErrImageTooSmall}
	assert.Equal(t, "image processing error in fit: image too small", err.Error())
	assert.ErrorIs(t, err, ErrImageTooSmall)
}

func TestDefaultImageConstraints(t *testing.T) {
	c := DefaultImageConstraints()
	assert.Equal(t, 4096, c.MaxWidth)
	assert.Equal(t, 4096, c.MaxHeight)
	assert.Equal(t, 8, c.MinWidth)
	assert.Equal(t, 8, c.MinHeight)
}

func TestFitImage(t *testing.T) {
	c := ImageConstraints{MaxWidth: 100, MaxHeight: 100, MinWidth: 4, MinHeight: 4}

	small := uniform(50, 20, 0)
	out, factor, err := FitImage(small, c)
	require.NoError(t, err)
	assert.Same(t, small, out.(*image.Gray))
	assert.InDelta(t, 1.0, factor, 1e-9)

	big := uniform(400, 200, 0)
	out, factor, err = FitImage(big, c)
	require.NoError(t, err)
	assert.Equal(t, 100, out.Bounds().Dx())
	assert.Equal(t, 50, out.Bounds().Dy())
	assert.InDelta(t, 4.0, factor, 1e-9)

	_, _, err = FitImage(uniform(2, 2, 0), c)
	require.ErrorIs(t, err, ErrImageTooSmall)

	_, _, err = FitImage(nil, c)
	require.Error(t, err)
}

func TestFitImage_Properties(t *testing.T) {
	c := ImageConstraints{MaxWidth: 64, MaxHeight: 64, MinWidth: 1, MinHeight: 1}
	properties := gopter.NewProperties(nil)

	properties.Property("fitted images respect the ceiling and aspect", prop.ForAll(
		func(w, h int) bool {
			out, factor, err := FitImage(uniform(w, h, 128), c)
			if err != nil {
				return false
			}
			b := out.Bounds()
			if b.Dx() > 64 || b.Dy() > 64 || factor < 1 {
				return false
			}
			return float64(b.Dx())*factor >= float64(w)-factor && float64(b.Dx())*factor <= float64(w)+factor
		},
		gen.IntRange(1, 256),
		gen.IntRange(1, 256),
	))

	properties.TestingRun(t)
}

func TestAnalyzeImage(t *testing.T) {
	flat := AnalyzeImage(uniform(16, 16, 200))
	assert.InDelta(t, 200, flat.MeanLuma, 0.5)
	assert.InDelta(t, 0, flat.Contrast, 0.5)

	checker := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for y := range 16 {
		for x := range 16 {
			if (x+y)%2 == 0 {
				checker.Set(x, y, color.White)
			} else {
				checker.Set(x, y, color.Black)
			}
		}
	}
	s := AnalyzeImage(checker)
	assert.Equal(t, 16, s.Width)
	assert.InDelta(t, 127.5, s.MeanLuma, 1)
	assert.InDelta(t, 127.5, s.Contrast, 1)

	assert.Equal(t, ImageStats{}, AnalyzeImage(nil))
}

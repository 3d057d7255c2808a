package utils

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/disintegration/imaging"
)

var (
	// ErrUnsupportedFormat is returned for file extensions no decoder handles.
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrImageTooSmall is returned when an image is below the minimum size.
	ErrImageTooSmall = errors.New("image too small")
)

// ImageProcessingError represents errors that can occur during image processing.
type ImageProcessingError struct {
	Operation string
	Err       error
}

func (e *ImageProcessingError) Error() string {
	return fmt.Sprintf("image processing error in %s: %v", e.Operation, e.Err)
}

func (e *ImageProcessingError) Unwrap() error { return e.Err }

// ImageConstraints bounds the images handed to a scanner.
type ImageConstraints struct {
	MaxWidth  int
	MaxHeight int
	MinWidth  int
	MinHeight int
}

// DefaultImageConstraints returns the default constraints for scanning.
// Barcodes survive far less downscaling than text, so the ceiling is high.
func DefaultImageConstraints() ImageConstraints {
	return ImageConstraints{
		MaxWidth:  4096,
		MaxHeight: 4096,
		MinWidth:  8,
		MinHeight: 8,
	}
}

// FitImage scales img down to fit constraints, preserving the aspect ratio.
// It never upscales. The returned factor maps scaled coordinates back to the
// original (original = scaled * factor).
func FitImage(img image.Image, constraints ImageConstraints) (image.Image, float64, error) {
	if img == nil {
		return nil, 1, &ImageProcessingError{Operation: "fit", Err: errors.New("input image is nil")}
	}
	if err := ValidateImageConstraints(img, constraints); err != nil {
		return nil, 1, err
	}

	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	scale := 1.0
	if constraints.MaxWidth > 0 {
		scale = math.Min(scale, float64(constraints.MaxWidth)/float64(w))
	}
	if constraints.MaxHeight > 0 {
		scale = math.Min(scale, float64(constraints.MaxHeight)/float64(h))
	}
	if scale >= 1 {
		return img, 1, nil
	}

	nw := max(int(float64(w)*scale), 1)
	nh := max(int(float64(h)*scale), 1)
	resized := imaging.Resize(img, nw, nh, imaging.Lanczos)
	return resized, float64(w) / float64(nw), nil
}

// ImageStats summarises the luminance of an image.
type ImageStats struct {
	Width    int     `json:"width"`
	Height   int     `json:"height"`
	MeanLuma float64 `json:"mean_luma"`
	Contrast float64 `json:"contrast"`
}

// AnalyzeImage computes mean luminance and RMS contrast on a grayscale copy.
// Blank or nearly uniform images have a contrast close to zero.
func AnalyzeImage(img image.Image) ImageStats {
	if img == nil {
		return ImageStats{}
	}
	gray := imaging.Grayscale(img)
	b := gray.Bounds()
	n := float64(b.Dx() * b.Dy())
	if n == 0 {
		return ImageStats{}
	}

	var sum, sumSq float64
	for y := range b.Dy() {
		row := gray.Pix[y*gray.Stride : y*gray.Stride+b.Dx()*4]
		for x := 0; x < len(row); x += 4 {
			v := float64(row[x])
			sum += v
			sumSq += v * v
		}
	}
	mean := sum / n
	return ImageStats{
		Width:    b.Dx(),
		Height:   b.Dy(),
		MeanLuma: mean,
		Contrast: math.Sqrt(math.Max(sumSq/n-mean*mean, 0)),
	}
}

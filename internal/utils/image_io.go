package utils

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// SupportedImageExtensions lists supported file extensions for loading.
var SupportedImageExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".gif", ".tif", ".tiff", ".webp"}

// IsSupportedImage reports whether the path has a supported image extension.
func IsSupportedImage(path string) bool {
	return slices.Contains(SupportedImageExtensions, strings.ToLower(filepath.Ext(path)))
}

// ImageMetadata captures lightweight file and pixel information.
type ImageMetadata struct {
	Path      string
	Format    string
	SizeBytes int64
	Width     int
	Height    int
}

// LoadImage opens and decodes an image file, returning the image and metadata.
func LoadImage(path string) (image.Image, ImageMetadata, error) {
	if path == "" {
		return nil, ImageMetadata{}, &ImageProcessingError{Operation: "load", Err: errors.New("empty path")}
	}
	if !IsSupportedImage(path) {
		err := &ImageProcessingError{Operation: "load", Err: fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))}
		return nil, ImageMetadata{}, err
	}

	f, err := os.Open(path) //nolint:gosec // G304: reading a user-provided image path is the point
	if err != nil {
		return nil, ImageMetadata{}, &ImageProcessingError{Operation: "load", Err: err}
	}
	defer func() {
		if err := f.Close(); err != nil {
			slog.Warn("Error closing image file", "path", path, "error", err)
		}
	}()

	fi, err := f.Stat()
	if err != nil {
		return nil, ImageMetadata{}, &ImageProcessingError{Operation: "load", Err: err}
	}

	img, format, err := DecodeImage(f)
	if err != nil {
		return nil, ImageMetadata{}, err
	}

	b := img.Bounds()
	return img, ImageMetadata{
		Path:      path,
		Format:    format,
		SizeBytes: fi.Size(),
		Width:     b.Dx(),
		Height:    b.Dy(),
	}, nil
}

// DecodeImage decodes any registered format from r.
func DecodeImage(r io.Reader) (image.Image, string, error) {
	img, format, err := image.Decode(r)
	if err != nil {
		return nil, "", &ImageProcessingError{Operation: "decode", Err: err}
	}
	return img, format, nil
}

// SaveImage writes img to path; the format follows the extension.
func SaveImage(path string, img image.Image) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return &ImageProcessingError{Operation: "save", Err: err}
	}
	if err := imaging.Save(img, path); err != nil {
		return &ImageProcessingError{Operation: "save", Err: err}
	}
	return nil
}

// ValidateImageConstraints checks dimensions against the provided constraints.
func ValidateImageConstraints(img image.Image, constraints ImageConstraints) error {
	if img == nil {
		return &ImageProcessingError{Operation: "validate", Err: errors.New("input image is nil")}
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	if w < constraints.MinWidth || h < constraints.MinHeight {
		return &ImageProcessingError{
			Operation: "validate",
			Err:       fmt.Errorf("%w: %dx%d < %dx%d", ErrImageTooSmall, w, h, constraints.MinWidth, constraints.MinHeight),
		}
	}
	return nil
}

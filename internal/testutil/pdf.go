package testutil

import (
	"fmt"
	"image"
	"path/filepath"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/require"
)

// WritePDF builds a PDF with one page per image and returns its path.
func WritePDF(t *testing.T, dir string, imgs ...image.Image) string {
	t.Helper()
	path, err := WritePDFFile(dir, "fixture.pdf", imgs...)
	require.NoError(t, err)
	return path
}

// WritePDFFile is WritePDF for callers without a *testing.T.
func WritePDFFile(dir, name string, imgs ...image.Image) (string, error) {
	files := make([]string, len(imgs))
	for i, img := range imgs {
		files[i] = filepath.Join(dir, fmt.Sprintf("page-%02d.png", i+1))
		if err := SaveImageFile(img, files[i]); err != nil {
			return "", err
		}
	}
	out := filepath.Join(dir, name)
	if err := api.ImportImagesFile(files, out, nil, nil); err != nil {
		return "", fmt.Errorf("build pdf: %w", err)
	}
	return out, nil
}

// Package pdf pulls embedded raster images out of PDF documents so they can
// be scanned for barcodes.
package pdf

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/MeKo-Tech/zbargo/internal/utils"
)

// ExtractImages extracts all images from a PDF file, grouped by page number.
func ExtractImages(filename string, pageRange string) (map[int][]image.Image, error) {
	return ExtractImagesWithCredentials(filename, pageRange, nil)
}

// ExtractImagesWithCredentials is ExtractImages for password-protected files.
func ExtractImagesWithCredentials(filename, pageRange string, creds *Credentials) (map[int][]image.Image, error) {
	pages, err := ParsePageRange(pageRange)
	if err != nil {
		return nil, fmt.Errorf("invalid page range %q: %w", pageRange, err)
	}

	tempDir, err := os.MkdirTemp("", "zbarscan-pdf-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	defer func() { _ = os.RemoveAll(tempDir) }()

	var selected []string
	for _, p := range pages {
		selected = append(selected, strconv.Itoa(p))
	}

	if err := api.ExtractImagesFile(filename, tempDir, selected, creds.configuration()); err != nil {
		if IsPasswordError(err) {
			return nil, fmt.Errorf("%w: %w", ErrPasswordRequired, err)
		}
		return nil, fmt.Errorf("failed to extract images from PDF: %w", err)
	}

	result, err := collectExtractedImages(tempDir)
	if err != nil {
		return nil, fmt.Errorf("failed to process extracted images: %w", err)
	}
	return result, nil
}

// SortedPages returns the page numbers of an extraction result in order.
func SortedPages(pages map[int][]image.Image) []int {
	keys := make([]int, 0, len(pages))
	for k := range pages {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// collectExtractedImages walks dir and groups decodable images by page.
// Files within a page keep their lexical order.
func collectExtractedImages(dir string) (map[int][]image.Image, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	result := make(map[int][]image.Image)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		page, err := parsePageFromFilename(e.Name())
		if err != nil {
			continue
		}
		img, _, err := utils.LoadImage(filepath.Join(dir, e.Name()))
		if err != nil {
			slog.Debug("Skipping unreadable PDF image", "file", e.Name(), "error", err)
			continue
		}
		result[page] = append(result[page], img)
	}
	return result, nil
}

// parsePageFromFilename extracts the page number from an extracted image
// name. Both "page_<n>_image_<i>.<ext>" and "<doc>_<n>_<id>.<ext>" occur.
func parsePageFromFilename(filename string) (int, error) {
	stem := strings.TrimSuffix(filename, filepath.Ext(filename))
	parts := strings.Split(stem, "_")
	if len(parts) < 3 {
		return 0, errors.New("invalid filename format")
	}
	field := parts[len(parts)-2]
	if parts[0] == "page" {
		field = parts[1]
	}
	page, err := strconv.Atoi(field)
	if err != nil || page < 1 {
		return 0, fmt.Errorf("invalid page number in %q", filename)
	}
	return page, nil
}

// ParsePageRange parses a page range string like "1-5" or "1,3,5-7".
// The empty string selects every page and yields nil.
func ParsePageRange(pageRange string) ([]int, error) {
	if strings.TrimSpace(pageRange) == "" {
		return nil, nil
	}
	var pages []int
	for _, part := range strings.Split(pageRange, ",") {
		tokenPages, err := parseRangeToken(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		pages = append(pages, tokenPages...)
	}
	return pages, nil
}

// parseRangeToken parses either a single page token ("3") or a range ("1-5").
func parseRangeToken(part string) ([]int, error) {
	lo, hi, isRange := strings.Cut(part, "-")
	start, err := strconv.Atoi(strings.TrimSpace(lo))
	if err != nil {
		return nil, fmt.Errorf("invalid page number: %s", part)
	}
	end := start
	if isRange {
		end, err = strconv.Atoi(strings.TrimSpace(hi))
		if err != nil {
			return nil, fmt.Errorf("invalid end page: %s", hi)
		}
	}
	if start < 1 {
		return nil, fmt.Errorf("page numbers start at 1: %s", part)
	}
	if start > end {
		return nil, fmt.Errorf("start page %d greater than end page %d", start, end)
	}
	out := make([]int, 0, end-start+1)
	for i := start; i <= end; i++ {
		out = append(out, i)
	}
	return out, nil
}

// PageCount reports the number of pages in a PDF file.
func PageCount(filename string, creds *Credentials) (int, error) {
	f, err := os.Open(filename) //nolint:gosec // G304: user-provided PDF path
	if err != nil {
		return 0, err
	}
	defer func() { _ = f.Close() }()

	n, err := api.PageCount(f, creds.configuration())
	if err != nil {
		if IsPasswordError(err) {
			return 0, fmt.Errorf("%w: %w", ErrPasswordRequired, err)
		}
		return 0, err
	}
	return n, nil
}

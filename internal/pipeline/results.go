package pipeline

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Output format names accepted by FormatImageResults and FormatPDFResult.
const (
	FormatJSON = "json"
	FormatText = "text"
	FormatCSV  = "csv"
	FormatYAML = "yaml"
)

// ErrUnknownOutputFormat is returned for an output format no formatter handles.
var ErrUnknownOutputFormat = errors.New("unknown output format")

// OutputFormats lists the supported output formats.
func OutputFormats() []string { return []string{FormatText, FormatJSON, FormatCSV, FormatYAML} }

var csvHeader = []string{"source", "type", "format", "value", "x", "y", "w", "h", "quality", "rotation"}

// ToJSONImage serializes a single result to pretty JSON.
func ToJSONImage(res *ImageResult) (string, error) {
	if res == nil {
		return "", errors.New("nil result")
	}
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ToJSONImages serializes several results to pretty JSON.
func ToJSONImages(results []*ImageResult) (string, error) {
	b, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ToPlainTextImage renders one "TYPE:value" line per symbol, the same shape
// zbarimg prints.
func ToPlainTextImage(res *ImageResult) (string, error) {
	if res == nil {
		return "", errors.New("nil result")
	}
	lines := make([]string, 0, len(res.Barcodes))
	for _, b := range res.Barcodes {
		lines = append(lines, b.Type+":"+b.Value)
	}
	return strings.Join(lines, "\n"), nil
}

// ToCSVImage exports one row per symbol with a header.
func ToCSVImage(res *ImageResult) (string, error) {
	if res == nil {
		return "", errors.New("nil result")
	}
	return toCSV([]*ImageResult{res})
}

// ToYAMLImages serializes results to YAML.
func ToYAMLImages(results []*ImageResult) (string, error) {
	b, err := yaml.Marshal(results)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func toCSV(results []*ImageResult) (string, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return "", err
	}
	for _, res := range results {
		if res == nil {
			continue
		}
		for _, b := range res.Barcodes {
			row := []string{
				res.Source,
				b.Type,
				b.Format,
				b.Value,
				strconv.Itoa(b.Box.X),
				strconv.Itoa(b.Box.Y),
				strconv.Itoa(b.Box.W),
				strconv.Itoa(b.Box.H),
				strconv.Itoa(b.Quality),
				strconv.Itoa(b.Rotation),
			}
			if err := w.Write(row); err != nil {
				return "", err
			}
		}
	}
	w.Flush()
	return buf.String(), w.Error()
}

// FormatImageResults renders results in the named output format. Text output
// prefixes each image with "# source" when there is more than one.
func FormatImageResults(results []*ImageResult, format string) (string, error) {
	switch strings.ToLower(format) {
	case FormatJSON:
		if len(results) == 1 {
			return ToJSONImage(results[0])
		}
		return ToJSONImages(results)
	case FormatYAML:
		return ToYAMLImages(results)
	case FormatCSV:
		return toCSV(results)
	case FormatText, "":
		var sb strings.Builder
		for i, res := range results {
			if res == nil {
				continue
			}
			if len(results) > 1 {
				if i > 0 {
					sb.WriteString("\n")
				}
				fmt.Fprintf(&sb, "# %s\n", res.Source)
			}
			text, err := ToPlainTextImage(res)
			if err != nil {
				return "", err
			}
			if text != "" {
				sb.WriteString(text)
				sb.WriteString("\n")
			}
		}
		return sb.String(), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownOutputFormat, format)
	}
}

// FormatPDFResult renders a PDF result in the named output format.
func FormatPDFResult(res *PDFResult, format string) (string, error) {
	if res == nil {
		return "", errors.New("nil result")
	}
	switch strings.ToLower(format) {
	case FormatJSON:
		b, err := json.MarshalIndent(res, "", "  ")
		return string(b), err
	case FormatYAML:
		b, err := yaml.Marshal(res)
		return string(b), err
	case FormatCSV:
		return toCSV(pdfAsImages(res))
	case FormatText, "":
		var sb strings.Builder
		for _, page := range res.Pages {
			for _, img := range page.Images {
				for _, b := range img.Barcodes {
					fmt.Fprintf(&sb, "page %d: %s:%s\n", page.PageNumber, b.Type, b.Value)
				}
			}
		}
		return sb.String(), nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownOutputFormat, format)
	}
}

// pdfAsImages flattens a PDF result so it can share the image CSV layout.
func pdfAsImages(res *PDFResult) []*ImageResult {
	var out []*ImageResult
	for _, page := range res.Pages {
		for _, img := range page.Images {
			out = append(out, &ImageResult{
				Source:   fmt.Sprintf("%s#page=%d,image=%d", res.Filename, page.PageNumber, img.ImageIndex),
				Width:    img.Width,
				Height:   img.Height,
				Barcodes: img.Barcodes,
			})
		}
	}
	return out
}

// SortBarcodesTopLeft sorts symbols by top-left (y, then x) for readable ordering.
func SortBarcodesTopLeft(res *ImageResult) {
	if res == nil {
		return
	}
	sort.SliceStable(res.Barcodes, func(i, j int) bool {
		a, b := res.Barcodes[i].Box, res.Barcodes[j].Box
		if a.Y == b.Y {
			return a.X < b.X
		}
		return a.Y < b.Y
	})
}

// ValidateImageResult performs simple consistency checks.
func ValidateImageResult(res *ImageResult) error {
	if res == nil {
		return errors.New("nil result")
	}
	if res.Width <= 0 || res.Height <= 0 {
		return fmt.Errorf("invalid image size %dx%d", res.Width, res.Height)
	}
	for i, b := range res.Barcodes {
		if b.Box.W < 0 || b.Box.H < 0 {
			return fmt.Errorf("barcode %d has negative size", i)
		}
		if b.Box.X < 0 || b.Box.Y < 0 {
			return fmt.Errorf("barcode %d has negative coords", i)
		}
		if b.Box.X+b.Box.W > res.Width || b.Box.Y+b.Box.H > res.Height {
			return fmt.Errorf("barcode %d exceeds image bounds", i)
		}
		if b.Rotation < -1 || b.Rotation >= 360 {
			return fmt.Errorf("barcode %d has rotation %d", i, b.Rotation)
		}
	}
	return nil
}

package barcode

import (
	"context"
	"image"
	"strings"
)

// Format represents a barcode symbology, independent of the decoding backend.
type Format int

const (
	FormatUnknown Format = iota
	FormatQR
	FormatDataMatrix
	FormatAztec
	FormatPDF417
	FormatCode128
	FormatCode39
	FormatCode93
	FormatEAN8
	FormatEAN13
	FormatEAN2
	FormatEAN5
	FormatUPCA
	FormatUPCE
	FormatISBN10
	FormatISBN13
	FormatITF
	FormatCodabar
	FormatDataBar
	FormatDataBarExpanded
	FormatComposite
)

var formatNames = map[Format]string{
	FormatUnknown:         "unknown",
	FormatQR:              "qr",
	FormatDataMatrix:      "datamatrix",
	FormatAztec:           "aztec",
	FormatPDF417:          "pdf417",
	FormatCode128:         "code128",
	FormatCode39:          "code39",
	FormatCode93:          "code93",
	FormatEAN8:            "ean8",
	FormatEAN13:           "ean13",
	FormatEAN2:            "ean2",
	FormatEAN5:            "ean5",
	FormatUPCA:            "upca",
	FormatUPCE:            "upce",
	FormatISBN10:          "isbn10",
	FormatISBN13:          "isbn13",
	FormatITF:             "itf",
	FormatCodabar:         "codabar",
	FormatDataBar:         "databar",
	FormatDataBarExpanded: "databar-exp",
	FormatComposite:       "composite",
}

func (f Format) String() string {
	if s, ok := formatNames[f]; ok {
		return s
	}
	return "unknown"
}

// ParseFormat accepts the names produced by String plus common spellings.
func ParseFormat(s string) (Format, bool) {
	key := strings.ToLower(strings.TrimSpace(s))
	switch key {
	case "qrcode", "qr-code":
		return FormatQR, true
	case "data-matrix":
		return FormatDataMatrix, true
	case "code-128":
		return FormatCode128, true
	case "code-39":
		return FormatCode39, true
	case "code-93":
		return FormatCode93, true
	case "ean-8":
		return FormatEAN8, true
	case "ean-13":
		return FormatEAN13, true
	case "upc-a":
		return FormatUPCA, true
	case "upc-e":
		return FormatUPCE, true
	case "i25", "i2/5", "interleaved2of5":
		return FormatITF, true
	case "databarexp", "databar-expanded":
		return FormatDataBarExpanded, true
	}
	for f, name := range formatNames {
		if f != FormatUnknown && name == key {
			return f, true
		}
	}
	return FormatUnknown, false
}

// ParseFormats parses a list, reporting the entries it did not understand.
func ParseFormats(names []string) ([]Format, []string) {
	var formats []Format
	var unknown []string
	for _, n := range names {
		if f, ok := ParseFormat(n); ok {
			formats = append(formats, f)
		} else {
			unknown = append(unknown, n)
		}
	}
	return formats, unknown
}

// Options controls backend decoding behavior.
type Options struct {
	// Formats constrains the set of symbologies to search. Empty means all
	// the backend supports.
	Formats []Format

	// TryHarder retries at a quarter turn when nothing is found.
	TryHarder bool

	// Multi reports every symbol instead of the first.
	Multi bool

	// ROI optionally restricts decoding to a sub-rectangle of the image.
	// If zero-sized or out of bounds, backends ignore it.
	ROI image.Rectangle

	// XDensity and YDensity set the scan line stride; zero keeps the default.
	XDensity int
	YDensity int

	// Configs are raw engine settings such as "ean13.add-check=0", applied
	// after everything above. Backends without such settings ignore them.
	Configs []string
}

// Point is an integer point in image coordinates.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Result represents a decoded barcode.
type Result struct {
	Type     Format          `json:"-"`
	Symbol   string          `json:"type"`
	Value    string          `json:"value"`
	Raw      []byte          `json:"-"`
	Points   []Point         `json:"points,omitempty"`
	BBox     image.Rectangle `json:"-"`
	Rotation int             `json:"rotation"` // degrees clockwise; -1 if unknown
	Quality  int             `json:"quality"`  // engine-specific; 0 if not provided
	Backend  string          `json:"backend"`
}

// Backend is a pluggable barcode decoder implementation.
type Backend interface {
	Name() string
	Decode(ctx context.Context, img image.Image, opts Options) ([]Result, error)
	Close() error
}

func rectFromPoints(pts []Point) image.Rectangle {
	if len(pts) == 0 {
		return image.Rectangle{}
	}
	minX, minY := pts[0].X, pts[0].Y
	maxX, maxY := pts[0].X, pts[0].Y
	for _, p := range pts[1:] {
		minX, minY = min(minX, p.X), min(minY, p.Y)
		maxX, maxY = max(maxX, p.X), max(maxY, p.Y)
	}
	return image.Rect(minX, minY, maxX+1, maxY+1)
}

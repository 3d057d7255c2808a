package pipeline

// Point is a barcode outline vertex in source image pixels.
type Point struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

// Box is an axis-aligned rectangle in source image pixels.
type Box struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
	W int `json:"w" yaml:"w"`
	H int `json:"h" yaml:"h"`
}

// BarcodeResult is one decoded symbol.
type BarcodeResult struct {
	// Type is the symbology as the backend names it, e.g. "QR-Code" or "EAN-13".
	Type string `json:"type" yaml:"type"`
	// Format is the backend independent symbology name, e.g. "qr".
	Format   string  `json:"format" yaml:"format"`
	Value    string  `json:"value" yaml:"value"`
	Binary   bool    `json:"binary,omitempty" yaml:"binary,omitempty"`
	Quality  int     `json:"quality" yaml:"quality"`
	Rotation int     `json:"rotation" yaml:"rotation"` // degrees clockwise; -1 if unknown
	Box      Box     `json:"box" yaml:"box"`
	Points   []Point `json:"points,omitempty" yaml:"points,omitempty"`
	Backend  string  `json:"backend" yaml:"backend"`
}

// ProcessingInfo records how an image was handled.
type ProcessingInfo struct {
	TotalNs     int64   `json:"total_ns" yaml:"total_ns"`
	ScaleFactor float64 `json:"scale_factor" yaml:"scale_factor"`
}

// ImageResult is the outcome of scanning one image.
type ImageResult struct {
	Source     string          `json:"source,omitempty" yaml:"source,omitempty"`
	Width      int             `json:"width" yaml:"width"`
	Height     int             `json:"height" yaml:"height"`
	Backend    string          `json:"backend" yaml:"backend"`
	Barcodes   []BarcodeResult `json:"barcodes" yaml:"barcodes"`
	Processing ProcessingInfo  `json:"processing" yaml:"processing"`
}

// PDFImageResult holds the symbols found in one image embedded in a page.
type PDFImageResult struct {
	ImageIndex int             `json:"image_index" yaml:"image_index"`
	Width      int             `json:"width" yaml:"width"`
	Height     int             `json:"height" yaml:"height"`
	Barcodes   []BarcodeResult `json:"barcodes" yaml:"barcodes"`
}

// PDFPageResult groups the images of one page.
type PDFPageResult struct {
	PageNumber int              `json:"page_number" yaml:"page_number"`
	Images     []PDFImageResult `json:"images" yaml:"images"`
	Processing struct {
		TotalNs int64 `json:"total_ns" yaml:"total_ns"`
	} `json:"processing" yaml:"processing"`
}

// PDFResult is the outcome of scanning a PDF document.
type PDFResult struct {
	Filename   string          `json:"filename" yaml:"filename"`
	TotalPages int             `json:"total_pages" yaml:"total_pages"`
	Pages      []PDFPageResult `json:"pages" yaml:"pages"`
	Processing struct {
		ExtractionNs int64 `json:"extraction_ns" yaml:"extraction_ns"`
		TotalNs      int64 `json:"total_ns" yaml:"total_ns"`
	} `json:"processing" yaml:"processing"`
}

// Barcodes flattens every symbol found in the document.
func (r *PDFResult) Barcodes() []BarcodeResult {
	if r == nil {
		return nil
	}
	var out []BarcodeResult
	for _, p := range r.Pages {
		for _, img := range p.Images {
			out = append(out, img.Barcodes...)
		}
	}
	return out
}

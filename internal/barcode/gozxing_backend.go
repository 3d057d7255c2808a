package barcode

import (
	"context"
	"image"
	"image/draw"
	"log/slog"

	gozxing "github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/datamatrix"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
)

type gozxingReader struct {
	format Format
	reader gozxing.Reader
}

// gozxingBackend is a pure-Go decoder. It has no engine settings; Configs
// and densities are ignored.
type gozxingBackend struct{}

func newGozxingBackend() *gozxingBackend { return &gozxingBackend{} }

func (b *gozxingBackend) Name() string { return BackendGozxing }

func (b *gozxingBackend) Close() error { return nil }

// readersFor returns one reader per requested format in a fixed order. UPC-A
// is only tried on request since the EAN-13 reader already covers it.
func readersFor(formats []Format) []gozxingReader {
	all := []gozxingReader{
		{FormatQR, qrcode.NewQRCodeReader()},
		{FormatDataMatrix, datamatrix.NewDataMatrixReader()},
		{FormatEAN13, oned.NewEAN13Reader()},
		{FormatEAN8, oned.NewEAN8Reader()},
		{FormatUPCE, oned.NewUPCEReader()},
		{FormatUPCA, oned.NewUPCAReader()},
		{FormatCode128, oned.NewCode128Reader()},
		{FormatCode39, oned.NewCode39Reader()},
		{FormatCode93, oned.NewCode93Reader()},
		{FormatITF, oned.NewITFReader()},
		{FormatCodabar, oned.NewCodaBarReader()},
	}
	if len(formats) == 0 {
		out := make([]gozxingReader, 0, len(all))
		for _, r := range all {
			if r.format != FormatUPCA {
				out = append(out, r)
			}
		}
		return out
	}
	want := make(map[Format]bool, len(formats))
	for _, f := range formats {
		want[f] = true
	}
	var out []gozxingReader
	for _, r := range all {
		if want[r.format] {
			out = append(out, r)
		}
	}
	return out
}

func (b *gozxingBackend) Decode(ctx context.Context, img image.Image, opts Options) ([]Result, error) {
	offset := img.Bounds().Min
	if !opts.ROI.Empty() {
		if roiImg, ok := subImage(img, opts.ROI); ok {
			img = roiImg
			offset = roiImg.Bounds().Min
		}
	}
	// The bitmap works in coordinates relative to the image origin.
	img = rebase(img)

	bmp, err := gozxing.NewBinaryBitmapFromImage(img)
	if err != nil {
		return nil, err
	}

	hints := map[gozxing.DecodeHintType]interface{}{}
	if opts.TryHarder {
		hints[gozxing.DecodeHintType_TRY_HARDER] = true
	}

	out := []Result{}
	for _, rd := range readersFor(opts.Formats) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		r, err := rd.reader.Decode(bmp, hints)
		if err != nil {
			slog.Debug("gozxing reader found nothing", "format", rd.format.String(), "error", err)
			continue
		}
		out = append(out, convertGozxing(r, offset))
		if !opts.Multi {
			break
		}
	}
	return out, nil
}

func convertGozxing(r *gozxing.Result, offset image.Point) Result {
	f := formatFromGozxing(r.GetBarcodeFormat())
	var points []Point
	if pts := r.GetResultPoints(); len(pts) > 0 {
		points = make([]Point, 0, len(pts))
		for _, p := range pts {
			points = append(points, Point{X: int(p.GetX()) + offset.X, Y: int(p.GetY()) + offset.Y})
		}
	}
	return Result{
		Type:     f,
		Symbol:   SymbolName(f),
		Value:    r.GetText(),
		Raw:      []byte(r.GetText()),
		Points:   points,
		BBox:     rectFromPoints(points),
		Rotation: -1,
		Backend:  BackendGozxing,
	}
}

func formatFromGozxing(bf gozxing.BarcodeFormat) Format {
	switch bf {
	case gozxing.BarcodeFormat_QR_CODE:
		return FormatQR
	case gozxing.BarcodeFormat_DATA_MATRIX:
		return FormatDataMatrix
	case gozxing.BarcodeFormat_CODE_128:
		return FormatCode128
	case gozxing.BarcodeFormat_CODE_39:
		return FormatCode39
	case gozxing.BarcodeFormat_CODE_93:
		return FormatCode93
	case gozxing.BarcodeFormat_EAN_8:
		return FormatEAN8
	case gozxing.BarcodeFormat_EAN_13:
		return FormatEAN13
	case gozxing.BarcodeFormat_UPC_A:
		return FormatUPCA
	case gozxing.BarcodeFormat_UPC_E:
		return FormatUPCE
	case gozxing.BarcodeFormat_ITF:
		return FormatITF
	case gozxing.BarcodeFormat_CODABAR:
		return FormatCodabar
	default:
		return FormatUnknown
	}
}

// subImage returns the part of img inside r, or false when they do not overlap.
func subImage(img image.Image, r image.Rectangle) (image.Image, bool) {
	rb := r.Intersect(img.Bounds())
	if rb.Empty() {
		return nil, false
	}
	type subImager interface{ SubImage(r image.Rectangle) image.Image }
	if s, ok := img.(subImager); ok {
		return s.SubImage(rb), true
	}
	dst := image.NewRGBA(rb)
	draw.Draw(dst, rb, img, rb.Min, draw.Src)
	return dst, true
}

// rebase copies img to an origin-based RGBA when its bounds do not start at 0,0.
func rebase(img image.Image) image.Image {
	b := img.Bounds()
	if b.Min == (image.Point{}) {
		return img
	}
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

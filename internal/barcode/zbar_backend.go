package barcode

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/zbargo/internal/mempool"
	"github.com/MeKo-Tech/zbargo/internal/zbar"
)

var zbarSymbols = map[Format]zbar.SymbolType{
	FormatQR:              zbar.SymbolQRCode,
	FormatPDF417:          zbar.SymbolPDF417,
	FormatCode128:         zbar.SymbolCode128,
	FormatCode39:          zbar.SymbolCode39,
	FormatCode93:          zbar.SymbolCode93,
	FormatEAN8:            zbar.SymbolEAN8,
	FormatEAN13:           zbar.SymbolEAN13,
	FormatEAN2:            zbar.SymbolEAN2,
	FormatEAN5:            zbar.SymbolEAN5,
	FormatUPCA:            zbar.SymbolUPCA,
	FormatUPCE:            zbar.SymbolUPCE,
	FormatISBN10:          zbar.SymbolISBN10,
	FormatISBN13:          zbar.SymbolISBN13,
	FormatITF:             zbar.SymbolI25,
	FormatCodabar:         zbar.SymbolCodabar,
	FormatDataBar:         zbar.SymbolDataBar,
	FormatDataBarExpanded: zbar.SymbolDataBarEx,
	FormatComposite:       zbar.SymbolComposite,
}

// SymbolName returns the engine's display name for f ("QR-Code", "EAN-13"),
// so both backends label results alike. Formats the engine lacks keep
// their short name.
func SymbolName(f Format) string {
	if s, ok := zbarSymbols[f]; ok {
		return s.String()
	}
	return f.String()
}

// formatFromZBar maps an engine symbol type back to a Format.
func formatFromZBar(t zbar.SymbolType) Format {
	base := t.Base()
	for f, s := range zbarSymbols {
		if s == base {
			return f
		}
	}
	return FormatUnknown
}

// zbarBackend owns one native scanner. The scanner is rebuilt whenever the
// requested settings change, so settings never leak between calls.
type zbarBackend struct {
	mu      sync.Mutex
	scanner *zbar.Scanner
	fresh   bool
	closed  bool
	applied string
}

func newZBarBackend() (*zbarBackend, error) {
	s, err := zbar.NewScanner()
	if err != nil {
		return nil, fmt.Errorf("create zbar scanner: %w", err)
	}
	return &zbarBackend{scanner: s, fresh: true}, nil
}

func (b *zbarBackend) Name() string { return BackendZBar }

func (b *zbarBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.scanner != nil {
		b.scanner.Destroy()
		b.scanner = nil
	}
	b.closed = true
	return nil
}

func settingsKey(opts Options) string {
	var sb strings.Builder
	formats := slices.Clone(opts.Formats)
	slices.Sort(formats)
	for _, f := range formats {
		sb.WriteString(f.String())
		sb.WriteByte(',')
	}
	sb.WriteString("|" + strconv.Itoa(opts.XDensity) + "|" + strconv.Itoa(opts.YDensity) + "|")
	sb.WriteString(strings.Join(opts.Configs, ";"))
	return sb.String()
}

// configure brings the scanner in line with opts.
func (b *zbarBackend) configure(opts Options) error {
	key := settingsKey(opts)
	if b.scanner != nil && key == b.applied {
		return nil
	}
	if b.scanner != nil && !b.fresh {
		b.scanner.Destroy()
		b.scanner = nil
	}
	if b.scanner == nil {
		s, err := zbar.NewScanner()
		if err != nil {
			return fmt.Errorf("create zbar scanner: %w", err)
		}
		b.scanner = s
	}
	b.fresh = false
	b.applied = ""

	s := b.scanner
	if len(opts.Formats) > 0 {
		if err := s.SetConfig(zbar.SymbolNone, zbar.ConfigEnable, 0); err != nil {
			return err
		}
		for _, f := range opts.Formats {
			sym, ok := zbarSymbols[f]
			if !ok {
				slog.Debug("Format not supported by zbar backend", "format", f.String())
				continue
			}
			if err := s.SetConfig(sym, zbar.ConfigEnable, 1); err != nil {
				return err
			}
		}
	}
	if opts.XDensity > 0 {
		if err := s.SetConfig(zbar.SymbolNone, zbar.ConfigXDensity, opts.XDensity); err != nil {
			return err
		}
	}
	if opts.YDensity > 0 {
		if err := s.SetConfig(zbar.SymbolNone, zbar.ConfigYDensity, opts.YDensity); err != nil {
			return err
		}
	}
	for _, cfg := range opts.Configs {
		if err := s.ParseConfig(cfg); err != nil {
			return err
		}
	}
	b.applied = key
	return nil
}

func (b *zbarBackend) Decode(ctx context.Context, img image.Image, opts Options) ([]Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return nil, fmt.Errorf("zbar backend: %w", zbar.ErrDestroyed)
	}
	if err := b.configure(opts); err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	roi := opts.ROI.Intersect(bounds)
	results, err := b.scan(img, roi)
	if err != nil {
		return nil, err
	}

	if len(results) == 0 && opts.TryHarder {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rotated := imaging.Rotate90(img)
		var rroi image.Rectangle
		if !roi.Empty() {
			rroi = rotateRect90(roi.Sub(bounds.Min), bounds.Dx())
		}
		rs, err := b.scan(rotated, rroi)
		if err != nil {
			return nil, err
		}
		for i := range rs {
			unrotatePoints(rs[i].Points, bounds)
			rs[i].BBox = rectFromPoints(rs[i].Points)
			rs[i].Rotation = unrotateDegrees(rs[i].Rotation)
		}
		results = rs
	}

	if !opts.Multi && len(results) > 1 {
		results = results[:1]
	}
	return results, nil
}

// scan runs one pass. roi is in img coordinates; an empty roi means the
// whole image.
func (b *zbarBackend) scan(img image.Image, roi image.Rectangle) ([]Result, error) {
	bounds := img.Bounds()
	buf, w, h := lumaOf(img)
	if err := zbar.ValidateGeometry(buf, uint32(w), uint32(h), zbar.FormatY800); err != nil {
		mempool.PutBytes(buf)
		return nil, err
	}

	zimg, err := zbar.NewImage(uint32(w), uint32(h), zbar.FormatY800)
	if err != nil {
		mempool.PutBytes(buf)
		return nil, err
	}
	defer zimg.Destroy()

	if err := zimg.AttachData(buf, mempool.PutBytes); err != nil {
		mempool.PutBytes(buf)
		return nil, err
	}
	if !roi.Empty() {
		r := roi.Sub(bounds.Min)
		if err := zimg.SetCrop(uint32(r.Min.X), uint32(r.Min.Y), uint32(r.Dx()), uint32(r.Dy())); err != nil {
			return nil, err
		}
	}

	symbols, err := b.scanner.ScanImage(zimg)
	if err != nil {
		return nil, err
	}

	out := make([]Result, 0, len(symbols))
	for _, s := range symbols {
		r := Result{
			Type:     formatFromZBar(s.Type),
			Symbol:   s.Type.String(),
			Value:    s.Text(),
			Raw:      s.Data,
			Rotation: s.Orientation.Degrees(),
			Quality:  s.Quality,
			Backend:  BackendZBar,
		}
		if len(s.Points) > 0 {
			r.Points = make([]Point, len(s.Points))
			for i, p := range s.Points {
				r.Points[i] = Point{X: p.X + bounds.Min.X, Y: p.Y + bounds.Min.Y}
			}
		}
		r.BBox = rectFromPoints(r.Points)
		out = append(out, r)
	}
	return out, nil
}

// rotateRect90 maps a rectangle in an image of width w (origin at 0,0) to
// the same region after a 90 degree counter-clockwise rotation.
func rotateRect90(r image.Rectangle, w int) image.Rectangle {
	return image.Rect(r.Min.Y, w-r.Max.X, r.Max.Y, w-r.Min.X)
}

// unrotateDegrees maps a clockwise orientation read on the image turned 90°
// counter-clockwise back to the source image. Negative means unknown.
func unrotateDegrees(d int) int {
	if d < 0 {
		return d
	}
	return (d + 90) % 360
}

// unrotatePoints maps points found in the rotated image back to the
// original image with the given bounds.
func unrotatePoints(pts []Point, bounds image.Rectangle) {
	w := bounds.Dx()
	for i, p := range pts {
		pts[i] = Point{X: bounds.Min.X + w - 1 - p.Y, Y: bounds.Min.Y + p.X}
	}
}

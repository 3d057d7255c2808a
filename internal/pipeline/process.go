package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"time"

	"github.com/MeKo-Tech/zbargo/internal/barcode"
	"github.com/MeKo-Tech/zbargo/internal/payload"
	"github.com/MeKo-Tech/zbargo/internal/utils"
)

// ProcessImage scans a single image.
func (p *Pipeline) ProcessImage(img image.Image) (*ImageResult, error) {
	return p.ProcessImageContext(context.Background(), img)
}

// ProcessImageContext scans a single image with context cancellation support.
func (p *Pipeline) ProcessImageContext(ctx context.Context, img image.Image) (*ImageResult, error) {
	if img == nil {
		return nil, errors.New("input image is nil")
	}
	if p == nil {
		return nil, ErrNotInitialized
	}
	p.mu.Lock()
	be := p.backend
	p.mu.Unlock()
	if be == nil {
		return nil, ErrNotInitialized
	}
	return p.scan(ctx, be, img)
}

// ProcessFile loads an image from disk and scans it.
func (p *Pipeline) ProcessFile(ctx context.Context, path string) (*ImageResult, error) {
	img, err := loadImage(path)
	if err != nil {
		return nil, err
	}
	res, err := p.ProcessImageContext(ctx, img)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", path, err)
	}
	res.Source = path
	return res, nil
}

func loadImage(path string) (image.Image, error) {
	if !utils.IsSupportedImage(path) {
		return nil, fmt.Errorf("%w: %s", utils.ErrUnsupportedFormat, path)
	}
	img, _, err := utils.LoadImage(path)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return img, nil
}

// ProcessImages scans images one after another, stopping at the first error.
func (p *Pipeline) ProcessImages(images []image.Image) ([]*ImageResult, error) {
	return p.ProcessImagesContext(context.Background(), images)
}

// ProcessImagesContext scans images sequentially with context cancellation support.
func (p *Pipeline) ProcessImagesContext(ctx context.Context, images []image.Image) ([]*ImageResult, error) {
	results := make([]*ImageResult, len(images))
	for i, img := range images {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		res, err := p.ProcessImageContext(ctx, img)
		if err != nil {
			return nil, fmt.Errorf("image %d: %w", i, err)
		}
		results[i] = res
	}
	return results, nil
}

// scan runs one image through be. Oversized images are decoded on a
// downscaled copy; coordinates are reported in the source image frame.
func (p *Pipeline) scan(ctx context.Context, be barcode.Backend, img image.Image) (*ImageResult, error) {
	start := time.Now()
	bounds := img.Bounds()

	work, factor, err := utils.FitImage(img, p.cfg.Constraints)
	if err != nil {
		return nil, fmt.Errorf("prepare image: %w", err)
	}

	opts := p.cfg.Options()
	if !opts.ROI.Empty() {
		opts.ROI = toWorkRect(opts.ROI, bounds, work.Bounds(), factor)
	}

	found, err := be.Decode(ctx, work, opts)
	if err != nil {
		return nil, fmt.Errorf("%s decode: %w", be.Name(), err)
	}

	res := &ImageResult{
		Width:    bounds.Dx(),
		Height:   bounds.Dy(),
		Backend:  be.Name(),
		Barcodes: make([]BarcodeResult, 0, len(found)),
	}
	origin := work.Bounds().Min
	for _, r := range found {
		res.Barcodes = append(res.Barcodes, p.convert(r, origin, factor))
	}
	res.Processing.ScaleFactor = factor
	res.Processing.TotalNs = time.Since(start).Nanoseconds()

	slog.Debug("Scanned image",
		"backend", res.Backend,
		"width", res.Width,
		"height", res.Height,
		"scale", factor,
		"barcodes", len(res.Barcodes),
		"duration", time.Duration(res.Processing.TotalNs))
	if len(res.Barcodes) == 0 && slog.Default().Enabled(ctx, slog.LevelDebug) {
		stats := utils.AnalyzeImage(work)
		slog.Debug("No symbols found", "mean_luma", stats.MeanLuma, "contrast", stats.Contrast)
	}
	return res, nil
}

// convert maps a backend result into the source image frame and decodes the
// payload with the configured charset.
func (p *Pipeline) convert(r barcode.Result, origin image.Point, factor float64) BarcodeResult {
	mapPt := func(x, y int) Point {
		return Point{
			X: int(math.Round(float64(x-origin.X) * factor)),
			Y: int(math.Round(float64(y-origin.Y) * factor)),
		}
	}

	out := BarcodeResult{
		Type:     r.Symbol,
		Format:   r.Type.String(),
		Value:    r.Value,
		Quality:  r.Quality,
		Rotation: r.Rotation,
		Backend:  r.Backend,
	}
	if len(r.Points) > 0 {
		out.Points = make([]Point, len(r.Points))
		for i, pt := range r.Points {
			out.Points[i] = mapPt(pt.X, pt.Y)
		}
	}
	if !r.BBox.Empty() {
		lo := mapPt(r.BBox.Min.X, r.BBox.Min.Y)
		hi := mapPt(r.BBox.Max.X, r.BBox.Max.Y)
		out.Box = Box{X: lo.X, Y: lo.Y, W: hi.X - lo.X, H: hi.Y - lo.Y}
	}

	if len(r.Raw) > 0 {
		out.Binary = !payload.IsText(r.Raw)
		if p.cfg.Charset != "" {
			text, err := payload.Decode(r.Raw, p.cfg.Charset)
			if err != nil {
				slog.Debug("Payload charset conversion failed, keeping raw text",
					"charset", p.cfg.Charset, "error", err)
			} else {
				out.Value = text
			}
		}
	}
	return out
}

// toWorkRect maps a source-frame rectangle onto the (possibly downscaled)
// working image.
func toWorkRect(r, src, work image.Rectangle, factor float64) image.Rectangle {
	r = r.Add(src.Min).Intersect(src)
	if r.Empty() {
		return image.Rectangle{}
	}
	r = r.Sub(src.Min)
	scale := func(v int) int { return int(math.Round(float64(v) / factor)) }
	return image.Rect(scale(r.Min.X), scale(r.Min.Y), scale(r.Max.X), scale(r.Max.Y)).Add(work.Min)
}

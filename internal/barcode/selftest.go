package barcode

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"

	gozxing "github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/qrcode"

	"github.com/MeKo-Tech/zbargo/internal/zbar"
)

// selfTestPayload is encoded into the probe image of SelfTest.
const selfTestPayload = "zbargo self-test"

// Check is the outcome of one SelfTest step.
type Check struct {
	Name    string
	Detail  string
	Err     error
	Skipped bool
}

// OK reports whether the step passed or was skipped.
func (c Check) OK() bool { return c.Err == nil }

// SelfTest verifies that the native engine is linked and that every backend
// decodes a generated QR code.
func SelfTest(ctx context.Context) []Check {
	var checks []Check

	v, err := zbar.Version()
	switch {
	case err == nil:
		checks = append(checks, Check{Name: "zbar engine", Detail: "version " + v.String()})
	case errors.Is(err, zbar.ErrEngineUnavailable):
		checks = append(checks, Check{Name: "zbar engine", Detail: "not linked (built without cgo)", Skipped: true})
	default:
		checks = append(checks, Check{Name: "zbar engine", Err: err})
	}

	probe, err := selfTestImage()
	if err != nil {
		return append(checks, Check{Name: "probe image", Err: err})
	}

	for _, name := range Backends() {
		if name == BackendZBar && !zbar.Available() {
			checks = append(checks, Check{Name: "backend " + name, Detail: "engine not linked", Skipped: true})
			continue
		}
		checks = append(checks, checkBackend(ctx, name, probe))
	}
	return checks
}

func checkBackend(ctx context.Context, name string, img image.Image) Check {
	c := Check{Name: "backend " + name}
	be, err := NewBackend(name)
	if err != nil {
		c.Err = err
		return c
	}
	defer func() { _ = be.Close() }()

	results, err := be.Decode(ctx, img, Options{Formats: []Format{FormatQR}})
	if err != nil {
		c.Err = fmt.Errorf("decode failed: %w", err)
		return c
	}
	if len(results) != 1 || results[0].Value != selfTestPayload {
		c.Err = fmt.Errorf("decoded %d symbols, want %q", len(results), selfTestPayload)
		return c
	}
	c.Detail = fmt.Sprintf("decoded %s %q", results[0].Symbol, results[0].Value)
	return c
}

// selfTestImage renders selfTestPayload as a 4 pixel per module QR code.
func selfTestImage() (*image.Gray, error) {
	m, err := qrcode.NewQRCodeWriter().Encode(selfTestPayload, gozxing.BarcodeFormat_QR_CODE, 0, 0, nil)
	if err != nil {
		return nil, fmt.Errorf("encode probe: %w", err)
	}
	const scale = 4
	w, h := m.GetWidth(), m.GetHeight()
	img := image.NewGray(image.Rect(0, 0, w*scale, h*scale))
	for y := range h * scale {
		for x := range w * scale {
			c := color.Gray{Y: 0xff}
			if m.Get(x/scale, y/scale) {
				c.Y = 0
			}
			img.SetGray(x, y, c)
		}
	}
	return img, nil
}

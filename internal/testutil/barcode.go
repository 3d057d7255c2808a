package testutil

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	gozxing "github.com/makiuchi-d/gozxing"
	"github.com/makiuchi-d/gozxing/oned"
	"github.com/makiuchi-d/gozxing/qrcode"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// QRCanvas and QRRect place a QR symbol so that its outer modules span
// exactly (34,34)-(479,479) on a 512x512 canvas.
var (
	QRCanvas = image.Rect(0, 0, 512, 512)
	QRRect   = image.Rect(34, 34, 480, 480)
)

// QRModules encodes content as a QR code and returns its module matrix
// without quiet zone.
func QRModules(content string) (*gozxing.BitMatrix, error) {
	hints := map[gozxing.EncodeHintType]interface{}{
		gozxing.EncodeHintType_MARGIN: 0,
	}
	m, err := qrcode.NewQRCodeWriter().Encode(content, gozxing.BarcodeFormat_QR_CODE, 1, 1, hints)
	if err != nil {
		return nil, fmt.Errorf("encode qr %q: %w", content, err)
	}
	return m, nil
}

// PaintMatrix scales m by nearest neighbour into rect on a white canvas.
func PaintMatrix(canvas, rect image.Rectangle, m *gozxing.BitMatrix) *image.Gray {
	img := image.NewGray(canvas)
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)

	mw, mh := m.GetWidth(), m.GetHeight()
	rw, rh := rect.Dx(), rect.Dy()
	for y := 0; y < rh; y++ {
		my := y * mh / rh
		for x := 0; x < rw; x++ {
			if m.Get(x*mw/rw, my) {
				img.SetGray(rect.Min.X+x, rect.Min.Y+y, color.Gray{Y: 0})
			}
		}
	}
	return img
}

// QRImage renders content as a QR code filling QRRect on QRCanvas.
func QRImage(content string) (*image.Gray, error) {
	m, err := QRModules(content)
	if err != nil {
		return nil, err
	}
	return PaintMatrix(QRCanvas, QRRect, m), nil
}

// Code128Image renders content as Code 128 with the writer's default quiet zone.
func Code128Image(content string, width, height int) (*image.Gray, error) {
	m, err := oned.NewCode128Writer().Encode(content, gozxing.BarcodeFormat_CODE_128, width, height, nil)
	if err != nil {
		return nil, fmt.Errorf("encode code128 %q: %w", content, err)
	}
	return PaintMatrix(image.Rect(0, 0, m.GetWidth(), m.GetHeight()), image.Rect(0, 0, m.GetWidth(), m.GetHeight()), m), nil
}

// EAN13Image renders a 12 or 13 digit EAN-13.
func EAN13Image(content string, width, height int) (*image.Gray, error) {
	m, err := oned.NewEAN13Writer().Encode(content, gozxing.BarcodeFormat_EAN_13, width, height, nil)
	if err != nil {
		return nil, fmt.Errorf("encode ean13 %q: %w", content, err)
	}
	return PaintMatrix(image.Rect(0, 0, m.GetWidth(), m.GetHeight()), image.Rect(0, 0, m.GetWidth(), m.GetHeight()), m), nil
}

// BlankImage is a uniformly white luma image.
func BlankImage(width, height int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), image.White, image.Point{}, draw.Src)
	return img
}

// Luma returns the tightly packed pixel rows of img.
func Luma(img *image.Gray) []byte {
	b := img.Bounds()
	if img.Stride == b.Dx() && b.Min == (image.Point{}) {
		return img.Pix[:b.Dx()*b.Dy()]
	}
	out := make([]byte, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		off := img.PixOffset(b.Min.X, y)
		out = append(out, img.Pix[off:off+b.Dx()]...)
	}
	return out
}

// WithCaption pads img at the bottom and writes caption below it.
func WithCaption(img image.Image, caption string) *image.RGBA {
	face := basicfont.Face7x13
	lineHeight := face.Metrics().Height.Ceil()
	b := img.Bounds()

	out := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()+lineHeight+8))
	draw.Draw(out, out.Bounds(), image.White, image.Point{}, draw.Src)
	draw.Draw(out, image.Rect(0, 0, b.Dx(), b.Dy()), img, b.Min, draw.Src)

	d := &font.Drawer{Dst: out, Src: image.Black, Face: face}
	w := font.MeasureString(face, caption).Ceil()
	d.Dot = fixed.P(max((b.Dx()-w)/2, 0), b.Dy()+lineHeight+2)
	d.DrawString(caption)
	return out
}

// Fixture is a generated test image with known content.
type Fixture struct {
	Name      string
	Symbology string
	Content   string
}

// StandardFixtures lists the images written by FixtureDir.
func StandardFixtures() []Fixture {
	return []Fixture{
		{Name: "qr_example", Symbology: "QR-Code", Content: "https://example.org"},
		{Name: "qr_text", Symbology: "QR-Code", Content: "hello zbar"},
		{Name: "code128", Symbology: "CODE-128", Content: "ZBAR-128"},
		{Name: "ean13", Symbology: "EAN-13", Content: "4006381333931"},
		{Name: "blank", Symbology: "", Content: ""},
	}
}

// Render draws the fixture.
func (f Fixture) Render() (image.Image, error) {
	switch f.Symbology {
	case "QR-Code":
		return QRImage(f.Content)
	case "CODE-128":
		return Code128Image(f.Content, 400, 120)
	case "EAN-13":
		return EAN13Image(f.Content, 400, 120)
	case "":
		return BlankImage(320, 240), nil
	default:
		return nil, fmt.Errorf("unknown fixture symbology %q", f.Symbology)
	}
}

// SaveImage saves an image as PNG.
func SaveImage(t *testing.T, img image.Image, path string) {
	t.Helper()
	require.NoError(t, SaveImageFile(img, path))
}

// SaveImageFile is SaveImage for callers without a *testing.T.
func SaveImageFile(img image.Image, path string) error {
	if err := EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	file, err := os.Create(path) //nolint:gosec // G304: test output path
	if err != nil {
		return err
	}
	if err := png.Encode(file, img); err != nil {
		_ = file.Close()
		return err
	}
	return file.Close()
}

// LoadImage loads an image from the specified path.
func LoadImage(t *testing.T, path string) image.Image {
	t.Helper()

	file, err := os.Open(path) //nolint:gosec // G304: test input path
	require.NoError(t, err, "Failed to open image file %s", path)
	defer func() { _ = file.Close() }()

	img, _, err := image.Decode(file)
	require.NoError(t, err, "Failed to decode image")
	return img
}

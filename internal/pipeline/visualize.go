package pipeline

import (
	"fmt"
	"image"
	"image/color"

	"github.com/MeKo-Tech/zbargo/internal/utils"
)

// OverlayStyle controls RenderOverlay colours. Nil colours fall back to the defaults.
type OverlayStyle struct {
	Box     color.Color
	Outline color.Color
	Label   bool
}

// DefaultOverlayStyle draws red boxes, green outlines and labels.
func DefaultOverlayStyle() OverlayStyle {
	return OverlayStyle{
		Box:     color.RGBA{255, 0, 0, 255},
		Outline: color.RGBA{0, 200, 0, 255},
		Label:   true,
	}
}

// RenderOverlay draws each symbol's box and outline over a copy of img.
func RenderOverlay(img image.Image, res *ImageResult, style OverlayStyle) *image.RGBA {
	if img == nil {
		return nil
	}
	dst := utils.CloneRGBA(img)
	if res == nil {
		return dst
	}
	def := DefaultOverlayStyle()
	if style.Box == nil {
		style.Box = def.Box
	}
	if style.Outline == nil {
		style.Outline = def.Outline
	}

	for _, b := range res.Barcodes {
		pts := make([]utils.Point, len(b.Points))
		for i, p := range b.Points {
			pts[i] = utils.Point{X: float64(p.X), Y: float64(p.Y)}
		}

		rect := image.Rect(b.Box.X, b.Box.Y, b.Box.X+b.Box.W, b.Box.Y+b.Box.H)
		if rect.Empty() && len(pts) > 0 {
			rect = utils.BoundingBox(pts).ToRect(dst.Bounds())
		}
		utils.DrawRect(dst, rect, style.Box, 2)

		if len(pts) >= 2 {
			utils.DrawPolygon(dst, utils.Outline(pts), style.Outline, 1)
		}

		if style.Label {
			at := image.Pt(rect.Min.X, rect.Min.Y-16)
			if at.Y < 0 {
				at.Y = rect.Max.Y + 2
			}
			utils.DrawLabel(dst, at, label(b), color.White, style.Box)
		}
	}
	return dst
}

func label(b BarcodeResult) string {
	v := b.Value
	if r := []rune(v); len(r) > 32 {
		v = string(r[:29]) + "..."
	}
	return b.Type + ": " + v
}

// ParseHexColor parses colors like "#RRGGBB" or "RRGGBB".
func ParseHexColor(s string) (color.Color, error) {
	if len(s) > 0 && s[0] == '#' {
		s = s[1:]
	}
	if len(s) != 6 {
		return nil, fmt.Errorf("invalid color %q: want RRGGBB", s)
	}
	var r, g, b uint8
	if _, err := fmt.Sscanf(s, "%02x%02x%02x", &r, &g, &b); err != nil {
		return nil, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.RGBA{r, g, b, 255}, nil
}

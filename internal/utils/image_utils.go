package utils

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// Point represents a 2D coordinate in float space.
type Point struct {
	X float64
	Y float64
}

// Box represents an axis-aligned bounding box in float coordinates.
type Box struct {
	MinX float64
	MinY float64
	MaxX float64
	MaxY float64
}

// Width returns the box width.
func (b Box) Width() float64 { return b.MaxX - b.MinX }

// Height returns the box height.
func (b Box) Height() float64 { return b.MaxY - b.MinY }

// ToRect converts a Box to an image.Rectangle, clamped to image bounds.
func (b Box) ToRect(bounds image.Rectangle) image.Rectangle {
	x1 := clampInt(int(math.Floor(b.MinX)), bounds.Min.X, bounds.Max.X)
	y1 := clampInt(int(math.Floor(b.MinY)), bounds.Min.Y, bounds.Max.Y)
	x2 := clampInt(int(math.Ceil(b.MaxX)), bounds.Min.X, bounds.Max.X)
	y2 := clampInt(int(math.Ceil(b.MaxY)), bounds.Min.Y, bounds.Max.Y)
	return image.Rect(x1, y1, max(x2, x1), max(y2, y1))
}

func clampInt(v, lo, hi int) int {
	return min(max(v, lo), hi)
}

// BoundingBox returns the axis-aligned bounding box for a set of points.
func BoundingBox(pts []Point) Box {
	if len(pts) == 0 {
		return Box{}
	}
	box := Box{MinX: pts[0].X, MinY: pts[0].Y, MaxX: pts[0].X, MaxY: pts[0].Y}
	for _, p := range pts[1:] {
		box.MinX = math.Min(box.MinX, p.X)
		box.MinY = math.Min(box.MinY, p.Y)
		box.MaxX = math.Max(box.MaxX, p.X)
		box.MaxY = math.Max(box.MaxY, p.Y)
	}
	return box
}

// CloneRGBA copies img into a new RGBA image anchored at the origin.
func CloneRGBA(img image.Image) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}

// DrawRect draws an axis-aligned rectangle outline into dst.
func DrawRect(dst *image.RGBA, rect image.Rectangle, col color.Color, thickness int) {
	if thickness < 1 {
		thickness = 1
	}
	rect = rect.Intersect(dst.Bounds())
	if rect.Empty() {
		return
	}
	for t := range thickness {
		for x := rect.Min.X; x < rect.Max.X; x++ {
			dst.Set(x, rect.Min.Y+t, col)
			dst.Set(x, rect.Max.Y-1-t, col)
		}
		for y := rect.Min.Y; y < rect.Max.Y; y++ {
			dst.Set(rect.Min.X+t, y, col)
			dst.Set(rect.Max.X-1-t, y, col)
		}
	}
}

// DrawPolygon draws connected line segments and closes the polygon.
func DrawPolygon(dst *image.RGBA, pts []Point, col color.Color, thickness int) {
	if len(pts) < 2 {
		return
	}
	ip := make([]image.Point, len(pts))
	for i, p := range pts {
		ip[i] = image.Pt(int(math.Round(p.X)), int(math.Round(p.Y)))
	}
	for i := range ip {
		drawLine(dst, ip[i], ip[(i+1)%len(ip)], col, thickness)
	}
}

// DrawLabel writes text with its top-left corner at at, on a filled
// background so it stays legible over barcode modules.
func DrawLabel(dst *image.RGBA, at image.Point, text string, fg, bg color.Color) {
	if text == "" {
		return
	}
	face := basicfont.Face7x13
	d := &font.Drawer{Dst: dst, Src: image.NewUniform(fg), Face: face}
	width := d.MeasureString(text).Ceil()
	height := face.Metrics().Height.Ceil()

	box := image.Rect(at.X, at.Y, at.X+width+2, at.Y+height+2).Intersect(dst.Bounds())
	draw.Draw(dst, box, image.NewUniform(bg), image.Point{}, draw.Src)

	d.Dot = fixed.P(at.X+1, at.Y+1+face.Metrics().Ascent.Ceil())
	d.DrawString(text)
}

// drawLine draws a line between two points using Bresenham.
func drawLine(dst *image.RGBA, a, b image.Point, col color.Color, thickness int) {
	x0, y0 := a.X, a.Y
	dx := abs(b.X - x0)
	dy := -abs(b.Y - y0)
	sx, sy := -1, -1
	if x0 < b.X {
		sx = 1
	}
	if y0 < b.Y {
		sy = 1
	}
	err := dx + dy
	for {
		drawThickPoint(dst, x0, y0, col, thickness)
		if x0 == b.X && y0 == b.Y {
			return
		}
		e2 := 2 * err
		if e2 >= dy {
			err += dy
			x0 += sx
		}
		if e2 <= dx {
			err += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func drawThickPoint(dst *image.RGBA, x, y int, col color.Color, thickness int) {
	r := (max(thickness, 1) - 1) / 2
	for yy := y - r; yy <= y+r; yy++ {
		for xx := x - r; xx <= x+r; xx++ {
			if image.Pt(xx, yy).In(dst.Bounds()) {
				dst.Set(xx, yy, col)
			}
		}
	}
}

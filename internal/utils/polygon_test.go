package utils

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConvexHull(t *testing.T) {
	tests := []struct {
		name   string
		points []Point
		want   int
	}{
		{"empty input", []Point{}, 0},
		{"single point", []Point{{5, 5}}, 1},
		{"two points", []Point{{0, 0}, {10, 10}}, 2},
		{"duplicates", []Point{{1, 1}, {1, 1}, {1, 1}}, 1},
		{"triangle", []Point{{0, 0}, {10, 0}, {5, 10}}, 3},
		{"square with interior point", []Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}, {5, 5}}, 4},
		{"collinear points", []Point{{0, 0}, {1, 0}, {2, 0}, {3, 0}, {4, 0}}, 2},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Len(t, ConvexHull(tt.points), tt.want)
		})
	}
}

func TestConvexHull_Rectangle(t *testing.T) {
	points := []Point{
		{0, 0}, {10, 0}, {10, 10}, {0, 10},
		{5, 0}, {10, 5}, {5, 10}, {0, 5},
		{5, 5}, {3, 3}, {7, 7},
	}
	hull := ConvexHull(points)
	require.Len(t, hull, 4)
	for _, c := range []Point{{0, 0}, {10, 0}, {10, 10}, {0, 10}} {
		require.Contains(t, hull, c)
	}
}

func TestMinimumAreaRectangle(t *testing.T) {
	require.Empty(t, MinimumAreaRectangle(nil))
	require.Len(t, MinimumAreaRectangle([]Point{{5, 5}}), 4)
	require.Len(t, MinimumAreaRectangle([]Point{{0, 0}, {10, 5}}), 4)

	rect := MinimumAreaRectangle([]Point{{1, 1}, {9, 1}, {9, 6}, {1, 6}, {4, 3}})
	require.Len(t, rect, 4)
	box := BoundingBox(rect)
	require.InDelta(t, 1, box.MinX, 1e-6)
	require.InDelta(t, 9, box.MaxX, 1e-6)
	require.InDelta(t, 6, box.MaxY, 1e-6)
}

func TestMinimumAreaRectangle_Rotated(t *testing.T) {
	// a diamond's minimum rectangle is the diamond itself
	rect := MinimumAreaRectangle([]Point{{5, 0}, {10, 5}, {5, 10}, {0, 5}, {5, 5}})
	require.Len(t, rect, 4)
	area := math.Hypot(rect[1].X-rect[0].X, rect[1].Y-rect[0].Y) *
		math.Hypot(rect[2].X-rect[1].X, rect[2].Y-rect[1].Y)
	require.InDelta(t, 50, area, 1e-6)
}

func TestOutline(t *testing.T) {
	quad := []Point{{0, 0}, {4, 0}, {4, 4}, {0, 4}}
	require.Equal(t, quad, Outline(quad))

	// scan line hits of a horizontal 1D code
	var cloud []Point
	for y := 10; y <= 30; y += 5 {
		cloud = append(cloud, Point{X: 20, Y: float64(y)}, Point{X: 180, Y: float64(y)})
	}
	out := Outline(cloud)
	require.Len(t, out, 4)
	box := BoundingBox(out)
	require.InDelta(t, 20, box.MinX, 1e-6)
	require.InDelta(t, 180, box.MaxX, 1e-6)
	require.InDelta(t, 10, box.MinY, 1e-6)
	require.InDelta(t, 30, box.MaxY, 1e-6)
}

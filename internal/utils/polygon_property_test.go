package utils

import (
	"math"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

// genPoint generates a random point.
func genPoint() gopter.Gen {
	return gopter.CombineGens(
		gen.Float64Range(-100, 100),
		gen.Float64Range(-100, 100),
	).Map(func(vals []interface{}) Point {
		return Point{X: vals[0].(float64), Y: vals[1].(float64)}
	})
}

func TestConvexHull_ContainsAllPoints(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("every input lies inside or on the hull", prop.ForAll(
		func(points []Point) bool {
			hull := ConvexHull(points)
			if len(hull) < 3 {
				return true
			}
			for _, p := range points {
				for i := range hull {
					if cross(hull[i], hull[(i+1)%len(hull)], p) < -1e-6 {
						return false
					}
				}
			}
			return true
		},
		gen.SliceOfN(12, genPoint()),
	))

	properties.TestingRun(t)
}

func TestConvexHull_Idempotence(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("hull of a hull is the same size", prop.ForAll(
		func(points []Point) bool {
			hull := ConvexHull(points)
			return len(ConvexHull(hull)) == len(hull)
		},
		gen.SliceOfN(10, genPoint()),
	))

	properties.TestingRun(t)
}

func TestMinimumAreaRectangle_EnclosesPoints(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("rectangle area never exceeds the bounding box", prop.ForAll(
		func(points []Point) bool {
			rect := MinimumAreaRectangle(points)
			if len(rect) != 4 {
				return false
			}
			box := BoundingBox(points)
			w := dist(rect[0], rect[1])
			h := dist(rect[1], rect[2])
			return w*h <= box.Width()*box.Height()+1e-6
		},
		gen.SliceOfN(8, genPoint()),
	))

	properties.TestingRun(t)
}

func dist(a, b Point) float64 {
	dx, dy := a.X-b.X, a.Y-b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

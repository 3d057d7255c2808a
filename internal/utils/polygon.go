package utils

import (
	"math"
	"sort"
)

// Outline reduces a point cloud to a drawable closed shape. Linear symbols
// report one point per successful scan line, so anything with more than four
// points collapses to its minimum-area rectangle.
func Outline(pts []Point) []Point {
	if len(pts) <= 4 {
		return append([]Point(nil), pts...)
	}
	return MinimumAreaRectangle(pts)
}

// ConvexHull computes the convex hull of a set of points using the
// monotone chain algorithm. Returns the hull in CCW order without
// duplicating the first point at the end.
func ConvexHull(pts []Point) []Point {
	if len(pts) <= 1 {
		return append([]Point(nil), pts...)
	}
	p := make([]Point, len(pts))
	copy(p, pts)
	sort.Slice(p, func(i, j int) bool {
		if p[i].X == p[j].X {
			return p[i].Y < p[j].Y
		}
		return p[i].X < p[j].X
	})
	p = removeDuplicatePoints(p)
	if len(p) <= 1 {
		return p
	}

	lower := halfHull(p, 0, len(p), 1)
	upper := halfHull(p, len(p)-1, -1, -1)
	hull := make([]Point, 0, len(lower)+len(upper)-2)
	hull = append(hull, lower[:len(lower)-1]...)
	hull = append(hull, upper[:len(upper)-1]...)
	return hull
}

func removeDuplicatePoints(p []Point) []Point {
	q := p[:1]
	for _, pt := range p[1:] {
		if last := q[len(q)-1]; pt != last {
			q = append(q, pt)
		}
	}
	return q
}

// halfHull walks sorted points from start towards stop.
func halfHull(p []Point, start, stop, step int) []Point {
	h := make([]Point, 0, len(p))
	for i := start; i != stop; i += step {
		for len(h) >= 2 && cross(h[len(h)-2], h[len(h)-1], p[i]) <= 0 {
			h = h[:len(h)-1]
		}
		h = append(h, p[i])
	}
	return h
}

func cross(o, a, b Point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// MinimumAreaRectangle computes the minimum-area enclosing rectangle using
// rotating calipers over the convex hull. Returns 4 points in CCW order.
func MinimumAreaRectangle(pts []Point) []Point {
	hull := ConvexHull(pts)
	switch len(hull) {
	case 0:
		return nil
	case 1:
		p := hull[0]
		return []Point{p, {p.X + 1, p.Y}, {p.X + 1, p.Y + 1}, {p.X, p.Y + 1}}
	case 2:
		a, b := hull[0], hull[1]
		return []Point{a, b, {b.X, b.Y + 1}, {a.X, a.Y + 1}}
	}

	bestArea := math.Inf(1)
	var bestU, bestV Point
	var minS, maxS, minT, maxT float64
	for i := range hull {
		a, b := hull[i], hull[(i+1)%len(hull)]
		l := math.Hypot(b.X-a.X, b.Y-a.Y)
		if l == 0 {
			continue
		}
		u := Point{(b.X - a.X) / l, (b.Y - a.Y) / l}
		v := Point{-u.Y, u.X}

		s0, s1 := math.Inf(1), math.Inf(-1)
		t0, t1 := math.Inf(1), math.Inf(-1)
		for _, p := range hull {
			s := p.X*u.X + p.Y*u.Y
			t := p.X*v.X + p.Y*v.Y
			s0, s1 = math.Min(s0, s), math.Max(s1, s)
			t0, t1 = math.Min(t0, t), math.Max(t1, t)
		}
		if area := (s1 - s0) * (t1 - t0); area < bestArea {
			bestArea = area
			bestU, bestV = u, v
			minS, maxS, minT, maxT = s0, s1, t0, t1
		}
	}

	corner := func(s, t float64) Point {
		return Point{X: bestU.X*s + bestV.X*t, Y: bestU.Y*s + bestV.Y*t}
	}
	return []Point{corner(minS, minT), corner(maxS, minT), corner(maxS, maxT), corner(minS, maxT)}
}

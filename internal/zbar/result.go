package zbar

import (
	"image"
	"unicode/utf8"
	"unsafe"
)

// Point is a vertex of a symbol's location polygon, in image pixels.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// Result is one decoded symbol. It holds no engine memory.
type Result struct {
	Type        SymbolType  `json:"type"`
	Data        []byte      `json:"data"`
	Quality     int         `json:"quality"`
	Orientation Orientation `json:"orientation"`
	Modifiers   Modifiers   `json:"modifiers,omitempty"`
	Configs     uint        `json:"configs,omitempty"`
	Points      []Point     `json:"points,omitempty"`
}

// Text returns the payload as a string; invalid UTF-8 is kept byte for byte.
func (r Result) Text() string { return string(r.Data) }

// IsUTF8 reports whether the payload is valid UTF-8.
func (r Result) IsUTF8() bool { return utf8.Valid(r.Data) }

// Bounds returns the minimum and maximum coordinates over Points.
func (r Result) Bounds() (lo, hi Point) {
	if len(r.Points) == 0 {
		return Point{}, Point{}
	}
	lo, hi = r.Points[0], r.Points[0]
	for _, p := range r.Points[1:] {
		lo.X, lo.Y = min(lo.X, p.X), min(lo.Y, p.Y)
		hi.X, hi.Y = max(hi.X, p.X), max(hi.Y, p.Y)
	}
	return lo, hi
}

// Rect is the half-open rectangle covering Points.
func (r Result) Rect() image.Rectangle {
	if len(r.Points) == 0 {
		return image.Rectangle{}
	}
	lo, hi := r.Bounds()
	return image.Rect(lo.X, lo.Y, hi.X+1, hi.Y+1)
}

// extractSymbols walks the engine's symbol chain for img. It must run before
// the image is destroyed or rescanned, since the chain lives inside it.
func extractSymbols(eng engine, img unsafe.Pointer) []Result {
	results := []Result{}
	for sym := eng.firstSymbol(img); sym != nil; sym = eng.symbolNext(sym) {
		r := Result{
			Type:        eng.symbolType(sym),
			Quality:     eng.symbolQuality(sym),
			Orientation: eng.symbolOrientation(sym),
			Modifiers:   eng.symbolModifiers(sym),
			Configs:     eng.symbolConfigs(sym),
		}
		if n := eng.symbolLocSize(sym); n > 0 {
			r.Points = make([]Point, n)
			for i := range n {
				x, y := eng.symbolLoc(sym, i)
				r.Points[i] = Point{X: x, Y: y}
			}
		}
		r.Data = adoptPayload(eng.symbolData(sym))
		results = append(results, r)
	}
	return results
}

// adoptPayload takes ownership of an engine payload region of exactly n
// bytes. The Go collector cannot own C heap memory, so ownership is taken by
// copying; the engine frees its region with the image.
func adoptPayload(p unsafe.Pointer, n int) []byte {
	if p == nil || n <= 0 {
		return []byte{}
	}
	out := make([]byte, n)
	copy(out, unsafe.Slice((*byte)(p), n))
	return out
}

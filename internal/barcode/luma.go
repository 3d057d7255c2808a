package barcode

import (
	"image"

	"github.com/disintegration/imaging"

	"github.com/MeKo-Tech/zbargo/internal/mempool"
)

// lumaOf converts img to tightly packed 8-bit luma in a pooled buffer.
// Transparent pixels are composited onto white. Return the buffer with
// mempool.PutBytes.
func lumaOf(img image.Image) ([]byte, int, int) {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	buf := mempool.GetBytes(w * h)

	if src, ok := img.(*image.Gray); ok {
		for y := range h {
			off := src.PixOffset(b.Min.X, b.Min.Y+y)
			copy(buf[y*w:(y+1)*w], src.Pix[off:off+w])
		}
		return buf, w, h
	}

	g := imaging.Grayscale(img)
	for i := range w * h {
		v, a := uint32(g.Pix[i*4]), uint32(g.Pix[i*4+3])
		buf[i] = uint8((v*a + 255*(255-a)) / 255)
	}
	return buf, w, h
}

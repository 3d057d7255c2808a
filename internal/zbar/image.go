package zbar

import (
	"runtime"
	"sync"
	"unsafe"
)

// Image is a pixel buffer handed to the engine for one or more decode passes.
// Attached pixel memory belongs to the engine until it calls the release
// function supplied with it.
type Image struct {
	mu      sync.Mutex
	eng     engine
	handle  unsafe.Pointer
	width   uint32
	height  uint32
	format  Format
	hasData bool
	cleanup runtime.Cleanup
}

type imageRef struct {
	eng    engine
	handle unsafe.Pointer
}

// NewImage creates an empty image with the given geometry and format.
func NewImage(width, height uint32, format Format) (*Image, error) {
	return newImage(native, width, height, format)
}

func newImage(eng engine, width, height uint32, format Format) (*Image, error) {
	h := eng.imageCreate()
	if h == nil {
		return nil, creationError(eng, "zbar_image_create")
	}
	eng.imageSetFormat(h, format)
	eng.imageSetSize(h, width, height)

	img := &Image{eng: eng, handle: h, width: width, height: height, format: format}
	img.cleanup = runtime.AddCleanup(img, func(r imageRef) { r.eng.imageDestroy(r.handle) }, imageRef{eng, h})
	return img, nil
}

// Width returns the image width in pixels.
func (i *Image) Width() uint32 { return i.width }

// Height returns the image height in pixels.
func (i *Image) Height() uint32 { return i.height }

// Format returns the pixel format code.
func (i *Image) Format() Format { return i.format }

// SetSize changes the declared geometry.
func (i *Image) SetSize(width, height uint32) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.handle == nil {
		return newError("zbar_image_set_size", 0, ErrDestroyed)
	}
	i.eng.imageSetSize(i.handle, width, height)
	i.width, i.height = width, height
	return nil
}

// SetFormat changes the pixel format code.
func (i *Image) SetFormat(f Format) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.handle == nil {
		return newError("zbar_image_set_format", 0, ErrDestroyed)
	}
	i.eng.imageSetFormat(i.handle, f)
	i.format = f
	return nil
}

// SetCrop limits decoding to a sub-rectangle. The engine clamps it to the
// image bounds.
func (i *Image) SetCrop(x, y, width, height uint32) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.handle == nil {
		return newError("zbar_image_set_crop", 0, ErrDestroyed)
	}
	i.eng.imageSetCrop(i.handle, x, y, width, height)
	return nil
}

// AttachData hands data to the engine. release, if non-nil, runs exactly once
// when the engine drops the buffer: when another buffer replaces it or when
// the image is destroyed. The caller must not assume the engine saw more than
// len(data) bytes; geometry mismatches are the caller's responsibility.
func (i *Image) AttachData(data []byte, release ReleaseFunc) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.handle == nil {
		return newError("zbar_image_set_data", 0, ErrDestroyed)
	}
	i.eng.imageSetData(i.handle, data, release)
	i.hasData = true
	return nil
}

// HasData reports whether a buffer is attached.
func (i *Image) HasData() bool {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.hasData
}

// Destroy releases the native image and any attached buffer. Calling it
// again is a no-op.
func (i *Image) Destroy() {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.handle == nil {
		return
	}
	i.cleanup.Stop()
	i.eng.imageDestroy(i.handle)
	i.handle = nil
	i.hasData = false
}

// Close implements io.Closer.
func (i *Image) Close() error {
	i.Destroy()
	return nil
}

func (i *Image) destroyed() bool { return i.handle == nil }

package zbar

import (
	"fmt"
	"unsafe"
)

// ReleaseFunc is told when the engine has finished with an attached pixel
// buffer. It receives the slice that was attached and runs exactly once.
type ReleaseFunc func(data []byte)

// engine is the foreign boundary. Handles are opaque pointers owned by the
// engine; a nil handle means creation failed.
type engine interface {
	version() (major, minor, patch uint, ok bool)
	setVerbosity(level int)

	scannerCreate() unsafe.Pointer
	scannerDestroy(s unsafe.Pointer)
	scannerSetConfig(s unsafe.Pointer, sym SymbolType, opt ConfigOption, value int) int
	scannerParseConfig(s unsafe.Pointer, cfg string) int
	scannerEnableCache(s unsafe.Pointer, enable bool)
	scanImage(s, img unsafe.Pointer) int

	imageCreate() unsafe.Pointer
	imageDestroy(img unsafe.Pointer)
	imageSetFormat(img unsafe.Pointer, f Format)
	imageSetSize(img unsafe.Pointer, width, height uint32)
	imageSetCrop(img unsafe.Pointer, x, y, width, height uint32)
	// imageSetData hands data to the engine; release fires when the engine
	// drops it (replacement or image destruction).
	imageSetData(img unsafe.Pointer, data []byte, release ReleaseFunc)

	firstSymbol(img unsafe.Pointer) unsafe.Pointer
	symbolNext(sym unsafe.Pointer) unsafe.Pointer
	symbolType(sym unsafe.Pointer) SymbolType
	symbolQuality(sym unsafe.Pointer) int
	symbolOrientation(sym unsafe.Pointer) Orientation
	symbolModifiers(sym unsafe.Pointer) Modifiers
	symbolConfigs(sym unsafe.Pointer) uint
	symbolLocSize(sym unsafe.Pointer) int
	symbolLoc(sym unsafe.Pointer, i int) (x, y int)
	// symbolData returns the engine-owned payload region.
	symbolData(sym unsafe.Pointer) (unsafe.Pointer, int)
}

// native is the engine linked into this binary.
var native engine = newNativeEngine()

// unavailable marks an engine that can never create handles.
type unavailable interface{ unavailable() }

func creationError(eng engine, op string) error {
	if _, ok := eng.(unavailable); ok {
		return newError(op, 0, fmt.Errorf("%w: %w", ErrInitializationFailed, ErrEngineUnavailable))
	}
	return newError(op, 0, ErrInitializationFailed)
}

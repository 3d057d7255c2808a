//go:build cgo && !nozbar

package zbar

/*
#cgo pkg-config: zbar
#include <stdint.h>
#include <stdlib.h>
#include <zbar.h>

extern void goReleaseImageData(uintptr_t handle);

// The engine calls this with img->data still set, on replacement or destroy.
static void zbarReleaseTrampoline(zbar_image_t *img) {
	void *data = (void *)zbar_image_get_data(img);
	uintptr_t handle = (uintptr_t)zbar_image_get_userdata(img);
	zbar_image_set_userdata(img, NULL);
	free(data);
	goReleaseImageData(handle);
}

// set_data releases any previous buffer through its own handle before the
// new handle is stored.
static void zbarSetData(zbar_image_t *img, void *data, unsigned long len, uintptr_t handle) {
	zbar_image_set_data(img, data, len, zbarReleaseTrampoline);
	zbar_image_set_userdata(img, (void *)handle);
}

static int zbarVersion(unsigned *major, unsigned *minor, unsigned *patch) {
	return zbar_version(major, minor, patch);
}
*/
import "C"

import (
	"runtime/cgo"
	"unsafe"
)

type cgoEngine struct{}

func newNativeEngine() engine { return cgoEngine{} }

// pendingRelease is what the cgo.Handle stored on an image points at.
type pendingRelease struct {
	data    []byte
	release ReleaseFunc
}

func (cgoEngine) version() (uint, uint, uint, bool) {
	var major, minor, patch C.uint
	if C.zbarVersion(&major, &minor, &patch) != 0 {
		return 0, 0, 0, false
	}
	return uint(major), uint(minor), uint(patch), true
}

func (cgoEngine) setVerbosity(level int) { C.zbar_set_verbosity(C.int(level)) }

func (cgoEngine) scannerCreate() unsafe.Pointer {
	return unsafe.Pointer(C.zbar_image_scanner_create())
}

func (cgoEngine) scannerDestroy(s unsafe.Pointer) {
	C.zbar_image_scanner_destroy((*C.zbar_image_scanner_t)(s))
}

func (cgoEngine) scannerSetConfig(s unsafe.Pointer, sym SymbolType, opt ConfigOption, value int) int {
	return int(C.zbar_image_scanner_set_config(
		(*C.zbar_image_scanner_t)(s),
		C.zbar_symbol_type_t(sym),
		C.zbar_config_t(opt),
		C.int(value),
	))
}

func (cgoEngine) scannerParseConfig(s unsafe.Pointer, cfg string) int {
	cs := C.CString(cfg)
	defer C.free(unsafe.Pointer(cs))
	return int(C.zbar_image_scanner_parse_config((*C.zbar_image_scanner_t)(s), cs))
}

func (cgoEngine) scannerEnableCache(s unsafe.Pointer, enable bool) {
	var v C.int
	if enable {
		v = 1
	}
	C.zbar_image_scanner_enable_cache((*C.zbar_image_scanner_t)(s), v)
}

func (cgoEngine) scanImage(s, img unsafe.Pointer) int {
	return int(C.zbar_scan_image((*C.zbar_image_scanner_t)(s), (*C.zbar_image_t)(img)))
}

func (cgoEngine) imageCreate() unsafe.Pointer {
	return unsafe.Pointer(C.zbar_image_create())
}

func (cgoEngine) imageDestroy(img unsafe.Pointer) {
	C.zbar_image_destroy((*C.zbar_image_t)(img))
}

func (cgoEngine) imageSetFormat(img unsafe.Pointer, f Format) {
	C.zbar_image_set_format((*C.zbar_image_t)(img), C.ulong(f))
}

func (cgoEngine) imageSetSize(img unsafe.Pointer, width, height uint32) {
	C.zbar_image_set_size((*C.zbar_image_t)(img), C.uint(width), C.uint(height))
}

func (cgoEngine) imageSetCrop(img unsafe.Pointer, x, y, width, height uint32) {
	C.zbar_image_set_crop((*C.zbar_image_t)(img), C.uint(x), C.uint(y), C.uint(width), C.uint(height))
}

// imageSetData copies data into C memory: the engine keeps the pointer past
// this call, which Go memory may not be. The trampoline frees the copy and
// then runs release with the caller's slice.
func (cgoEngine) imageSetData(img unsafe.Pointer, data []byte, release ReleaseFunc) {
	n := len(data)
	buf := C.malloc(C.size_t(max(n, 1)))
	if n > 0 {
		copy(unsafe.Slice((*byte)(buf), n), data)
	}
	h := cgo.NewHandle(&pendingRelease{data: data, release: release})
	C.zbarSetData((*C.zbar_image_t)(img), buf, C.ulong(n), C.uintptr_t(h))
}

func (cgoEngine) firstSymbol(img unsafe.Pointer) unsafe.Pointer {
	return unsafe.Pointer(C.zbar_image_first_symbol((*C.zbar_image_t)(img)))
}

func (cgoEngine) symbolNext(sym unsafe.Pointer) unsafe.Pointer {
	return unsafe.Pointer(C.zbar_symbol_next((*C.zbar_symbol_t)(sym)))
}

func (cgoEngine) symbolType(sym unsafe.Pointer) SymbolType {
	return SymbolType(C.zbar_symbol_get_type((*C.zbar_symbol_t)(sym)))
}

func (cgoEngine) symbolQuality(sym unsafe.Pointer) int {
	return int(C.zbar_symbol_get_quality((*C.zbar_symbol_t)(sym)))
}

func (cgoEngine) symbolOrientation(sym unsafe.Pointer) Orientation {
	return Orientation(C.zbar_symbol_get_orientation((*C.zbar_symbol_t)(sym)))
}

func (cgoEngine) symbolModifiers(sym unsafe.Pointer) Modifiers {
	return Modifiers(C.zbar_symbol_get_modifiers((*C.zbar_symbol_t)(sym)))
}

func (cgoEngine) symbolConfigs(sym unsafe.Pointer) uint {
	return uint(C.zbar_symbol_get_configs((*C.zbar_symbol_t)(sym)))
}

func (cgoEngine) symbolLocSize(sym unsafe.Pointer) int {
	return int(C.zbar_symbol_get_loc_size((*C.zbar_symbol_t)(sym)))
}

func (cgoEngine) symbolLoc(sym unsafe.Pointer, i int) (int, int) {
	p := (*C.zbar_symbol_t)(sym)
	return int(C.zbar_symbol_get_loc_x(p, C.uint(i))), int(C.zbar_symbol_get_loc_y(p, C.uint(i)))
}

func (cgoEngine) symbolData(sym unsafe.Pointer) (unsafe.Pointer, int) {
	p := (*C.zbar_symbol_t)(sym)
	return unsafe.Pointer(C.zbar_symbol_get_data(p)), int(C.zbar_symbol_get_data_length(p))
}

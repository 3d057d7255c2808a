//go:build cgo && !nozbar

package zbar

/*
#include <stdint.h>
*/
import "C"

import "runtime/cgo"

//export goReleaseImageData
func goReleaseImageData(handle C.uintptr_t) {
	if handle == 0 {
		return
	}
	h := cgo.Handle(handle)
	p := h.Value().(*pendingRelease)
	h.Delete()
	if p.release != nil {
		p.release(p.data)
	}
}

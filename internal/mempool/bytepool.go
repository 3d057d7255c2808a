package mempool

import (
	"sync"
)

// Sized pools for luma pixel buffers handed to the decoder.

var bytePools sync.Map // key: size class (int), value: *sync.Pool

const classStep = 64 << 10

// sizeClass rounds n up to the next multiple of 64 KiB.
func sizeClass(n int) int {
	if n <= classStep {
		return classStep
	}
	r := (n + classStep - 1) / classStep
	return r * classStep
}

func poolFor(cls int) *sync.Pool {
	pAny, _ := bytePools.LoadOrStore(cls, &sync.Pool{New: func() any { return make([]byte, cls) }})
	return pAny.(*sync.Pool)
}

// GetBytes retrieves a buffer of length n. Contents are not zeroed.
// The caller must return it via PutBytes when done.
func GetBytes(n int) []byte {
	cls := sizeClass(n)
	buf, ok := poolFor(cls).Get().([]byte)
	if !ok || cap(buf) < cls {
		buf = make([]byte, cls)
	}
	return buf[:n]
}

// PutBytes returns a buffer to the pool. It is safe to pass a nil slice.
// Buffers that did not come from GetBytes are accepted when their capacity
// is an exact size class and dropped otherwise.
func PutBytes(buf []byte) {
	if buf == nil || cap(buf) != sizeClass(cap(buf)) {
		return
	}
	poolFor(cap(buf)).Put(buf[:cap(buf)]) //nolint:staticcheck
}

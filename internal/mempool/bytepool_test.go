package mempool

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSizeClass(t *testing.T) {
	tests := []struct {
		name     string
		input    int
		expected int
	}{
		{name: "zero size", input: 0, expected: classStep},
		{name: "negative size", input: -1, expected: classStep},
		{name: "small size gets minimum", input: 1, expected: classStep},
		{name: "exactly one step", input: classStep, expected: classStep},
		{name: "just over one step", input: classStep + 1, expected: 2 * classStep},
		{name: "VGA luma", input: 640 * 480, expected: 5 * classStep},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sizeClass(tt.input))
		})
	}
}

func TestGetBytesLength(t *testing.T) {
	for _, n := range []int{0, 1, 512 * 512, 640*480 + 3} {
		buf := GetBytes(n)
		require.Len(t, buf, n)
		assert.Equal(t, sizeClass(n), cap(buf))
		PutBytes(buf)
	}
}

func TestPutBytesIgnoresForeignCapacity(t *testing.T) {
	assert.NotPanics(t, func() {
		PutBytes(nil)
		PutBytes(make([]byte, 10))
	})
}

func TestBytePoolConcurrentUse(t *testing.T) {
	var wg sync.WaitGroup
	for g := range 8 {
		wg.Add(1)
		go func(seed byte) {
			defer wg.Done()
			for range 50 {
				buf := GetBytes(320 * 240)
				for i := range buf {
					buf[i] = seed
				}
				for _, v := range buf {
					if v != seed {
						t.Errorf("buffer shared between goroutines")
						return
					}
				}
				PutBytes(buf)
			}
		}(byte(g))
	}
	wg.Wait()
}

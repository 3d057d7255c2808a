package benchmark

import (
	"bytes"
	"context"
	"errors"
	"image"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/zbargo/internal/barcode"
	"github.com/MeKo-Tech/zbargo/internal/testutil"
	"github.com/MeKo-Tech/zbargo/internal/zbar"
)

func qrInput(t *testing.T, content string) Input {
	t.Helper()
	img, err := testutil.QRImage(content)
	require.NoError(t, err)
	return Input{Name: content, Image: img}
}

func TestTimer(t *testing.T) {
	timer := NewTimer()
	time.Sleep(2 * time.Millisecond)
	assert.GreaterOrEqual(t, timer.Elapsed(), 2*time.Millisecond)
}

func TestResultAverages(t *testing.T) {
	r := Result{Backend: "gozxing", Iterations: 4, Duration: 8 * time.Millisecond, AllocBytes: 400}
	assert.Equal(t, 2*time.Millisecond, r.Average())
	assert.Equal(t, uint64(100), r.AllocPerOp())
	assert.Contains(t, r.String(), "gozxing: 4 iterations")

	var empty Result
	assert.Zero(t, empty.Average())
	assert.Zero(t, empty.AllocPerOp())

	assert.Equal(t, "zbar: skipped", Result{Backend: "zbar", Skipped: true}.String())
	assert.Contains(t, Result{Backend: "zbar", Err: errors.New("boom")}.String(), "FAILED (boom)")
}

func TestComparisonFastestAndSpeedup(t *testing.T) {
	c := Comparison{Results: []Result{
		{Backend: barcode.BackendZBar, Iterations: 1, Duration: time.Millisecond},
		{Backend: barcode.BackendGozxing, Iterations: 1, Duration: 4 * time.Millisecond},
	}}
	best, ok := c.Fastest()
	require.True(t, ok)
	assert.Equal(t, barcode.BackendZBar, best.Backend)

	s, ok := c.Speedup(barcode.BackendZBar, barcode.BackendGozxing)
	require.True(t, ok)
	assert.InDelta(t, 4.0, s, 1e-9)

	skipped := Comparison{Results: []Result{{Backend: barcode.BackendZBar, Skipped: true}}}
	_, ok = skipped.Fastest()
	assert.False(t, ok)
	_, ok = skipped.Speedup(barcode.BackendZBar, barcode.BackendGozxing)
	assert.False(t, ok)
}

func TestRunGozxing(t *testing.T) {
	r := NewRunner()
	r.Backends = []string{barcode.BackendGozxing}
	r.Iterations = 2

	comps, err := r.Run(context.Background(), []Input{qrInput(t, "bench one"), qrInput(t, "bench two")})
	require.NoError(t, err)
	require.Len(t, comps, 2)
	for _, c := range comps {
		require.Len(t, c.Results, 1)
		res := c.Results[0]
		require.NoError(t, res.Err)
		assert.Equal(t, barcode.BackendGozxing, res.Backend)
		assert.Equal(t, 2, res.Iterations)
		assert.Equal(t, 1, res.Symbols)
		assert.Positive(t, res.Duration)
	}
}

func TestRunSkipsUnlinkedEngine(t *testing.T) {
	if zbar.Available() {
		t.Skip("zbar engine is linked")
	}
	r := NewRunner()
	r.Iterations = 1
	comps, err := r.Run(context.Background(), []Input{qrInput(t, "skip")})
	require.NoError(t, err)
	require.Len(t, comps[0].Results, 2)
	assert.True(t, comps[0].Results[0].Skipped)
	assert.False(t, comps[0].Results[1].Skipped)
}

func TestRunValidation(t *testing.T) {
	r := NewRunner()
	_, err := r.Run(context.Background(), nil)
	require.ErrorIs(t, err, ErrNoImages)

	r.Iterations = 0
	_, err = r.Run(context.Background(), []Input{{Name: "blank", Image: image.NewGray(image.Rect(0, 0, 8, 8))}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "iterations must be positive")
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := NewRunner()
	r.Backends = []string{barcode.BackendGozxing}
	_, err := r.Run(ctx, []Input{qrInput(t, "cancelled")})
	require.ErrorIs(t, err, context.Canceled)
}

func TestWriteReport(t *testing.T) {
	comps := []Comparison{{
		Image:  "label.png",
		Bounds: image.Rect(0, 0, 200, 100),
		Results: []Result{
			{Backend: barcode.BackendZBar, Iterations: 2, Duration: 2 * time.Millisecond, Symbols: 1},
			{Backend: barcode.BackendGozxing, Iterations: 2, Duration: 6 * time.Millisecond, Symbols: 1},
		},
	}, {
		Image:   "other.png",
		Bounds:  image.Rect(0, 0, 10, 10),
		Results: []Result{{Backend: barcode.BackendZBar, Skipped: true}},
	}}

	var buf bytes.Buffer
	require.NoError(t, WriteReport(&buf, comps))
	out := buf.String()
	assert.Contains(t, out, "IMAGE")
	assert.Contains(t, out, "200x100")
	assert.Contains(t, out, "skipped")
	assert.Contains(t, out, "label.png: zbar is 3.00x the speed of gozxing")
	assert.Contains(t, out, "label.png: fastest backend zbar")
	assert.NotContains(t, out, "other.png: fastest")
}

func BenchmarkGozxingQR(b *testing.B) {
	img, err := testutil.QRImage("benchmark")
	require.NoError(b, err)
	pl, err := NewRunner().Builder.WithBackend(barcode.BackendGozxing).Build()
	require.NoError(b, err)
	defer func() { _ = pl.Close() }()

	b.ResetTimer()
	for range b.N {
		if _, err := pl.ProcessImageContext(context.Background(), img); err != nil {
			b.Fatal(err)
		}
	}
}

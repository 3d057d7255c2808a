package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/zbargo/internal/barcode"
	"github.com/MeKo-Tech/zbargo/internal/testutil"
)

type recordingProgress struct {
	mu       sync.Mutex
	started  int
	progress []int
	errors   int
	complete bool
}

func (r *recordingProgress) OnStart(total int) { r.started = total }

func (r *recordingProgress) OnProgress(current, _ int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.progress = append(r.progress, current)
}

func (r *recordingProgress) OnComplete() { r.complete = true }

func (r *recordingProgress) OnError(int, error) { r.errors++ }

func TestProcessImagesParallelKeepsOrder(t *testing.T) {
	p := newGozxingPipeline(t, NewBuilder().WithFormats([]string{"qr"}))

	var images []image.Image
	for i := range 6 {
		images = append(images, qrImage(t, fmt.Sprintf("item-%d", i)))
	}

	results, err := p.ProcessImagesParallel(context.Background(), images, 3)
	require.NoError(t, err)
	require.Len(t, results, len(images))
	for i, res := range results {
		require.NotNil(t, res)
		require.Len(t, res.Barcodes, 1)
		assert.Equal(t, fmt.Sprintf("item-%d", i), res.Barcodes[0].Value)
	}
}

func TestProcessImagesParallelOneBackendPerWorker(t *testing.T) {
	progress := &recordingProgress{}
	p, ff := newFakePipeline(t, NewBuilder().WithProgressCallback(progress),
		func() *fakeBackend { return &fakeBackend{} })

	images := make([]image.Image, 5)
	for i := range images {
		images[i] = image.NewGray(image.Rect(0, 0, 16+i, 16))
	}

	results, err := p.ProcessImagesParallel(context.Background(), images, 2)
	require.NoError(t, err)
	require.Len(t, results, 5)
	for i, res := range results {
		assert.Equal(t, 16+i, res.Width)
	}

	// one backend for the pipeline itself plus one per worker
	require.Len(t, ff.backends, 3)
	var seen int
	for _, be := range ff.backends[1:] {
		assert.Equal(t, 1, be.closed)
		seen += len(be.seen)
	}
	assert.Equal(t, 5, seen)
	assert.Empty(t, ff.backends[0].seen)

	assert.Equal(t, 5, progress.started)
	assert.ElementsMatch(t, []int{1, 2, 3, 4, 5}, progress.progress)
	assert.True(t, progress.complete)
}

func TestProcessImagesParallelWorkersCappedByItems(t *testing.T) {
	p, ff := newFakePipeline(t, NewBuilder(), func() *fakeBackend { return &fakeBackend{} })
	_, err := p.ProcessImagesParallel(context.Background(), []image.Image{image.NewGray(image.Rect(0, 0, 16, 16))}, 8)
	require.NoError(t, err)
	assert.Len(t, ff.backends, 2)
}

func TestProcessImagesParallelStopsOnError(t *testing.T) {
	boom := errors.New("boom")
	p, _ := newFakePipeline(t, NewBuilder(), func() *fakeBackend {
		return &fakeBackend{fail: func(img image.Image) error {
			if img.Bounds().Dx() == 17 {
				return boom
			}
			return nil
		}}
	})

	images := []image.Image{
		image.NewGray(image.Rect(0, 0, 16, 16)),
		image.NewGray(image.Rect(0, 0, 17, 16)),
		image.NewGray(image.Rect(0, 0, 18, 16)),
	}
	_, err := p.ProcessImagesParallel(context.Background(), images, 2)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "item 1")
}

func TestProcessImagesParallelErrorHandlerContinues(t *testing.T) {
	boom := errors.New("boom")
	var failed []int
	var mu sync.Mutex

	b := NewBuilder().WithErrorHandler(func(i int, err error) {
		mu.Lock()
		defer mu.Unlock()
		failed = append(failed, i)
		assert.ErrorIs(t, err, boom)
	})
	p, _ := newFakePipeline(t, b, func() *fakeBackend {
		return &fakeBackend{fail: func(img image.Image) error {
			if img.Bounds().Dx() == 17 {
				return boom
			}
			return nil
		}}
	})

	images := []image.Image{
		image.NewGray(image.Rect(0, 0, 16, 16)),
		image.NewGray(image.Rect(0, 0, 17, 16)),
		image.NewGray(image.Rect(0, 0, 18, 16)),
	}
	results, err := p.ProcessImagesParallel(context.Background(), images, 2)
	require.NoError(t, err)
	assert.NotNil(t, results[0])
	assert.Nil(t, results[1])
	assert.NotNil(t, results[2])
	assert.Equal(t, []int{1}, failed)

	stats := CalculateParallelStats(results, time.Second, 2)
	assert.Equal(t, 3, stats.TotalImages)
	assert.Equal(t, 2, stats.ProcessedImages)
	assert.Equal(t, 1, stats.FailedImages)
	assert.InDelta(t, 2.0, stats.ThroughputPerSec, 1e-9)
	assert.Equal(t, 500*time.Millisecond, stats.AveragePerImage)
}

func TestProcessImagesParallelBackendInitFailure(t *testing.T) {
	p, _ := newFakePipeline(t, NewBuilder(), func() *fakeBackend { return &fakeBackend{} })
	p.factory = func(string) (barcode.Backend, error) { return nil, errors.New("no engine") }

	_, err := p.ProcessImagesParallel(context.Background(), []image.Image{
		image.NewGray(image.Rect(0, 0, 16, 16)),
		image.NewGray(image.Rect(0, 0, 16, 16)),
	}, 2)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "init backend")
}

func TestProcessImagesParallelEmpty(t *testing.T) {
	p, _ := newFakePipeline(t, NewBuilder(), func() *fakeBackend { return &fakeBackend{} })
	_, err := p.ProcessImagesParallel(context.Background(), nil, 2)
	require.Error(t, err)
	_, err = p.ProcessFilesParallel(context.Background(), nil, 2)
	require.Error(t, err)
}

func TestProcessImagesParallelCancelled(t *testing.T) {
	p, _ := newFakePipeline(t, NewBuilder(), func() *fakeBackend { return &fakeBackend{} })
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := p.ProcessImagesParallel(ctx, []image.Image{
		image.NewGray(image.Rect(0, 0, 16, 16)),
		image.NewGray(image.Rect(0, 0, 16, 16)),
	}, 2)
	require.ErrorIs(t, err, context.Canceled)
}

func TestProcessFilesParallel(t *testing.T) {
	p := newGozxingPipeline(t, NewBuilder().WithFormats([]string{"qr"}))
	dir := t.TempDir()

	var paths []string
	for i := range 3 {
		path := filepath.Join(dir, fmt.Sprintf("qr-%d.png", i))
		testutil.SaveImage(t, qrImage(t, fmt.Sprintf("file-%d", i)), path)
		paths = append(paths, path)
	}

	results, err := p.ProcessFilesParallel(context.Background(), paths, 2)
	require.NoError(t, err)
	for i, res := range results {
		assert.Equal(t, paths[i], res.Source)
		require.Len(t, res.Barcodes, 1)
		assert.Equal(t, fmt.Sprintf("file-%d", i), res.Barcodes[0].Value)
	}
}

func TestCalculateParallelStatsEmpty(t *testing.T) {
	stats := CalculateParallelStats(nil, 0, 1)
	assert.Zero(t, stats.ProcessedImages)
	assert.Zero(t, stats.ThroughputPerSec)
}

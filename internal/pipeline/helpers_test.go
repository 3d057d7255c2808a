package pipeline

import (
	"context"
	"image"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/zbargo/internal/barcode"
	"github.com/MeKo-Tech/zbargo/internal/testutil"
)

// fakeBackend returns canned results and records what it was asked to do.
type fakeBackend struct {
	mu      sync.Mutex
	results []barcode.Result
	fail    func(img image.Image) error
	seen    []image.Rectangle
	opts    []barcode.Options
	closed  int
}

func (f *fakeBackend) Name() string { return "fake" }

func (f *fakeBackend) Decode(ctx context.Context, img image.Image, opts barcode.Options) ([]barcode.Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seen = append(f.seen, img.Bounds())
	f.opts = append(f.opts, opts)
	if f.fail != nil {
		if err := f.fail(img); err != nil {
			return nil, err
		}
	}
	out := make([]barcode.Result, len(f.results))
	copy(out, f.results)
	return out, nil
}

func (f *fakeBackend) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

// fakeFactory hands out fresh fakeBackends built by mk and remembers them.
type fakeFactory struct {
	mu       sync.Mutex
	mk       func() *fakeBackend
	names    []string
	backends []*fakeBackend
}

func (ff *fakeFactory) create(name string) (barcode.Backend, error) {
	ff.mu.Lock()
	defer ff.mu.Unlock()
	be := ff.mk()
	ff.names = append(ff.names, name)
	ff.backends = append(ff.backends, be)
	return be, nil
}

func newFakePipeline(t *testing.T, b *Builder, mk func() *fakeBackend) (*Pipeline, *fakeFactory) {
	t.Helper()
	ff := &fakeFactory{mk: mk}
	p, err := b.WithBackendFactory(ff.create).Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p, ff
}

func newGozxingPipeline(t *testing.T, b *Builder) *Pipeline {
	t.Helper()
	p, err := b.WithBackend(barcode.BackendGozxing).Build()
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func qrImage(t *testing.T, content string) image.Image {
	t.Helper()
	img, err := testutil.QRImage(content)
	require.NoError(t, err)
	return img
}

package server

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/zbargo/internal/pipeline"
)

// mockScanner returns one QR symbol per image and records its calls.
type mockScanner struct {
	mu        sync.Mutex
	err       error
	images    int
	pdfs      int
	pageRange string
	pdfSize   int64
	closed    int
}

func (m *mockScanner) ProcessImageContext(ctx context.Context, img image.Image) (*pipeline.ImageResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.images++
	if m.err != nil {
		return nil, m.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	b := img.Bounds()
	return &pipeline.ImageResult{
		Width:   b.Dx(),
		Height:  b.Dy(),
		Backend: "mock",
		Barcodes: []pipeline.BarcodeResult{{
			Type:    "QR-Code",
			Format:  "qr",
			Value:   "hello",
			Quality: 1,
			Box:     pipeline.Box{X: 2, Y: 2, W: 10, H: 10},
			Points:  []pipeline.Point{{X: 2, Y: 2}, {X: 12, Y: 2}, {X: 12, Y: 12}, {X: 2, Y: 12}},
			Backend: "mock",
		}},
	}, nil
}

func (m *mockScanner) ProcessPDF(_ context.Context, filename, pageRange string) (*pipeline.PDFResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pdfs++
	m.pageRange = pageRange
	if fi, err := os.Stat(filename); err == nil {
		m.pdfSize = fi.Size()
	}
	if m.err != nil {
		return nil, m.err
	}
	res := &pipeline.PDFResult{Filename: filename, TotalPages: 1}
	res.Pages = []pipeline.PDFPageResult{{
		PageNumber: 1,
		Images: []pipeline.PDFImageResult{{
			Width: 100, Height: 100,
			Barcodes: []pipeline.BarcodeResult{{Type: "EAN-13", Format: "ean13", Value: "4006381333931", Backend: "mock"}},
		}},
	}}
	return res, nil
}

func (m *mockScanner) BackendName() string { return "mock" }

func (m *mockScanner) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	return nil
}

// mockBuilder hands out mock scanners and remembers the options it saw.
type mockBuilder struct {
	mu      sync.Mutex
	scanner *mockScanner
	opts    []RequestOptions
	err     error
}

func (b *mockBuilder) build(opts RequestOptions) (scanner, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.opts = append(b.opts, opts)
	if b.err != nil {
		return nil, b.err
	}
	return b.scanner, nil
}

func (b *mockBuilder) lastOptions() RequestOptions {
	b.mu.Lock()
	defer b.mu.Unlock()
	if len(b.opts) == 0 {
		return RequestOptions{}
	}
	return b.opts[len(b.opts)-1]
}

// newTestServer returns a server backed by a mock scanner.
func newTestServer(t *testing.T, configure ...func(*Server)) (*Server, *mockBuilder) {
	t.Helper()
	mb := &mockBuilder{scanner: &mockScanner{}}
	s := &Server{
		pipelines:      newPipelineCache(mb.build),
		corsOrigin:     "*",
		maxUploadMB:    1,
		timeoutSec:     5,
		overlayEnabled: true,
		overlayStyle:   pipeline.DefaultOverlayStyle(),
	}
	for _, fn := range configure {
		fn(s)
	}
	t.Cleanup(func() { _ = s.Close() })
	return s, mb
}

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h))))
	return buf.Bytes()
}

// multipartRequest builds a POST with one file part and extra form fields.
func multipartRequest(t *testing.T, target, field, filename string, data []byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = fw.Write(data)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, target, &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

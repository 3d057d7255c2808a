package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fakePDF = []byte("%PDF-1.4\n%%EOF\n")

func TestScanPDFHandlerJSON(t *testing.T) {
	s, mb := newTestServer(t)

	w := httptest.NewRecorder()
	req := multipartRequest(t, "/api/scan/pdf", "pdf", "doc.pdf", fakePDF, map[string]string{"pages": "1-2"})
	s.scanPDFHandler(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp PDFScanResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Result)
	assert.Equal(t, "doc.pdf", resp.Result.Filename)
	assert.Len(t, resp.Result.Barcodes(), 1)

	assert.Equal(t, "1-2", mb.scanner.pageRange)
	assert.Equal(t, int64(len(fakePDF)), mb.scanner.pdfSize)
}

func TestScanPDFHandlerText(t *testing.T) {
	s, _ := newTestServer(t)

	w := httptest.NewRecorder()
	req := multipartRequest(t, "/api/scan/pdf", "pdf", "doc.pdf", fakePDF, map[string]string{"format": "text"})
	s.scanPDFHandler(w, req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "page 1: EAN-13:4006381333931\n", w.Body.String())
}

func TestScanPDFHandlerErrors(t *testing.T) {
	t.Run("wrong method", func(t *testing.T) {
		s, _ := newTestServer(t)
		w := httptest.NewRecorder()
		s.scanPDFHandler(w, httptest.NewRequest(http.MethodGet, "/api/scan/pdf", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})

	t.Run("missing file", func(t *testing.T) {
		s, _ := newTestServer(t)
		w := httptest.NewRecorder()
		s.scanPDFHandler(w, multipartRequest(t, "/api/scan/pdf", "image", "a.png", pngBytes(t, 8, 8), nil))
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("password protected", func(t *testing.T) {
		s, mb := newTestServer(t)
		mb.scanner.err = errors.New("pdfcpu: please provide the correct password")
		w := httptest.NewRecorder()
		s.scanPDFHandler(w, multipartRequest(t, "/api/scan/pdf", "pdf", "doc.pdf", fakePDF, nil))
		assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	})
}

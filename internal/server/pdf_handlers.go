package server

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/MeKo-Tech/zbargo/internal/pipeline"
)

// scanPDFHandler decodes the symbols in the images embedded in an uploaded PDF.
func (s *Server) scanPDFHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.parseUpload(w, r) {
		return
	}

	file, header, err := r.FormFile("pdf")
	if err != nil {
		s.writeErrorResponse(w, "No PDF file provided", http.StatusBadRequest)
		return
	}
	defer func() { _ = file.Close() }()

	opts, err := parseRequestOptions(r)
	if err != nil {
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	res, err := s.scanPDF(ctx, opts, file, r.FormValue("pages"), "pdf")
	if err != nil {
		s.writeErrorResponse(w, fmt.Sprintf("Scan failed: %v", err), statusForError(err))
		return
	}
	res.Filename = header.Filename

	format := strings.ToLower(requestFormat(r))
	if format == "" || format == pipeline.FormatJSON {
		writeJSON(w, http.StatusOK, PDFScanResponse{Success: true, Result: res})
		return
	}
	out, err := pipeline.FormatPDFResult(res, format)
	if err != nil {
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", contentTypeFor(format))
	_, _ = w.Write([]byte(out))
}

// scanPDF spools src to a temporary file and scans the selected pages.
func (s *Server) scanPDF(ctx context.Context, opts RequestOptions, src io.Reader, pages, kind string) (*pipeline.PDFResult, error) {
	start := time.Now()
	res, err := func() (*pipeline.PDFResult, error) {
		tmp, err := os.CreateTemp("", "zbarscan_*.pdf")
		if err != nil {
			return nil, fmt.Errorf("failed to create temporary file: %w", err)
		}
		defer func() {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}()
		if _, err := io.Copy(tmp, src); err != nil {
			return nil, fmt.Errorf("failed to store PDF: %w", err)
		}
		if err := tmp.Close(); err != nil {
			return nil, fmt.Errorf("failed to store PDF: %w", err)
		}

		p, release, err := s.pipelines.GetOrCreate(opts)
		if err != nil {
			return nil, err
		}
		defer release()
		return p.ProcessPDF(ctx, tmp.Name(), pages)
	}()
	recordScanMetrics(kind, start, err)
	if err != nil {
		slog.Debug("PDF scan failed", "type", kind, "error", err)
		return nil, err
	}
	observeBarcodes(kind, res.Barcodes())
	return res, nil
}

package server

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MeKo-Tech/zbargo/internal/pipeline"
	"github.com/MeKo-Tech/zbargo/internal/utils"
)

const formatOverlay = "overlay"

// scanImageHandler decodes the symbols in an uploaded image.
func (s *Server) scanImageHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if !s.parseUpload(w, r) {
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		s.writeErrorResponse(w, "No image file provided", http.StatusBadRequest)
		return
	}
	defer func() { _ = file.Close() }()

	img, _, err := utils.DecodeImage(file)
	if err != nil {
		s.writeErrorResponse(w, "Invalid image format", http.StatusBadRequest)
		return
	}

	format := strings.ToLower(requestFormat(r))
	if format == formatOverlay && !s.overlayEnabled {
		http.Error(w, "overlay output disabled", http.StatusForbidden)
		return
	}

	opts, err := parseRequestOptions(r)
	if err != nil {
		s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
		return
	}

	ctx, cancel := s.requestContext(r)
	defer cancel()
	res, err := s.scanImage(ctx, opts, img, "image")
	if err != nil {
		s.writeErrorResponse(w, fmt.Sprintf("Scan failed: %v", err), statusForError(err))
		return
	}

	switch format {
	case "", pipeline.FormatJSON:
		writeJSON(w, http.StatusOK, ScanResponse{Success: true, Result: res})
	case formatOverlay:
		s.writeOverlay(w, r, img, res)
	default:
		out, err := pipeline.FormatImageResults([]*pipeline.ImageResult{res}, format)
		if err != nil {
			s.writeErrorResponse(w, err.Error(), http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", contentTypeFor(format))
		_, _ = w.Write([]byte(out))
	}
}

// scanImage runs img through the pipeline selected by opts.
func (s *Server) scanImage(ctx context.Context, opts RequestOptions, img image.Image, kind string) (*pipeline.ImageResult, error) {
	start := time.Now()
	res, err := func() (*pipeline.ImageResult, error) {
		p, release, err := s.pipelines.GetOrCreate(opts)
		if err != nil {
			return nil, err
		}
		defer release()
		return p.ProcessImageContext(ctx, img)
	}()
	recordScanMetrics(kind, start, err)
	if err != nil {
		slog.Debug("Image scan failed", "type", kind, "error", err)
		return nil, err
	}
	observeBarcodes(kind, res.Barcodes)
	return res, nil
}

// writeOverlay renders the detected symbols onto img as PNG. The box and
// poly form values override the configured colours.
func (s *Server) writeOverlay(w http.ResponseWriter, r *http.Request, img image.Image, res *pipeline.ImageResult) {
	style := s.overlayStyle
	if c, err := pipeline.ParseHexColor(r.FormValue("box")); err == nil {
		style.Box = c
	}
	if c, err := pipeline.ParseHexColor(r.FormValue("poly")); err == nil {
		style.Outline = c
	}
	ov := pipeline.RenderOverlay(img, res, style)
	if ov == nil {
		http.Error(w, "overlay failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	if err := png.Encode(w, ov); err != nil {
		slog.Error("Failed to encode overlay", "error", err)
	}
}

func contentTypeFor(format string) string {
	switch format {
	case pipeline.FormatCSV:
		return "text/csv"
	case pipeline.FormatYAML:
		return "application/yaml"
	case pipeline.FormatJSON:
		return "application/json"
	default:
		return "text/plain; charset=utf-8"
	}
}

package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MeKo-Tech/zbargo/internal/pdf"
	"github.com/MeKo-Tech/zbargo/internal/pipeline"
	"github.com/MeKo-Tech/zbargo/internal/utils"
	"github.com/MeKo-Tech/zbargo/internal/version"
	"github.com/MeKo-Tech/zbargo/internal/zbar"
)

// healthHandler returns server health status.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	v, _, _ := version.Info()
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Version: v,
		Time:    time.Now().UTC().Format(time.RFC3339),
	})
}

// versionHandler reports build and engine information.
func (s *Server) versionHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	v, commit, date := version.Info()
	resp := VersionResponse{
		Version:         v,
		GitCommit:       commit,
		BuildDate:       date,
		EngineAvailable: zbar.Available(),
	}
	if ev, err := zbar.Version(); err == nil {
		resp.EngineVersion = ev.String()
	}
	if p, err := s.pipelines.defaultScanner(); err == nil {
		resp.Backend = p.BackendName()
	}
	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// writeErrorResponse writes a JSON error body with the given status.
func (s *Server) writeErrorResponse(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, ScanResponse{Success: false, Error: message})
}

// statusForError maps scan failures to HTTP status codes.
func statusForError(err error) int {
	var maxErr *http.MaxBytesError
	switch {
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, zbar.ErrEngineUnavailable), errors.Is(err, pipeline.ErrNotInitialized):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, errInvalidOptions), errors.Is(err, pipeline.ErrUnknownOutputFormat):
		return http.StatusBadRequest
	case errors.Is(err, utils.ErrImageTooSmall), errors.Is(err, utils.ErrUnsupportedFormat),
		pdf.IsPasswordError(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// requestContext bounds a scan by the configured timeout.
func (s *Server) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	if s.timeoutSec <= 0 {
		return context.WithCancel(r.Context())
	}
	return context.WithTimeout(r.Context(), time.Duration(s.timeoutSec)*time.Second)
}

// recordScanMetrics records the outcome of one scan request.
func recordScanMetrics(kind string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	scanRequestsTotal.WithLabelValues(kind, status).Inc()
	scanDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())
}

// requestFormat reads the output format from the form or query string.
func requestFormat(r *http.Request) string {
	if f := r.FormValue("format"); f != "" {
		return f
	}
	return r.URL.Query().Get("format")
}

// maxUploadBytes returns the upload limit in bytes.
func (s *Server) maxUploadBytes() int64 {
	return s.maxUploadMB * 1024 * 1024
}

// parseUpload limits the body and parses a multipart form.
func (s *Server) parseUpload(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes())
	if err := r.ParseMultipartForm(s.maxUploadBytes()); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) || strings.Contains(err.Error(), "too large") {
			s.writeErrorResponse(w, "File too large", http.StatusRequestEntityTooLarge)
		} else {
			s.writeErrorResponse(w, "Failed to parse form data", http.StatusBadRequest)
		}
		return false
	}
	if r.ContentLength > 0 {
		uploadSizeBytes.Observe(float64(r.ContentLength))
	}
	return true
}

package server

import (
	"context"
	"fmt"
	"image"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MeKo-Tech/zbargo/internal/pipeline"
)

// scanner is the part of *pipeline.Pipeline the handlers use.
type scanner interface {
	ProcessImageContext(ctx context.Context, img image.Image) (*pipeline.ImageResult, error)
	ProcessPDF(ctx context.Context, filename, pageRange string) (*pipeline.PDFResult, error)
	BackendName() string
	Close() error
}

// Server holds the HTTP server state and dependencies.
type Server struct {
	pipelines      *pipelineCache
	corsOrigin     string
	maxUploadMB    int64
	timeoutSec     int
	overlayEnabled bool
	overlayStyle   pipeline.OverlayStyle
	rateLimiter    *RateLimiter
}

// Config holds server configuration.
type Config struct {
	Host             string
	Port             int
	CORSOrigin       string
	MaxUploadMB      int64
	TimeoutSec       int
	Builder          *pipeline.Builder // nil means pipeline defaults
	OverlayEnabled   bool
	OverlayBoxColor  string
	OverlayPolyColor string
	RateLimit        RateLimitConfig
}

// RateLimitConfig holds per-client limits. Zero disables a limit.
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerMinute int
	RequestsPerHour   int
	MaxRequestsPerDay int
	MaxDataPerDay     int64 // bytes
}

// Response types for API endpoints.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	Time    string `json:"time"`
}

type VersionResponse struct {
	Version         string `json:"version"`
	GitCommit       string `json:"git_commit"`
	BuildDate       string `json:"build_date"`
	Backend         string `json:"backend"`
	EngineAvailable bool   `json:"engine_available"`
	EngineVersion   string `json:"engine_version,omitempty"`
}

type ScanResponse struct {
	Success bool                  `json:"success"`
	Result  *pipeline.ImageResult `json:"result,omitempty"`
	Error   string                `json:"error,omitempty"`
}

type PDFScanResponse struct {
	Success bool                `json:"success"`
	Result  *pipeline.PDFResult `json:"result,omitempty"`
	Error   string              `json:"error,omitempty"`
}

// NewServer creates a scan server and its default pipeline.
func NewServer(config Config) (*Server, error) {
	base := config.Builder
	if base == nil {
		base = pipeline.NewBuilder()
	}
	cache := newPipelineCache(func(opts RequestOptions) (scanner, error) {
		b, err := opts.apply(base.Clone())
		if err != nil {
			return nil, err
		}
		p, err := b.Build()
		if err != nil {
			return nil, err
		}
		return p, nil
	})
	if _, err := cache.defaultScanner(); err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}

	style := pipeline.DefaultOverlayStyle()
	if c, err := pipeline.ParseHexColor(config.OverlayBoxColor); err == nil {
		style.Box = c
	}
	if c, err := pipeline.ParseHexColor(config.OverlayPolyColor); err == nil {
		style.Outline = c
	}

	s := &Server{
		pipelines:      cache,
		corsOrigin:     config.CORSOrigin,
		maxUploadMB:    config.MaxUploadMB,
		timeoutSec:     config.TimeoutSec,
		overlayEnabled: config.OverlayEnabled,
		overlayStyle:   style,
	}
	if s.corsOrigin == "" {
		s.corsOrigin = "*"
	}
	if s.maxUploadMB <= 0 {
		s.maxUploadMB = 50
	}
	if rl := config.RateLimit; rl.Enabled {
		s.rateLimiter = NewRateLimiter(rl.RequestsPerMinute, rl.RequestsPerHour, rl.MaxRequestsPerDay, rl.MaxDataPerDay)
	}
	return s, nil
}

// Close releases server resources.
func (s *Server) Close() error {
	if s.pipelines != nil {
		return s.pipelines.Close()
	}
	return nil
}

// SetupRoutes configures the HTTP routes.
func (s *Server) SetupRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/health", s.corsMiddleware(s.healthHandler))
	mux.HandleFunc("/version", s.corsMiddleware(s.versionHandler))
	mux.HandleFunc("/api/scan", s.corsMiddleware(s.rateLimitMiddleware(s.scanImageHandler)))
	mux.HandleFunc("/api/scan/pdf", s.corsMiddleware(s.rateLimitMiddleware(s.scanPDFHandler)))
	mux.HandleFunc("/api/scan/batch", s.corsMiddleware(s.rateLimitMiddleware(s.scanBatchHandler)))
	mux.HandleFunc("/ws/scan", s.rateLimitMiddleware(s.scanWebSocketHandler))
	mux.Handle("/metrics", promhttp.Handler())
}

// Handler returns a mux with every route registered.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.SetupRoutes(mux)
	return mux
}

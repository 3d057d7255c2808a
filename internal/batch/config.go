package batch

import (
	"fmt"
	"io"
	"time"

	"github.com/MeKo-Tech/zbargo/internal/pipeline"
)

// Config holds all configuration for batch processing.
type Config struct {
	// Scan settings; nil means pipeline defaults.
	Builder *pipeline.Builder

	// Parallel processing settings
	Workers         int
	ContinueOnError bool

	// File discovery settings
	Recursive       bool
	IncludePatterns []string
	ExcludePatterns []string

	// Output settings
	Format     string
	OutputFile string
	OverlayDir string
	Overlay    pipeline.OverlayStyle

	// Progress settings
	ShowProgress     bool
	Quiet            bool
	ProgressInterval time.Duration
	ProgressWriter   io.Writer
}

// DefaultConfig returns the batch defaults.
func DefaultConfig() *Config {
	return &Config{
		Format:           pipeline.FormatText,
		Overlay:          pipeline.DefaultOverlayStyle(),
		ProgressInterval: 100 * time.Millisecond,
	}
}

// Failure records an image that could not be scanned.
type Failure struct {
	Path  string `json:"path" yaml:"path"`
	Error string `json:"error" yaml:"error"`
}

// Result holds the result of batch processing.
type Result struct {
	Results     []*pipeline.ImageResult
	ImagePaths  []string
	Failures    []Failure
	Duration    time.Duration
	WorkerCount int
}

// FormatResults formats the batch processing results in the specified format.
func (r *Result) FormatResults(format string) (string, error) {
	return formatBatchResults(r, format)
}

// Stats summarises the run.
func (r *Result) Stats() pipeline.ParallelStats {
	return pipeline.CalculateParallelStats(r.Results, r.Duration, r.WorkerCount)
}

// WriteStats prints processing statistics.
func (r *Result) WriteStats(w io.Writer) {
	stats := r.Stats()
	_, _ = fmt.Fprintf(w, "\nProcessing Statistics:\n")
	_, _ = fmt.Fprintf(w, "  Total images: %d\n", stats.TotalImages)
	_, _ = fmt.Fprintf(w, "  Scanned: %d\n", stats.ProcessedImages)
	_, _ = fmt.Fprintf(w, "  Failed: %d\n", stats.FailedImages)
	_, _ = fmt.Fprintf(w, "  Barcodes: %d\n", stats.TotalBarcodes)
	_, _ = fmt.Fprintf(w, "  Workers: %d\n", stats.WorkerCount)
	_, _ = fmt.Fprintf(w, "  Duration: %v\n", stats.TotalDuration.Round(time.Millisecond))
	_, _ = fmt.Fprintf(w, "  Throughput: %.1f images/sec\n", stats.ThroughputPerSec)
}

package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/MeKo-Tech/zbargo/internal/pipeline"
)

// ErrNoImages is returned when discovery finds nothing to scan.
var ErrNoImages = errors.New("no image files found")

// ProcessBatch discovers images under args and scans them on a worker pool.
func ProcessBatch(ctx context.Context, args []string, config *Config) (*Result, error) {
	if config == nil {
		config = DefaultConfig()
	}

	imageFiles, err := discoverImageFiles(args, config.Recursive, config.IncludePatterns, config.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("failed to discover image files: %w", err)
	}
	if len(imageFiles) == 0 {
		return nil, ErrNoImages
	}

	slog.Info("Starting batch scan", "images", len(imageFiles), "workers", config.Workers)

	var (
		mu       sync.Mutex
		failures []Failure
	)
	b := config.Builder
	if b == nil {
		b = pipeline.NewBuilder()
	}
	b = b.WithParallelWorkers(config.Workers).WithProgressCallback(progressCallback(config, len(imageFiles)))
	if config.ContinueOnError {
		b = b.WithErrorHandler(func(index int, err error) {
			mu.Lock()
			defer mu.Unlock()
			failures = append(failures, Failure{Path: imageFiles[index], Error: err.Error()})
		})
	}

	p, err := b.Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build pipeline: %w", err)
	}
	defer func() {
		if err := p.Close(); err != nil {
			slog.Warn("Failed to close pipeline", "error", err)
		}
	}()

	start := time.Now()
	results, err := p.ProcessFilesParallel(ctx, imageFiles, config.Workers)
	if err != nil {
		return nil, fmt.Errorf("batch scan failed: %w", err)
	}
	duration := time.Since(start)

	sortFailures(failures, imageFiles)

	if config.OverlayDir != "" {
		if err := saveOverlays(results, config.OverlayDir, config.Overlay); err != nil {
			return nil, err
		}
	}

	workers := config.Workers
	if workers <= 0 {
		workers = p.Config().Parallel.MaxWorkers
	}

	return &Result{
		Results:     results,
		ImagePaths:  imageFiles,
		Failures:    failures,
		Duration:    duration,
		WorkerCount: min(workers, len(imageFiles)),
	}, nil
}

// progressCallback selects console progress for interactive runs and log
// progress otherwise.
func progressCallback(config *Config, total int) pipeline.ProgressCallback {
	if config.Quiet {
		return pipeline.NoOpProgressCallback{}
	}
	if config.ShowProgress && total > 1 {
		w := config.ProgressWriter
		if w == nil {
			w = os.Stderr
		}
		return pipeline.NewConsoleProgressCallback(w, "").WithUpdateInterval(config.ProgressInterval)
	}
	return pipeline.NewLogProgressCallback(slog.Default(), slog.LevelDebug)
}

// sortFailures restores discovery order; workers report failures as they finish.
func sortFailures(failures []Failure, order []string) {
	pos := make(map[string]int, len(order))
	for i, p := range order {
		pos[p] = i
	}
	for i := 1; i < len(failures); i++ {
		for j := i; j > 0 && pos[failures[j].Path] < pos[failures[j-1].Path]; j-- {
			failures[j], failures[j-1] = failures[j-1], failures[j]
		}
	}
}

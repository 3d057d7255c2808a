package pipeline

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/MeKo-Tech/zbargo/internal/barcode"
)

// ParallelConfig holds configuration for parallel processing.
type ParallelConfig struct {
	MaxWorkers       int              // Number of parallel workers (0 = runtime.NumCPU())
	ProgressCallback ProgressCallback // Optional progress reporting
	// ErrorHandler, when set, receives per-item failures and processing
	// continues; the failed slot is left nil. Without it the first failure
	// cancels the run.
	ErrorHandler func(index int, err error)
}

// DefaultParallelConfig returns sensible defaults for parallel processing.
func DefaultParallelConfig() ParallelConfig {
	return ParallelConfig{MaxWorkers: runtime.NumCPU()}
}

// ProcessImagesParallel scans images on a pool of workers, each owning its
// own backend. Results are returned in input order.
func (p *Pipeline) ProcessImagesParallel(ctx context.Context, images []image.Image, workers int) ([]*ImageResult, error) {
	if len(images) == 0 {
		return nil, errors.New("no images provided")
	}
	return runParallel(ctx, p, len(images), workers, func(ctx context.Context, be barcode.Backend, i int) (*ImageResult, error) {
		if images[i] == nil {
			return nil, errors.New("input image is nil")
		}
		return p.scan(ctx, be, images[i])
	})
}

// ProcessFilesParallel loads and scans files on a pool of workers. Results are
// returned in input order with Source set to the path.
func (p *Pipeline) ProcessFilesParallel(ctx context.Context, paths []string, workers int) ([]*ImageResult, error) {
	if len(paths) == 0 {
		return nil, errors.New("no files provided")
	}
	return runParallel(ctx, p, len(paths), workers, func(ctx context.Context, be barcode.Backend, i int) (*ImageResult, error) {
		img, err := loadImage(paths[i])
		if err != nil {
			return nil, err
		}
		res, err := p.scan(ctx, be, img)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", paths[i], err)
		}
		res.Source = paths[i]
		return res, nil
	})
}

type scanFunc func(ctx context.Context, be barcode.Backend, index int) (*ImageResult, error)

func runParallel(ctx context.Context, p *Pipeline, n, workers int, fn scanFunc) ([]*ImageResult, error) {
	if p == nil || p.factory == nil {
		return nil, ErrNotInitialized
	}
	cfg := p.cfg.Parallel
	workers = min(p.workers(workers), n)

	progress := newSyncProgress(cfg.ProgressCallback)
	progress.OnStart(n)
	defer progress.OnComplete()

	start := time.Now()
	results := make([]*ImageResult, n)
	jobs := make(chan int)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(jobs)
		for i := range n {
			select {
			case jobs <- i:
			case <-gctx.Done():
				return nil
			}
		}
		return nil
	})

	var done int
	var doneMu sync.Mutex
	for w := range workers {
		g.Go(func() error {
			be, err := p.factory(p.cfg.Backend)
			if err != nil {
				return fmt.Errorf("worker %d: init backend: %w", w, err)
			}
			defer func() {
				if err := be.Close(); err != nil {
					slog.Warn("Failed to close worker backend", "worker", w, "error", err)
				}
			}()

			for i := range jobs {
				res, err := fn(gctx, be, i)

				doneMu.Lock()
				done++
				current := done
				doneMu.Unlock()

				if err != nil {
					progress.OnError(current, err)
					if cfg.ErrorHandler == nil {
						return fmt.Errorf("item %d: %w", i, err)
					}
					cfg.ErrorHandler(i, err)
				} else {
					results[i] = res
				}
				progress.OnProgress(current, n)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	slog.Debug("Parallel scan finished", "items", n, "workers", workers, "duration", time.Since(start))
	return results, nil
}

// ParallelStats holds statistics about parallel processing performance.
type ParallelStats struct {
	TotalImages      int           `json:"total_images"`
	ProcessedImages  int           `json:"processed_images"`
	FailedImages     int           `json:"failed_images"`
	TotalBarcodes    int           `json:"total_barcodes"`
	WorkerCount      int           `json:"worker_count"`
	TotalDuration    time.Duration `json:"total_duration_ns"`
	AveragePerImage  time.Duration `json:"average_per_image_ns"`
	ThroughputPerSec float64       `json:"throughput_per_sec"`
}

// CalculateParallelStats summarises a parallel run. Nil entries count as failures.
func CalculateParallelStats(results []*ImageResult, duration time.Duration, workerCount int) ParallelStats {
	stats := ParallelStats{
		TotalImages:   len(results),
		WorkerCount:   workerCount,
		TotalDuration: duration,
	}
	for _, r := range results {
		if r == nil {
			stats.FailedImages++
			continue
		}
		stats.ProcessedImages++
		stats.TotalBarcodes += len(r.Barcodes)
	}
	if stats.ProcessedImages > 0 && duration > 0 {
		stats.AveragePerImage = duration / time.Duration(stats.ProcessedImages)
		stats.ThroughputPerSec = float64(stats.ProcessedImages) / duration.Seconds()
	}
	return stats
}
